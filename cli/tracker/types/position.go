package types

import (
	"math"
	"strconv"
)

const EarthRadiusMeters = 6371000.0

// MetersPerDegree приближённая длина одного градуса дуги, используется в плоских проекциях
const MetersPerDegree = 111000.0

type Position2D struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Distance расстояние по большой окружности между двумя точками в метрах (формула гаверсинусов)
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	if lat1 == lat2 && lng1 == lng2 {
		return 0
	}

	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	// Погрешность округления у антиподов выводит a за пределы [0; 1]
	a = math.Min(math.Max(a, 0), 1)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

func (p Position2D) DistanceTo(position Position2D) float64 {
	return Distance(p.Latitude, p.Longitude, position.Latitude, position.Longitude)
}

func (p Position2D) EqualsHorizontallyTo(position Position2D, accuracyMeters float64) bool {
	return p.DistanceTo(position) <= accuracyMeters
}

// PointEWKT производная геометрия точки: x = долгота, y = широта, SRID 4326.
// Форматирование с минимальной точностью round-trip, поэтому строка однозначно соответствует координатам.
func PointEWKT(latitude, longitude float64) string {
	return "SRID=4326;POINT(" +
		strconv.FormatFloat(longitude, 'f', -1, 64) + " " +
		strconv.FormatFloat(latitude, 'f', -1, 64) + ")"
}

func Round(value float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(value*pow) / pow
}
