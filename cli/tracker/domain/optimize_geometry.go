package domain

import (
	"math"

	"github.com/daniil11ru/geotrack/cli/tracker/types"
)

// Line хорда между двумя точками трека в локальной плоской проекции.
// Масштаб по долготе берётся по средней широте концов хорды, поэтому у полюсов
// и при больших допусках расстояния получаются приближёнными.
type Line struct {
	First  types.Position2D
	Second types.Position2D
}

func (line Line) project(position types.Position2D) (x, y float64) {
	meanLatitude := (line.First.Latitude + line.Second.Latitude) / 2
	x = position.Longitude * types.MetersPerDegree * math.Cos(meanLatitude*math.Pi/180)
	y = position.Latitude * types.MetersPerDegree
	return x, y
}

func (line Line) Coefficients() (a, b, c float64) {
	x1, y1 := line.project(line.First)
	x2, y2 := line.project(line.Second)

	a = y1 - y2
	b = x2 - x1
	c = x1*y2 - x2*y1

	return a, b, c
}

// DistanceToPosition расстояние в метрах от точки до прямой, проходящей через хорду
func (line Line) DistanceToPosition(position types.Position2D) float64 {
	x, y := line.project(position)

	a, b, c := line.Coefficients()
	norm := math.Sqrt(a*a + b*b)
	if norm == 0 {
		x1, y1 := line.project(line.First)
		return math.Hypot(x-x1, y-y1)
	}

	return math.Abs(a*x+b*y+c) / norm
}

func routePosition(point types.RoutePoint) types.Position2D {
	return types.Position2D{Latitude: point.Latitude, Longitude: point.Longitude}
}

// GetSimplifiedTrack упрощение трека алгоритмом Дугласа-Пекера с допуском ep в метрах.
// Первая и последняя точки сохраняются всегда, повторное упрощение с тем же допуском ничего не меняет.
func GetSimplifiedTrack(points []types.RoutePoint, ep float64) []types.RoutePoint {
	if len(points) <= 2 {
		return append([]types.RoutePoint(nil), points...)
	}

	if ep < 0 {
		ep = 0
	}

	line := Line{First: routePosition(points[0]), Second: routePosition(points[len(points)-1])}

	idx, maxDist := seekMostDistantPoint(line, points)
	if maxDist > ep {
		left := GetSimplifiedTrack(points[:idx+1], ep)
		right := GetSimplifiedTrack(points[idx:], ep)
		return append(left[:len(left)-1], right...)
	}

	return []types.RoutePoint{points[0], points[len(points)-1]}
}

func seekMostDistantPoint(line Line, points []types.RoutePoint) (idx int, maxDist float64) {
	for i := 1; i < len(points)-1; i++ {
		d := line.DistanceToPosition(routePosition(points[i]))
		if d > maxDist {
			maxDist = d
			idx = i
		}
	}

	return idx, maxDist
}
