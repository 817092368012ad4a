package domain

import (
	"context"
	"fmt"
	"math"

	"github.com/daniil11ru/geotrack/cli/tracker/dto/db/in/filter"
	"github.com/daniil11ru/geotrack/cli/tracker/repository"
	"github.com/daniil11ru/geotrack/cli/tracker/types"
	"github.com/google/uuid"
)

const (
	DefaultMinStopMinutes = 5.0

	stationarySpeedKmh       = 5.0
	stationaryDistanceMeters = 50.0
)

type DetectStops struct {
	Samples repository.Samples
}

// Run ищет стоянки поездки. Нулевая минимальная длительность возвращает все неподвижные участки.
func (s *DetectStops) Run(ctx context.Context, tripID uuid.UUID, minDurationMinutes float64) ([]types.StopInterval, error) {
	if math.IsNaN(minDurationMinutes) || minDurationMinutes < 0 {
		return nil, types.NewValidationError("min_duration", "значение должно быть неотрицательным")
	}

	samples, err := s.Samples.GetSamples(ctx, filter.Samples{TripID: &tripID})
	if err != nil {
		return nil, fmt.Errorf("не удалось получить отметки поездки %s: %w", tripID, err)
	}
	sortByTimestamp(samples)

	return SegmentStops(samples, minDurationMinutes), nil
}

// isStationary шаг считается стоянкой при низкой скорости (если она известна) или малом смещении
func isStationary(prev, curr types.GPSSample) bool {
	if curr.SpeedKmh != nil && *curr.SpeedKmh < stationarySpeedKmh {
		return true
	}
	return prev.Position().DistanceTo(curr.Position()) < stationaryDistanceMeters
}

// SegmentStops делит упорядоченный по времени трек на стоянки не короче minDurationMinutes.
// Отрицательное значение minDurationMinutes считается нулём.
func SegmentStops(samples []types.GPSSample, minDurationMinutes float64) []types.StopInterval {
	if minDurationMinutes < 0 {
		minDurationMinutes = 0
	}

	stops := []types.StopInterval{}
	open := false
	first, last := 0, 0

	emit := func() {
		arrival := samples[first].Timestamp
		departure := samples[last].Timestamp
		duration := departure.Sub(arrival).Minutes()
		if duration < minDurationMinutes {
			return
		}
		stops = append(stops, types.StopInterval{
			Location:        centroid(samples[first : last+1]),
			ArrivalTime:     arrival,
			DepartureTime:   departure,
			DurationMinutes: duration,
		})
	}

	for i := 1; i < len(samples); i++ {
		if isStationary(samples[i-1], samples[i]) {
			if !open {
				open = true
				first = i - 1
			}
			last = i
			continue
		}

		if open {
			emit()
			open = false
		}
	}
	if open {
		emit()
	}

	return stops
}

func centroid(samples []types.GPSSample) types.Position2D {
	var latitude, longitude float64
	for _, sample := range samples {
		latitude += sample.Latitude
		longitude += sample.Longitude
	}
	n := float64(len(samples))
	return types.Position2D{Latitude: latitude / n, Longitude: longitude / n}
}
