package domain

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/daniil11ru/geotrack/cli/tracker/dto/db/in/filter"
	"github.com/daniil11ru/geotrack/cli/tracker/repository"
	"github.com/daniil11ru/geotrack/cli/tracker/types"
	"github.com/google/uuid"
)

const dayLayout = "2006-01-02"

type CollectStatistics struct {
	Samples repository.Samples
}

func (s *CollectStatistics) TripStatistics(ctx context.Context, tripID uuid.UUID) (types.TripStatistics, error) {
	samples, err := s.Samples.GetSamples(ctx, filter.Samples{TripID: &tripID})
	if err != nil {
		return types.TripStatistics{}, fmt.Errorf("не удалось получить отметки поездки %s: %w", tripID, err)
	}
	sortByTimestamp(samples)

	return tripStatistics(samples), nil
}

func tripStatistics(samples []types.GPSSample) types.TripStatistics {
	if len(samples) == 0 {
		return types.TripStatistics{}
	}

	distance := pathLengthMeters(samples)
	duration := durationMinutes(samples)
	average, maximum := speeds(samples, distance)

	stops := SegmentStops(samples, DefaultMinStopMinutes)
	stopMinutes := 0.0
	for _, stop := range stops {
		stopMinutes += stop.DurationMinutes
	}

	return types.TripStatistics{
		TotalDistanceMeters: types.Round(distance, 1),
		DurationMinutes:     duration,
		AverageSpeedKmh:     types.Round(average, 1),
		MaxSpeedKmh:         types.Round(maximum, 1),
		PointCount:          len(samples),
		StopCount:           len(stops),
		EfficiencyScore:     efficiencyScore(duration, stopMinutes),
	}
}

// speeds средняя и максимальная скорость по известным значениям, а при их отсутствии
// по расстоянию и времени между соседними отметками
func speeds(samples []types.GPSSample, distance float64) (average, maximum float64) {
	known := 0
	for _, sample := range samples {
		if sample.SpeedKmh == nil {
			continue
		}
		known++
		average += *sample.SpeedKmh
		maximum = math.Max(maximum, *sample.SpeedKmh)
	}
	if known > 0 {
		return average / float64(known), maximum
	}

	for i := 1; i < len(samples); i++ {
		hours := samples[i].Timestamp.Sub(samples[i-1].Timestamp).Hours()
		if hours <= 0 {
			continue
		}
		segment := samples[i-1].Position().DistanceTo(samples[i].Position()) / 1000 / hours
		maximum = math.Max(maximum, segment)
	}

	hours := samples[len(samples)-1].Timestamp.Sub(samples[0].Timestamp).Hours()
	if hours > 0 {
		average = distance / 1000 / hours
	}
	return average, maximum
}

func efficiencyScore(durationMinutes int64, stopMinutes float64) int {
	if durationMinutes <= 0 {
		return 0
	}

	moving := float64(durationMinutes) - stopMinutes
	score := math.Round(100 * moving / float64(durationMinutes))
	return int(math.Max(0, math.Min(100, score)))
}

type tripTotals struct {
	id       uuid.UUID
	start    time.Time
	distance float64
	duration int64
}

// RangeSummary сводка по поездкам за интервал [from; to], при наличии userID только по его поездкам
func (s *CollectStatistics) RangeSummary(ctx context.Context, from, to time.Time, userID *uuid.UUID) (types.RangeSummary, error) {
	if err := types.ValidateTimeWindow(&types.TimeWindow{Start: from, End: to}); err != nil {
		return types.RangeSummary{}, err
	}

	samples, err := s.Samples.GetSamples(ctx, filter.Samples{UserID: userID, From: &from, To: &to})
	if err != nil {
		return types.RangeSummary{}, fmt.Errorf("не удалось получить отметки за период: %w", err)
	}

	return rangeSummary(samples), nil
}

func rangeSummary(samples []types.GPSSample) types.RangeSummary {
	summary := types.RangeSummary{MostVisitedLocations: []types.VisitedLocation{}}

	byTrip := map[uuid.UUID][]types.GPSSample{}
	var order []uuid.UUID
	speedSum, speedCount := 0.0, 0
	for _, sample := range samples {
		if _, ok := byTrip[sample.TripID]; !ok {
			order = append(order, sample.TripID)
		}
		byTrip[sample.TripID] = append(byTrip[sample.TripID], sample)

		if sample.SpeedKmh != nil {
			speedSum += *sample.SpeedKmh
			speedCount++
		}
	}

	days := map[string]float64{}
	var longest *tripTotals
	totalDistance := 0.0
	totalMinutes := int64(0)

	for _, tripID := range order {
		trip := byTrip[tripID]
		sortByTimestamp(trip)

		totals := tripTotals{id: tripID, start: trip[0].Timestamp, distance: pathLengthMeters(trip), duration: durationMinutes(trip)}
		totalDistance += totals.distance
		totalMinutes += totals.duration

		if longest == nil || totals.distance > longest.distance ||
			(totals.distance == longest.distance && totals.start.Before(longest.start)) {
			t := totals
			longest = &t
		}

		// Отрезок относится к дню своей более поздней отметки
		for i := 1; i < len(trip); i++ {
			day := trip[i].Timestamp.UTC().Format(dayLayout)
			days[day] += trip[i-1].Position().DistanceTo(trip[i].Position())
		}
	}

	summary.TotalTrips = len(order)
	summary.TotalDistanceKm = types.Round(totalDistance/1000, 1)
	summary.TotalDurationHours = types.Round(float64(totalMinutes)/60, 2)
	if speedCount > 0 {
		summary.AverageSpeedKmh = types.Round(speedSum/float64(speedCount), 1)
	}
	if longest != nil {
		summary.LongestTrip = &types.LongestTrip{
			TripID:          longest.id,
			DistanceKm:      types.Round(longest.distance/1000, 1),
			DurationMinutes: longest.duration,
		}
	}
	summary.MostProductiveDay = mostProductiveDay(days)

	// TODO: кластеризовать стоянки по реестру локаций и заполнить MostVisitedLocations
	summary.MostVisitedLocationsComputed = false

	return summary
}

func mostProductiveDay(days map[string]float64) *types.ProductiveDay {
	var best *types.ProductiveDay
	for day, distance := range days {
		if best == nil || distance > best.DistanceKm || (distance == best.DistanceKm && day < best.Date) {
			best = &types.ProductiveDay{Date: day, DistanceKm: distance}
		}
	}
	if best != nil {
		best.DistanceKm = types.Round(best.DistanceKm/1000, 1)
	}
	return best
}
