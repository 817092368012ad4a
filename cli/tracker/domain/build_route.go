package domain

import (
	"context"
	"fmt"
	"math"

	"github.com/daniil11ru/geotrack/cli/tracker/dto/db/in/filter"
	"github.com/daniil11ru/geotrack/cli/tracker/repository"
	"github.com/daniil11ru/geotrack/cli/tracker/types"
	"github.com/daniil11ru/geotrack/cli/tracker/util"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const DefaultSimplifyToleranceMeters = 10.0

type BuildRoute struct {
	Samples repository.Samples

	// ToleranceMeters допуск упрощения, если в запросе он не задан
	ToleranceMeters float64
}

// tolerance допуск из запроса, а если он не задан, то из настроек сервиса
func (s *BuildRoute) tolerance(requested *float64) float64 {
	if requested != nil {
		return *requested
	}
	if s.ToleranceMeters > 0 {
		return s.ToleranceMeters
	}
	return DefaultSimplifyToleranceMeters
}

// Run восстанавливает маршрут поездки. Расстояние считается по всем точкам, упрощается только выдача.
// Нулевой допуск в запросе допустим и оставляет все точки, не лежащие строго на хорде.
func (s *BuildRoute) Run(ctx context.Context, tripID uuid.UUID, window *types.TimeWindow, simplify bool, toleranceMeters *float64) (types.RouteSummary, error) {
	if err := types.ValidateTimeWindow(window); err != nil {
		return types.RouteSummary{}, err
	}
	if toleranceMeters != nil && (math.IsNaN(*toleranceMeters) || *toleranceMeters < 0) {
		return types.RouteSummary{}, types.NewValidationError("tolerance", "значение должно быть неотрицательным")
	}

	f := filter.Samples{TripID: &tripID}
	if window != nil {
		f.From = &window.Start
		f.To = &window.End
	}

	samples, err := s.Samples.GetSamples(ctx, f)
	if err != nil {
		return types.RouteSummary{}, fmt.Errorf("не удалось получить отметки поездки %s: %w", tripID, err)
	}
	sortByTimestamp(samples)

	points := util.Map(samples, func(sample types.GPSSample) types.RoutePoint {
		return types.RoutePoint{
			Latitude:  sample.Latitude,
			Longitude: sample.Longitude,
			Timestamp: sample.Timestamp,
			SpeedKmh:  sample.SpeedKmh,
		}
	})

	summary := types.RouteSummary{
		TripID:          tripID,
		Points:          points,
		TotalDistanceKm: types.Round(pathLengthMeters(samples)/1000, 1),
		DurationMinutes: durationMinutes(samples),
		IsSimplified:    simplify,
	}

	if simplify {
		summary.Points = GetSimplifiedTrack(points, s.tolerance(toleranceMeters))
		log.Debugf("Маршрут поездки %s упрощён с %d до %d точек", tripID, len(points), len(summary.Points))
	}

	return summary, nil
}
