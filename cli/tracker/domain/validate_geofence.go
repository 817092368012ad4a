package domain

import (
	"context"
	"fmt"

	"github.com/daniil11ru/geotrack/cli/tracker/repository"
	"github.com/daniil11ru/geotrack/cli/tracker/types"
	"github.com/daniil11ru/geotrack/cli/tracker/util"
	"github.com/google/uuid"
)

type DistanceSource interface {
	Distance(ctx context.Context, fromLatitude, fromLongitude, toLatitude, toLongitude float64) (float64, error)
}

// ValidateGeofence проверка попадания точки в допустимый радиус локаций
type ValidateGeofence struct {
	Locations repository.Locations
	Trips     repository.Trips
	Distance  DistanceSource
}

func (s *ValidateGeofence) Run(ctx context.Context, locationID uuid.UUID, latitude, longitude float64) (types.GeofenceResult, error) {
	if err := types.ValidateCoordinates(latitude, longitude); err != nil {
		return types.GeofenceResult{}, err
	}

	return s.validate(ctx, locationID, latitude, longitude)
}

func (s *ValidateGeofence) validate(ctx context.Context, locationID uuid.UUID, latitude, longitude float64) (types.GeofenceResult, error) {
	location, err := s.Locations.GetLocation(ctx, locationID)
	if err != nil {
		return types.GeofenceResult{}, err
	}

	distance, err := s.Distance.Distance(ctx, location.Latitude, location.Longitude, latitude, longitude)
	if err != nil {
		return types.GeofenceResult{}, fmt.Errorf("не удалось вычислить расстояние до локации %s: %w", locationID, err)
	}

	return types.GeofenceResult{
		LocationID:         location.ID,
		DistanceMeters:     distance,
		IsWithinRadius:     distance <= location.OffsetRadiusMeters,
		OffsetRadiusMeters: location.OffsetRadiusMeters,
	}, nil
}

// RunBatch проверяет каждую локацию независимо. Ближайшей считается первая по порядку
// из локаций с минимальным расстоянием.
func (s *ValidateGeofence) RunBatch(ctx context.Context, locationIDs []uuid.UUID, latitude, longitude float64) (types.BatchGeofenceResult, error) {
	if len(locationIDs) == 0 {
		return types.BatchGeofenceResult{}, types.NewValidationError("location_ids", "список локаций не может быть пустым")
	}
	if err := types.ValidateCoordinates(latitude, longitude); err != nil {
		return types.BatchGeofenceResult{}, err
	}

	result := types.BatchGeofenceResult{
		Results:      make([]types.GeofenceResult, 0, len(locationIDs)),
		WithinRadius: []uuid.UUID{},
	}

	closest := -1
	for _, id := range locationIDs {
		r, err := s.validate(ctx, id, latitude, longitude)
		if err != nil {
			return types.BatchGeofenceResult{}, err
		}

		result.Results = append(result.Results, r)
		if r.IsWithinRadius {
			result.WithinRadius = append(result.WithinRadius, r.LocationID)
		}
		if closest < 0 || r.DistanceMeters < result.Results[closest].DistanceMeters {
			closest = len(result.Results) - 1
		}
	}

	c := result.Results[closest]
	result.Closest = &c
	return result, nil
}

// RunForTrip проверяет точку по упорядоченному списку локаций поездки
func (s *ValidateGeofence) RunForTrip(ctx context.Context, tripID uuid.UUID, latitude, longitude float64) (types.BatchGeofenceResult, error) {
	tripLocations, err := s.Trips.GetTripLocations(ctx, tripID)
	if err != nil {
		return types.BatchGeofenceResult{}, fmt.Errorf("не удалось получить локации поездки %s: %w", tripID, err)
	}
	if len(tripLocations) == 0 {
		return types.BatchGeofenceResult{}, &types.NotFoundError{Entity: "Поездка", ID: tripID.String()}
	}

	ids := util.Map(tripLocations, func(tl types.TripLocation) uuid.UUID { return tl.LocationID })
	return s.RunBatch(ctx, ids, latitude, longitude)
}
