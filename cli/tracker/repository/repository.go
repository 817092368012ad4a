package repository

import (
	"context"

	"github.com/daniil11ru/geotrack/cli/tracker/dto/db/in/filter"
	"github.com/daniil11ru/geotrack/cli/tracker/types"
	"github.com/google/uuid"
)

// Locations реестр локаций, ядро только читает из него
type Locations interface {
	GetLocation(ctx context.Context, id uuid.UUID) (types.LocationRecord, error)
	GetActiveLocations(ctx context.Context, ids []uuid.UUID) ([]types.LocationRecord, error)
}

// LocationWriter запись в реестр локаций, используется сквозным кэшем
type LocationWriter interface {
	SaveLocation(ctx context.Context, location types.LocationRecord) (types.LocationRecord, error)
	DeleteLocation(ctx context.Context, id uuid.UUID) error
}

type Trips interface {
	GetTripLocations(ctx context.Context, tripID uuid.UUID) ([]types.TripLocation, error)
}

type Samples interface {
	AddSample(ctx context.Context, sample types.GPSSample) (types.GPSSample, error)
	AddSamples(ctx context.Context, samples []types.GPSSample) ([]types.GPSSample, error)
	GetSamples(ctx context.Context, filter filter.Samples) ([]types.GPSSample, error)
	CountDuplicateTimestamps(ctx context.Context, tripID uuid.UUID) (int64, error)
}
