package spatial

import (
	"context"

	"github.com/daniil11ru/geotrack/cli/tracker/dto/db/in/filter"
	"github.com/daniil11ru/geotrack/cli/tracker/types"
)

// Strategy способ выполнения пространственных запросов. Входные данные уже проверены индексом.
type Strategy interface {
	WithinRadius(ctx context.Context, latitude, longitude, radiusMeters float64, locationType *string) ([]types.LocationDistance, error)
	Nearest(ctx context.Context, latitude, longitude float64, limit int, maxDistanceMeters *float64) ([]types.LocationDistance, error)
	InBoundingBox(ctx context.Context, box types.BoundingBox, locationType *string) ([]types.LocationRecord, error)
	Distance(ctx context.Context, fromLatitude, fromLongitude, toLatitude, toLongitude float64) (float64, error)
}

// LocationSource источник активных локаций для запасной стратегии
type LocationSource interface {
	GetLocations(ctx context.Context, filter filter.Locations) ([]types.LocationRecord, error)
}
