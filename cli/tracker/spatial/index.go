package spatial

import (
	"context"

	"github.com/daniil11ru/geotrack/cli/tracker/types"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Index пространственный индекс локаций. Стратегия выбирается один раз при создании и дальше не меняется.
type Index struct {
	capability types.Capability
	strategy   Strategy
}

// New определяет возможности базы и выбирает стратегию. Любая ошибка проверки или
// создания индексов переводит индекс в запасной режим с одним предупреждением в логе.
func New(ctx context.Context, db *gorm.DB, locations LocationSource) *Index {
	capability, err := Probe(ctx, db)
	if err == nil {
		if err = EnsureIndexes(ctx, db); err != nil {
			capability = types.CapabilityFallback
		}
	}

	if capability == types.CapabilityNative {
		log.Info("Пространственные запросы выполняются средствами PostGIS")
		return NewWithStrategy(capability, NewNative(db))
	}

	log.WithField("err", err).Warn("PostGIS недоступен, пространственные запросы переведены в запасной режим")
	return NewWithStrategy(types.CapabilityFallback, NewFallback(locations))
}

func NewWithStrategy(capability types.Capability, strategy Strategy) *Index {
	return &Index{capability: capability, strategy: strategy}
}

func (i *Index) Capability() types.Capability {
	return i.capability
}

func (i *Index) WithinRadius(ctx context.Context, latitude, longitude, radiusMeters float64, locationType *string) ([]types.LocationDistance, error) {
	if err := types.ValidateCoordinates(latitude, longitude); err != nil {
		return nil, err
	}
	if err := types.ValidateRadius("radius", radiusMeters); err != nil {
		return nil, err
	}

	return i.strategy.WithinRadius(ctx, latitude, longitude, radiusMeters, locationType)
}

func (i *Index) Nearest(ctx context.Context, latitude, longitude float64, limit int, maxDistanceMeters *float64) ([]types.LocationDistance, error) {
	if err := types.ValidateCoordinates(latitude, longitude); err != nil {
		return nil, err
	}
	if err := types.ValidateLimit(limit); err != nil {
		return nil, err
	}
	if maxDistanceMeters != nil {
		if err := types.ValidateRadius("max_distance", *maxDistanceMeters); err != nil {
			return nil, err
		}
	}

	return i.strategy.Nearest(ctx, latitude, longitude, limit, maxDistanceMeters)
}

func (i *Index) InBoundingBox(ctx context.Context, box types.BoundingBox, locationType *string) ([]types.LocationRecord, error) {
	if err := types.ValidateBoundingBox(box); err != nil {
		return nil, err
	}

	return i.strategy.InBoundingBox(ctx, box, locationType)
}

func (i *Index) Distance(ctx context.Context, fromLatitude, fromLongitude, toLatitude, toLongitude float64) (float64, error) {
	if err := types.ValidateCoordinates(fromLatitude, fromLongitude); err != nil {
		return 0, err
	}
	if err := types.ValidateCoordinates(toLatitude, toLongitude); err != nil {
		return 0, err
	}

	return i.strategy.Distance(ctx, fromLatitude, fromLongitude, toLatitude, toLongitude)
}
