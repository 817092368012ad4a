package cache

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/daniil11ru/geotrack/cli/tracker/types"
	log "github.com/sirupsen/logrus"
)

const DefaultNearbyTTL = 5 * time.Minute

type RadiusSearcher interface {
	WithinRadius(ctx context.Context, latitude, longitude, radiusMeters float64, locationType *string) ([]types.LocationDistance, error)
}

// Spatial кэширует поиск локаций в радиусе. Записи не инвалидируются,
// изменения реестра становятся видны по истечении TTL.
type Spatial struct {
	store Store
	index RadiusSearcher
	ttl   time.Duration
}

func NewSpatial(store Store, index RadiusSearcher, ttl time.Duration) *Spatial {
	if ttl <= 0 {
		ttl = DefaultNearbyTTL
	}
	return &Spatial{store: store, index: index, ttl: ttl}
}

func nearbyKey(latitude, longitude, radiusMeters float64, locationType *string) string {
	t := ""
	if locationType != nil {
		t = *locationType
	}

	return strings.Join([]string{
		"nearby",
		strconv.FormatFloat(latitude, 'f', -1, 64),
		strconv.FormatFloat(longitude, 'f', -1, 64),
		strconv.FormatFloat(radiusMeters, 'f', -1, 64),
		t,
	}, ":")
}

func (s *Spatial) WithinRadius(ctx context.Context, latitude, longitude, radiusMeters float64, locationType *string) ([]types.LocationDistance, error) {
	key := nearbyKey(latitude, longitude, radiusMeters, locationType)

	var cached []types.LocationDistance
	err := s.store.Get(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrMiss) {
		log.WithField("err", err).Warnf("Не удалось прочитать кэш по ключу %s", key)
	}

	result, err := s.index.WithinRadius(ctx, latitude, longitude, radiusMeters, locationType)
	if err != nil {
		return nil, err
	}

	if err := s.store.Set(ctx, key, result, s.ttl); err != nil {
		log.WithField("err", err).Warnf("Не удалось записать кэш по ключу %s", key)
	}
	return result, nil
}
