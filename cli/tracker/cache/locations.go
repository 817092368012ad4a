package cache

import (
	"context"
	"errors"
	"time"

	"github.com/daniil11ru/geotrack/cli/tracker/repository"
	"github.com/daniil11ru/geotrack/cli/tracker/types"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const DefaultLocationTTL = time.Hour

type LocationRegistry interface {
	repository.Locations
	repository.LocationWriter
}

// Locations кэш записей реестра локаций по ID со сквозной записью
type Locations struct {
	store    Store
	registry LocationRegistry
	ttl      time.Duration
}

func NewLocations(store Store, registry LocationRegistry, ttl time.Duration) *Locations {
	if ttl <= 0 {
		ttl = DefaultLocationTTL
	}
	return &Locations{store: store, registry: registry, ttl: ttl}
}

func locationKey(id uuid.UUID) string {
	return "location:" + id.String()
}

func (l *Locations) GetLocation(ctx context.Context, id uuid.UUID) (types.LocationRecord, error) {
	key := locationKey(id)

	var cached types.LocationRecord
	err := l.store.Get(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrMiss) {
		log.WithField("err", err).Warnf("Не удалось прочитать кэш по ключу %s", key)
	}

	location, err := l.registry.GetLocation(ctx, id)
	if err != nil {
		return types.LocationRecord{}, err
	}

	if err := l.store.Set(ctx, key, location, l.ttl); err != nil {
		log.WithField("err", err).Warnf("Не удалось записать кэш по ключу %s", key)
	}
	return location, nil
}

func (l *Locations) GetActiveLocations(ctx context.Context, ids []uuid.UUID) ([]types.LocationRecord, error) {
	return l.registry.GetActiveLocations(ctx, ids)
}

func (l *Locations) SaveLocation(ctx context.Context, location types.LocationRecord) (types.LocationRecord, error) {
	saved, err := l.registry.SaveLocation(ctx, location)
	if err != nil {
		return types.LocationRecord{}, err
	}

	l.invalidate(ctx, saved.ID)
	return saved, nil
}

func (l *Locations) DeleteLocation(ctx context.Context, id uuid.UUID) error {
	err := l.registry.DeleteLocation(ctx, id)
	l.invalidate(ctx, id)
	return err
}

func (l *Locations) invalidate(ctx context.Context, id uuid.UUID) {
	if err := l.store.Delete(ctx, locationKey(id)); err != nil {
		log.WithField("err", err).Warnf("Не удалось удалить ключ %s из кэша", locationKey(id))
	}
}
