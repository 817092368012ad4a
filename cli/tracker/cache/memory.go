package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory кэш в памяти процесса
type Memory struct {
	items *gocache.Cache
}

func NewMemory(cleanupInterval time.Duration) *Memory {
	return &Memory{items: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func (m *Memory) Get(_ context.Context, key string, dest interface{}) error {
	value, ok := m.items.Get(key)
	if !ok {
		return ErrMiss
	}

	data, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("неожиданный тип значения в кэше по ключу %s", key)
	}
	return json.Unmarshal(data, dest)
}

func (m *Memory) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("не удалось сериализовать значение для кэша: %w", err)
	}

	m.items.Set(key, data, ttl)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.items.Delete(key)
	return nil
}
