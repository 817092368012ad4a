package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss ключ отсутствует или срок его хранения истёк
var ErrMiss = errors.New("значение отсутствует в кэше")

// Store хранилище кэша. Значения сериализуются в JSON, реализации безопасны для конкурентного доступа.
type Store interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
