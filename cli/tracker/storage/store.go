package storage

import (
	"errors"
	"fmt"

	"github.com/daniil11ru/geotrack/cli/tracker/storage/store/nats"
	"github.com/daniil11ru/geotrack/cli/tracker/storage/store/redis"
	log "github.com/sirupsen/logrus"
)

var ErrInvalidStorage = errors.New("хранилища не заданы")
var ErrUnknownStorage = errors.New("хранилище не поддерживается")

type Store interface {
	Connector
	Saver
}

// Saver интерфейс для подключения внешних хранилищ
type Saver interface {
	// Save сохранение в хранилище
	Save(interface{ ToBytes() ([]byte, error) }) error
}

// Connector интерфейс для подключения внешних хранилищ
type Connector interface {
	// Init установка соединения с хранилищем
	Init(map[string]string) error

	// Close закрытие соединения с хранилищем
	Close() error
}

// Repository набор выходных хранилищ для записанных отметок
type Repository struct {
	storages []Saver
	closers  []Connector
}

// AddStore добавляет хранилище для сохранения данных
func (r *Repository) AddStore(s Saver) {
	r.storages = append(r.storages, s)
	if c, ok := s.(Connector); ok {
		r.closers = append(r.closers, c)
	}
}

// Save сохраняет данные во все установленные хранилища. Ошибка одного хранилища не мешает остальным.
func (r *Repository) Save(m interface{ ToBytes() ([]byte, error) }) error {
	var errs []error
	for _, store := range r.storages {
		if err := store.Save(m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LoadStorages загружает хранилища из структуры конфига
func (r *Repository) LoadStorages(storages map[string]map[string]string) error {
	if len(storages) == 0 {
		return ErrInvalidStorage
	}

	var db Store
	for store, params := range storages {
		switch store {
		case "nats":
			db = &nats.Connector{}
		case "redis":
			db = &redis.Connector{}
		default:
			return fmt.Errorf("%w: %s", ErrUnknownStorage, store)
		}

		if err := db.Init(params); err != nil {
			return err
		}

		log.Infof("Подключено внешнее хранилище отметок: %s", store)
		r.AddStore(db)
	}
	return nil
}

// Close закрывает соединения всех хранилищ
func (r *Repository) Close() error {
	var errs []error
	for _, c := range r.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewRepository создает пустой репозиторий
func NewRepository() *Repository {
	return &Repository{}
}
