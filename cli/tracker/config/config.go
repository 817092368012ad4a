package config

/*
Описание конфигурационного файла
*/

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"gopkg.in/yaml.v2"
)

const (
	defaultApiPort            = 8080
	defaultMigrationsPath     = "file://migrations"
	defaultNearbyTTLSeconds   = 300
	defaultLocationTTLSeconds = 3600
	defaultToleranceMeters    = 10.0
	defaultMinStopMinutes     = 5.0
	defaultPublishBuffer      = 1024
)

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	Prefix   string `yaml:"prefix"`
}

type Cache struct {
	NearbyTTLSeconds   int `yaml:"nearby_ttl_seconds"`
	LocationTTLSeconds int `yaml:"location_ttl_seconds"`
}

type Route struct {
	SimplifyToleranceMeters float64 `yaml:"simplify_tolerance_meters"`
}

type Stops struct {
	MinDurationMinutes float64 `yaml:"min_duration_minutes"`
}

type Settings struct {
	LogLevel       string                       `yaml:"log_level"`
	LogFilePath    string                       `yaml:"log_file_path"`
	LogMaxAgeDays  int                          `yaml:"log_max_age_days"`
	ApiPort        int32                        `yaml:"api_port"`
	MigrationsPath string                       `yaml:"migrations_path"`
	Store          map[string]string            `yaml:"database"`
	Redis          Redis                        `yaml:"redis"`
	Cache          Cache                        `yaml:"cache"`
	Route          Route                        `yaml:"route"`
	Stops          Stops                        `yaml:"stops"`
	Publish        map[string]map[string]string `yaml:"publish"`
	PublishBuffer  int                          `yaml:"publish_buffer"`
	PublishWorkers int                          `yaml:"publish_workers"`
}

func (s *Settings) GetLogLevel() log.Level {
	var lvl log.Level

	switch s.LogLevel {
	case "DEBUG":
		lvl = log.DebugLevel
	case "INFO":
		lvl = log.InfoLevel
	case "WARN":
		lvl = log.WarnLevel
	case "ERROR":
		lvl = log.ErrorLevel
	default:
		lvl = log.InfoLevel
	}
	return lvl
}

func (s *Settings) GetNearbyTTL() time.Duration {
	return time.Duration(s.Cache.NearbyTTLSeconds) * time.Second
}

func (s *Settings) GetLocationTTL() time.Duration {
	return time.Duration(s.Cache.LocationTTLSeconds) * time.Second
}

// New читает конфиг из YAML. Переменные окружения (в том числе из файла .env) имеют приоритет.
func New(confPath string) (Settings, error) {
	c := Settings{}
	data, err := os.ReadFile(confPath)
	if err != nil {
		return c, err
	}
	err = yaml.Unmarshal(data, &c)
	if err != nil {
		return c, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warnf("Не удалось прочитать файл .env: %v", err)
	}
	c.applyEnv()
	c.applyDefaults()

	return c, nil
}

func (s *Settings) applyEnv() {
	if s.Store == nil {
		s.Store = map[string]string{}
	}

	if v := os.Getenv("TRACKER_DATABASE_DRIVER"); v != "" {
		s.Store["driver"] = v
	}
	if v := os.Getenv("TRACKER_DATABASE_HOST"); v != "" {
		s.Store["host"] = v
	}
	if v := os.Getenv("TRACKER_REDIS_ADDR"); v != "" {
		s.Redis.Addr = v
	}
	if v := os.Getenv("TRACKER_LOG_LEVEL"); v != "" {
		s.LogLevel = v
	}
	if v := os.Getenv("TRACKER_API_PORT"); v != "" {
		port, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			log.Errorf("Некорректное значение TRACKER_API_PORT (%s), используется значение из конфига", v)
		} else {
			s.ApiPort = int32(port)
		}
	}
}

func (s *Settings) applyDefaults() {
	if s.ApiPort == 0 {
		s.ApiPort = defaultApiPort
	}
	if s.ApiPort < 1 || s.ApiPort > 65535 {
		log.Errorf("Некорректный порт API (%d). Используется значение по умолчанию %d.", s.ApiPort, defaultApiPort)
		s.ApiPort = defaultApiPort
	}

	if s.MigrationsPath == "" {
		s.MigrationsPath = defaultMigrationsPath
	}

	if s.Cache.NearbyTTLSeconds <= 0 {
		s.Cache.NearbyTTLSeconds = defaultNearbyTTLSeconds
	}
	if s.Cache.LocationTTLSeconds <= 0 {
		s.Cache.LocationTTLSeconds = defaultLocationTTLSeconds
	}

	if s.Route.SimplifyToleranceMeters < 0 {
		log.Errorf("Допуск упрощения маршрута (%v) не может быть отрицательным. Используется значение по умолчанию %v.", s.Route.SimplifyToleranceMeters, defaultToleranceMeters)
		s.Route.SimplifyToleranceMeters = defaultToleranceMeters
	}
	if s.Route.SimplifyToleranceMeters == 0 {
		s.Route.SimplifyToleranceMeters = defaultToleranceMeters
	}

	if s.Stops.MinDurationMinutes <= 0 {
		s.Stops.MinDurationMinutes = defaultMinStopMinutes
	}

	if s.PublishBuffer <= 0 {
		s.PublishBuffer = defaultPublishBuffer
	}
	if s.Redis.Prefix == "" {
		s.Redis.Prefix = "geotrack:"
	}
}
