package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/daniil11ru/geotrack/cli/tracker/api"
	"github.com/daniil11ru/geotrack/cli/tracker/cache"
	"github.com/daniil11ru/geotrack/cli/tracker/config"
	"github.com/daniil11ru/geotrack/cli/tracker/connector/implementation"
	"github.com/daniil11ru/geotrack/cli/tracker/domain"
	"github.com/daniil11ru/geotrack/cli/tracker/source"
	"github.com/daniil11ru/geotrack/cli/tracker/spatial"
	"github.com/daniil11ru/geotrack/cli/tracker/storage"
	"github.com/fatih/color"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"

	"github.com/rifflock/lfshook"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

const cacheCleanupInterval = 10 * time.Minute

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Fatal(err)
	}
}

func newRootCommand() *cobra.Command {
	var configFilePath string

	root := &cobra.Command{
		Use:           "tracker",
		Short:         "Сервис приёма GPS-отметок и анализа маршрутов",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configFilePath)
		},
	}
	root.PersistentFlags().StringVarP(&configFilePath, "config", "c", "", "путь до конфига")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Запуск API",
			RunE: func(cmd *cobra.Command, args []string) error {
				return serve(cmd.Context(), configFilePath)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Применение миграций базы данных",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigrate(configFilePath)
			},
		},
		&cobra.Command{
			Use:   "probe",
			Short: "Проверка поддержки пространственных функций базой данных",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runProbe(cmd.Context(), configFilePath, cmd.OutOrStdout())
			},
		},
	)

	return root
}

func getConfig(configFilePath string) (config.Settings, error) {
	if configFilePath == "" {
		return config.Settings{}, fmt.Errorf("не задан путь до конфига")
	}

	c, err := config.New(configFilePath)
	if err != nil {
		return c, fmt.Errorf("ошибка парсинга конфига: %w", err)
	}

	return c, nil
}

func configureLogging(config config.Settings) {
	log.SetLevel(config.GetLogLevel())

	consoleFmt := &log.TextFormatter{ForceColors: true, FullTimestamp: false}
	log.SetFormatter(consoleFmt)
	log.SetOutput(os.Stdout)

	if config.LogFilePath != "" {
		logDir := filepath.Dir(config.LogFilePath)
		if _, err := os.Stat(logDir); os.IsNotExist(err) {
			if err := os.MkdirAll(logDir, os.ModePerm); err != nil {
				log.Fatalf("Не получилось создать директорию для логов: %v", err)
			}
		}

		lumberjackLogger := &lumberjack.Logger{
			Filename:   config.LogFilePath,
			MaxSize:    100,
			MaxBackups: 366,
			MaxAge:     config.LogMaxAgeDays,
			Compress:   true,
		}

		fileFmt := &log.TextFormatter{DisableColors: true, FullTimestamp: true}
		hook := lfshook.NewHook(lfshook.WriterMap{
			log.PanicLevel: lumberjackLogger,
			log.FatalLevel: lumberjackLogger,
			log.ErrorLevel: lumberjackLogger,
			log.WarnLevel:  lumberjackLogger,
			log.InfoLevel:  lumberjackLogger,
			log.DebugLevel: lumberjackLogger,
			log.TraceLevel: lumberjackLogger,
		}, fileFmt)

		log.AddHook(hook)
	}
}

func applyMigrations(config config.Settings, connector *implementation.Connector) error {
	m, err := migrate.New(config.MigrationsPath, connector.DatabaseURL())
	if err != nil {
		return fmt.Errorf("ошибка инициализации миграций: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if err == migrate.ErrNoChange {
			log.Info("Нет новых миграций для применения")
			return nil
		}
		return fmt.Errorf("ошибка применения миграций: %w", err)
	}

	log.Info("Миграции успешно применены")
	return nil
}

// prepareSchema для PostgreSQL применяет миграции, для SQLite создаёт схему средствами ORM
func prepareSchema(config config.Settings, connector *implementation.Connector) error {
	if connector.Driver() == implementation.DriverPostgres {
		return applyMigrations(config, connector)
	}
	return source.NewDefault(connector.GetGorm()).AutoMigrate()
}

func connect(config config.Settings) (*implementation.Connector, error) {
	connector := &implementation.Connector{}
	if err := connector.Connect(config.Store); err != nil {
		return nil, fmt.Errorf("не удалось подключиться к базе данных: %w", err)
	}
	return connector, nil
}

func runMigrate(configFilePath string) error {
	config, err := getConfig(configFilePath)
	if err != nil {
		return err
	}
	configureLogging(config)

	connector, err := connect(config)
	if err != nil {
		return err
	}
	defer connector.Close()

	return prepareSchema(config, connector)
}

func runProbe(ctx context.Context, configFilePath string, out io.Writer) error {
	config, err := getConfig(configFilePath)
	if err != nil {
		return err
	}
	configureLogging(config)

	connector, err := connect(config)
	if err != nil {
		return err
	}
	defer connector.Close()

	capability, err := spatial.Probe(ctx, connector.GetGorm())
	if err != nil {
		fmt.Fprintf(out, "%s: %v\n", color.YellowString("fallback"), err)
		return nil
	}
	fmt.Fprintf(out, "%s\n", color.GreenString(string(capability)))
	return nil
}

// newCacheStore использует Redis, если он задан и отвечает, иначе кэш в памяти процесса
func newCacheStore(ctx context.Context, config config.Settings) (cache.Store, func()) {
	if config.Redis.Addr == "" {
		return cache.NewMemory(cacheCleanupInterval), func() {}
	}

	client := redis.NewClient(&redis.Options{Addr: config.Redis.Addr, Password: config.Redis.Password})
	if err := client.Ping(ctx).Err(); err != nil {
		log.WithField("err", err).Warnf("Redis %s недоступен, используется кэш в памяти", config.Redis.Addr)
		client.Close()
		return cache.NewMemory(cacheCleanupInterval), func() {}
	}

	log.Infof("Кэш хранится в Redis %s", config.Redis.Addr)
	return cache.NewRedis(client, config.Redis.Prefix), func() { client.Close() }
}

func serve(ctx context.Context, configFilePath string) error {
	config, err := getConfig(configFilePath)
	if err != nil {
		return err
	}
	configureLogging(config)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	connector, err := connect(config)
	if err != nil {
		return err
	}
	defer connector.Close()

	if err := prepareSchema(config, connector); err != nil {
		return err
	}

	src := source.NewDefault(connector.GetGorm())
	index := spatial.New(ctx, connector.GetGorm(), src)

	store, closeStore := newCacheStore(ctx, config)
	defer closeStore()
	registry := cache.NewLocations(store, src, config.GetLocationTTL())

	track := &domain.TrackPosition{Samples: src}
	if len(config.Publish) > 0 {
		repo := storage.NewRepository()
		if err := repo.LoadStorages(config.Publish); err != nil {
			return fmt.Errorf("не удалось подключить внешние хранилища: %w", err)
		}
		defer repo.Close()

		async := storage.NewAsyncRepository(repo, config.PublishBuffer, config.PublishWorkers)
		defer async.Close()
		track.Publisher = async
	}

	handler := &api.Handler{
		Track:          track,
		Geofence:       &domain.ValidateGeofence{Locations: registry, Trips: src, Distance: index},
		Route:          &domain.BuildRoute{Samples: src, ToleranceMeters: config.Route.SimplifyToleranceMeters},
		Stops:          &domain.DetectStops{Samples: src},
		Statistics:     &domain.CollectStatistics{Samples: src},
		Index:          index,
		Nearby:         cache.NewSpatial(store, index, config.GetNearbyTTL()),
		Registry:       registry,
		MinStopMinutes: config.Stops.MinDurationMinutes,
	}

	log.Infof("Запуск API на порту %d", config.ApiPort)
	return api.NewController(handler).Run(ctx, config.ApiPort)
}
