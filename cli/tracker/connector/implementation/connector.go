package implementation

import (
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Settings struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Path     string
}

type Connector struct {
	connection *sql.DB
	gorm       *gorm.DB
	settings   Settings
}

func getOptionValue(optionName string, optionDefaultValue string, settings map[string]string) string {
	optionValue := settings[optionName]
	if optionValue == "" {
		log.Warnf("Ключ '%s' не найден в конфигурации хранилища. Используется значение по умолчанию '%s'.", optionName, optionDefaultValue)
		optionValue = optionDefaultValue
	}

	return optionValue
}

func (c *Connector) FillSettings(settings map[string]string) {
	c.settings.Driver = getOptionValue("driver", DriverPostgres, settings)
	if c.settings.Driver == DriverSQLite {
		c.settings.Path = getOptionValue("path", "data/tracker.db", settings)
		return
	}

	c.settings.Host = getOptionValue("host", "localhost", settings)
	c.settings.Port = getOptionValue("port", "5432", settings)
	c.settings.User = getOptionValue("user", "postgres", settings)
	c.settings.Password = getOptionValue("password", "postgres", settings)
	c.settings.Database = getOptionValue("database", "geotrack", settings)
	c.settings.SSLMode = getOptionValue("sslmode", "disable", settings)
}

func (c *Connector) Connect(settings map[string]string) error {
	var err error
	if settings == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}

	c.FillSettings(settings)

	gormConfig := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	switch c.settings.Driver {
	case DriverPostgres:
		connStr := fmt.Sprintf("dbname=%s host=%s port=%s user=%s password=%s sslmode=%s",
			c.settings.Database, c.settings.Host, c.settings.Port, c.settings.User, c.settings.Password, c.settings.SSLMode)

		if c.connection, err = sql.Open("postgres", connStr); err != nil {
			return fmt.Errorf("ошибка подключения к PostgreSQL: %v", err)
		}
		if err = c.connection.Ping(); err != nil {
			return fmt.Errorf("PostgreSQL недоступен: %v", err)
		}

		c.gorm, err = gorm.Open(postgres.New(postgres.Config{Conn: c.connection}), gormConfig)
		if err != nil {
			return fmt.Errorf("ошибка инициализации ORM поверх PostgreSQL: %v", err)
		}
	case DriverSQLite:
		if dir := filepath.Dir(c.settings.Path); dir != "." {
			if err = os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("не удалось создать директорию для базы данных: %v", err)
			}
		}

		c.gorm, err = gorm.Open(sqlite.Open(c.settings.Path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"), gormConfig)
		if err != nil {
			return fmt.Errorf("ошибка подключения к SQLite: %v", err)
		}
		if c.connection, err = c.gorm.DB(); err != nil {
			return fmt.Errorf("ошибка получения соединения SQLite: %v", err)
		}
		// SQLite не допускает параллельных писателей
		c.connection.SetMaxOpenConns(1)
	default:
		return fmt.Errorf("неизвестный драйвер базы данных: %s", c.settings.Driver)
	}

	return nil
}

// DatabaseURL собирает адрес PostgreSQL из итоговых настроек, включая значения по умолчанию
func (c *Connector) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.settings.User, c.settings.Password),
		Host:     net.JoinHostPort(c.settings.Host, c.settings.Port),
		Path:     "/" + c.settings.Database,
		RawQuery: url.Values{"sslmode": {c.settings.SSLMode}}.Encode(),
	}
	return u.String()
}

func (c *Connector) GetConnection() *sql.DB {
	return c.connection
}

func (c *Connector) GetGorm() *gorm.DB {
	return c.gorm
}

func (c *Connector) Driver() string {
	return c.settings.Driver
}

func (c *Connector) Close() error {
	if c.connection == nil {
		return nil
	}
	return c.connection.Close()
}
