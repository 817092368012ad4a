package connector

import (
	"database/sql"

	"gorm.io/gorm"
)

type Connector interface {
	GetConnection() *sql.DB
	GetGorm() *gorm.DB
	Driver() string
	Connect(map[string]string) error
	Close() error
}
