package spatial

import (
	"context"
	"fmt"

	"github.com/daniil11ru/geotrack/cli/tracker/types"
	"gorm.io/gorm"
)

const probeQuery = "SELECT ST_Distance(ST_MakePoint(0, 0), ST_MakePoint(0, 0))"

var indexStatements = []string{
	"CREATE INDEX IF NOT EXISTS idx_locations_geom ON locations USING GIST (geom)",
	"CREATE INDEX IF NOT EXISTS idx_locations_geography ON locations USING GIST ((geom::geography))",
	"CREATE INDEX IF NOT EXISTS idx_gps_samples_geom ON gps_samples USING GIST (geom)",
}

// Probe проверяет наличие пространственного расширения в базе
func Probe(ctx context.Context, db *gorm.DB) (types.Capability, error) {
	var distance float64
	if err := db.WithContext(ctx).Raw(probeQuery).Scan(&distance).Error; err != nil {
		return types.CapabilityFallback, fmt.Errorf("пространственные функции недоступны: %w", err)
	}
	return types.CapabilityNative, nil
}

// EnsureIndexes создаёт пространственные индексы, если их ещё нет
func EnsureIndexes(ctx context.Context, db *gorm.DB) error {
	for _, statement := range indexStatements {
		if err := db.WithContext(ctx).Exec(statement).Error; err != nil {
			return fmt.Errorf("не удалось создать пространственный индекс: %w", err)
		}
	}
	return nil
}
