package spatial

import (
	"context"

	"github.com/daniil11ru/geotrack/cli/tracker/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	locationColumns = "id, name, latitude, longitude, offset_radius_meters, type, is_active"
	queryPoint      = "ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography"
)

type locationDistanceRow struct {
	ID                 string
	Name               string
	Latitude           float64
	Longitude          float64
	OffsetRadiusMeters float64
	Type               string
	IsActive           bool
	DistanceMeters     float64
}

func (r locationDistanceRow) toRecord() types.LocationRecord {
	id, _ := uuid.Parse(r.ID)
	return types.LocationRecord{
		ID:                 id,
		Name:               r.Name,
		Latitude:           r.Latitude,
		Longitude:          r.Longitude,
		OffsetRadiusMeters: r.OffsetRadiusMeters,
		Type:               r.Type,
		IsActive:           r.IsActive,
		Geometry:           types.PointEWKT(r.Latitude, r.Longitude),
	}
}

func (r locationDistanceRow) toLocationDistance() types.LocationDistance {
	return types.LocationDistance{LocationRecord: r.toRecord(), DistanceMeters: r.DistanceMeters}
}

// Native запросы средствами PostGIS. Расстояния считаются на сфере (use_spheroid = false),
// чтобы совпадать с формулой гаверсинусов запасной стратегии.
type Native struct {
	db *gorm.DB
}

func NewNative(db *gorm.DB) *Native {
	return &Native{db: db}
}

func (n *Native) withDistance(ctx context.Context, latitude, longitude float64) *gorm.DB {
	return n.db.WithContext(ctx).
		Table("locations").
		Select(locationColumns+", ST_Distance(geom::geography, "+queryPoint+", false) AS distance_meters", longitude, latitude).
		Where("is_active = ?", true)
}

func (n *Native) WithinRadius(ctx context.Context, latitude, longitude, radiusMeters float64, locationType *string) ([]types.LocationDistance, error) {
	q := n.withDistance(ctx, latitude, longitude).
		Where("ST_DWithin(geom::geography, "+queryPoint+", ?, false)", longitude, latitude, radiusMeters)
	if locationType != nil {
		q = q.Where("type = ?", *locationType)
	}

	var rows []locationDistanceRow
	if err := q.Order("distance_meters, id").Scan(&rows).Error; err != nil {
		return nil, types.NewStorageError("find_within_radius", err)
	}

	return toLocationDistances(rows), nil
}

func (n *Native) Nearest(ctx context.Context, latitude, longitude float64, limit int, maxDistanceMeters *float64) ([]types.LocationDistance, error) {
	q := n.withDistance(ctx, latitude, longitude)
	if maxDistanceMeters != nil {
		q = q.Where("ST_DWithin(geom::geography, "+queryPoint+", ?, false)", longitude, latitude, *maxDistanceMeters)
	}

	var rows []locationDistanceRow
	if err := q.Order("distance_meters, id").Limit(limit).Scan(&rows).Error; err != nil {
		return nil, types.NewStorageError("find_nearest", err)
	}

	return toLocationDistances(rows), nil
}

func (n *Native) InBoundingBox(ctx context.Context, box types.BoundingBox, locationType *string) ([]types.LocationRecord, error) {
	q := n.db.WithContext(ctx).
		Table("locations").
		Select(locationColumns).
		Where("is_active = ?", true).
		Where("geom && ST_MakeEnvelope(?, ?, ?, ?, 4326)", box.MinLongitude, box.MinLatitude, box.MaxLongitude, box.MaxLatitude)
	if locationType != nil {
		q = q.Where("type = ?", *locationType)
	}

	var rows []locationDistanceRow
	if err := q.Order("id").Scan(&rows).Error; err != nil {
		return nil, types.NewStorageError("find_in_bounding_box", err)
	}

	records := make([]types.LocationRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toRecord())
	}
	return records, nil
}

func (n *Native) Distance(ctx context.Context, fromLatitude, fromLongitude, toLatitude, toLongitude float64) (float64, error) {
	var distance float64
	err := n.db.WithContext(ctx).
		Raw("SELECT ST_Distance("+queryPoint+", "+queryPoint+", false)", fromLongitude, fromLatitude, toLongitude, toLatitude).
		Scan(&distance).Error
	if err != nil {
		return 0, types.NewStorageError("calculate_distance", err)
	}
	return distance, nil
}

func toLocationDistances(rows []locationDistanceRow) []types.LocationDistance {
	result := make([]types.LocationDistance, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toLocationDistance())
	}
	return result
}
