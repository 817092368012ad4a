package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/daniil11ru/geotrack/cli/tracker/dto/db/in/filter"
	"github.com/daniil11ru/geotrack/cli/tracker/types"
	"github.com/daniil11ru/geotrack/cli/tracker/util"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const insertBatchSize = 200

type locationRow struct {
	ID                 string  `gorm:"primaryKey;size:36"`
	Name               string  `gorm:"size:255;not null"`
	Latitude           float64 `gorm:"not null"`
	Longitude          float64 `gorm:"not null"`
	OffsetRadiusMeters float64 `gorm:"not null"`
	Type               string  `gorm:"size:64;index"`
	IsActive           bool    `gorm:"not null;index"`
	Geom               string
}

func (locationRow) TableName() string { return "locations" }

// BeforeSave геометрия всегда пересчитывается из координат
func (r *locationRow) BeforeSave(tx *gorm.DB) error {
	r.Geom = types.PointEWKT(r.Latitude, r.Longitude)
	return nil
}

func (r locationRow) toRecord() types.LocationRecord {
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

type sampleRow struct {
	ID             string    `gorm:"primaryKey;size:36"`
	TripID         string    `gorm:"size:36;not null;index:idx_gps_samples_trip_time,priority:1"`
	UserID         string    `gorm:"size:36;not null;index"`
	Latitude       float64   `gorm:"not null"`
	Longitude      float64   `gorm:"not null"`
	RecordedAt     time.Time `gorm:"not null;index:idx_gps_samples_trip_time,priority:2"`
	SpeedKmh       *float64
	HeadingDeg     *float64
	AccuracyMeters *float64
	Geom           string
}

func (sampleRow) TableName() string { return "gps_samples" }

func (r *sampleRow) BeforeSave(tx *gorm.DB) error {
	r.Geom = types.PointEWKT(r.Latitude, r.Longitude)
	return nil
}

func newSampleRow(sample types.GPSSample) sampleRow {
	return sampleRow{
		ID:             sample.ID.String(),
		TripID:         sample.TripID.String(),
		UserID:         sample.UserID.String(),
		Latitude:       sample.Latitude,
		Longitude:      sample.Longitude,
		RecordedAt:     sample.Timestamp.UTC(),
		SpeedKmh:       sample.SpeedKmh,
		HeadingDeg:     sample.HeadingDeg,
		AccuracyMeters: sample.AccuracyMeters,
	}
}

func (r sampleRow) toSample() types.GPSSample {
	id, _ := uuid.Parse(r.ID)
	tripID, _ := uuid.Parse(r.TripID)
	userID, _ := uuid.Parse(r.UserID)
	return types.GPSSample{
		ID:             id,
		TripID:         tripID,
		UserID:         userID,
		Latitude:       r.Latitude,
		Longitude:      r.Longitude,
		Timestamp:      r.RecordedAt.UTC(),
		SpeedKmh:       r.SpeedKmh,
		HeadingDeg:     r.HeadingDeg,
		AccuracyMeters: r.AccuracyMeters,
		Geometry:       types.PointEWKT(r.Latitude, r.Longitude),
	}
}

type tripLocationRow struct {
	TripID     string `gorm:"primaryKey;size:36"`
	LocationID string `gorm:"primaryKey;size:36"`
	Sequence   int    `gorm:"not null"`
}

func (tripLocationRow) TableName() string { return "trip_locations" }

// Default хранилище локаций, поездок и GPS-отметок поверх gorm
type Default struct {
	db *gorm.DB
}

func NewDefault(db *gorm.DB) *Default {
	return &Default{db: db}
}

func (s *Default) DB() *gorm.DB {
	return s.db
}

// AutoMigrate создаёт схему средствами ORM. Для PostgreSQL схема ведётся миграциями.
func (s *Default) AutoMigrate() error {
	if err := s.db.AutoMigrate(&locationRow{}, &sampleRow{}, &tripLocationRow{}); err != nil {
		return fmt.Errorf("не удалось создать схему базы данных: %w", err)
	}
	return nil
}

func (s *Default) SaveLocation(ctx context.Context, location types.LocationRecord) (types.LocationRecord, error) {
	if location.ID == uuid.Nil {
		location.ID = uuid.New()
	}

	row := locationRow{
		ID:                 location.ID.String(),
		Name:               location.Name,
		Latitude:           location.Latitude,
		Longitude:          location.Longitude,
		OffsetRadiusMeters: location.OffsetRadiusMeters,
		Type:               location.Type,
		IsActive:           location.IsActive,
	}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return types.LocationRecord{}, types.NewStorageError("save_location", err)
	}

	return row.toRecord(), nil
}

func (s *Default) GetLocation(ctx context.Context, id uuid.UUID) (types.LocationRecord, error) {
	var row locationRow
	err := s.db.WithContext(ctx).Where("id = ?", id.String()).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.LocationRecord{}, &types.NotFoundError{Entity: "Локация", ID: id.String()}
	}
	if err != nil {
		return types.LocationRecord{}, types.NewStorageError("get_location", err)
	}

	return row.toRecord(), nil
}

func (s *Default) GetActiveLocations(ctx context.Context, ids []uuid.UUID) ([]types.LocationRecord, error) {
	if len(ids) == 0 {
		return []types.LocationRecord{}, nil
	}

	var rows []locationRow
	err := s.db.WithContext(ctx).
		Where("id IN ?", util.Map(ids, func(id uuid.UUID) string { return id.String() })).
		Where("is_active = ?", true).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, types.NewStorageError("get_active_locations", err)
	}

	return util.Map(rows, func(r locationRow) types.LocationRecord { return r.toRecord() }), nil
}

// GetLocations активные локации, при наличии рамки только попадающие в неё
func (s *Default) GetLocations(ctx context.Context, filter filter.Locations) ([]types.LocationRecord, error) {
	q := s.db.WithContext(ctx).Where("is_active = ?", true)

	if filter.Box != nil {
		q = q.Where("latitude BETWEEN ? AND ?", filter.Box.MinLatitude, filter.Box.MaxLatitude).
			Where("longitude BETWEEN ? AND ?", filter.Box.MinLongitude, filter.Box.MaxLongitude)
	}
	if filter.Type != nil {
		q = q.Where("type = ?", *filter.Type)
	}

	var rows []locationRow
	if err := q.Order("id").Find(&rows).Error; err != nil {
		return nil, types.NewStorageError("get_locations", err)
	}

	return util.Map(rows, func(r locationRow) types.LocationRecord { return r.toRecord() }), nil
}

func (s *Default) DeleteLocation(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("location_id = ?", id.String()).Delete(&tripLocationRow{}).Error; err != nil {
			return types.NewStorageError("delete_location", err)
		}

		result := tx.Where("id = ?", id.String()).Delete(&locationRow{})
		if result.Error != nil {
			return types.NewStorageError("delete_location", result.Error)
		}
		if result.RowsAffected == 0 {
			return &types.NotFoundError{Entity: "Локация", ID: id.String()}
		}
		return nil
	})
}

// SaveTripLocations заменяет упорядоченный список локаций поездки
func (s *Default) SaveTripLocations(ctx context.Context, tripID uuid.UUID, locationIDs []uuid.UUID) error {
	rows := make([]tripLocationRow, 0, len(locationIDs))
	for i, id := range locationIDs {
		rows = append(rows, tripLocationRow{TripID: tripID.String(), LocationID: id.String(), Sequence: i + 1})
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("trip_id = ?", tripID.String()).Delete(&tripLocationRow{}).Error; err != nil {
			return types.NewStorageError("save_trip_locations", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return types.NewStorageError("save_trip_locations", err)
		}
		return nil
	})
}

func (s *Default) GetTripLocations(ctx context.Context, tripID uuid.UUID) ([]types.TripLocation, error) {
	var rows []tripLocationRow
	err := s.db.WithContext(ctx).
		Where("trip_id = ?", tripID.String()).
		Order("sequence").
		Find(&rows).Error
	if err != nil {
		return nil, types.NewStorageError("list_locations_for_trip", err)
	}

	return util.Map(rows, func(r tripLocationRow) types.TripLocation {
		tripID, _ := uuid.Parse(r.TripID)
		locationID, _ := uuid.Parse(r.LocationID)
		return types.TripLocation{TripID: tripID, LocationID: locationID, Sequence: r.Sequence}
	}), nil
}

func (s *Default) AddSample(ctx context.Context, sample types.GPSSample) (types.GPSSample, error) {
	if sample.ID == uuid.Nil {
		sample.ID = uuid.New()
	}

	row := newSampleRow(sample)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return types.GPSSample{}, types.NewStorageError("add_sample", err)
	}

	return row.toSample(), nil
}

// AddSamples записывает отметки одной транзакцией: либо все, либо ни одной
func (s *Default) AddSamples(ctx context.Context, samples []types.GPSSample) ([]types.GPSSample, error) {
	rows := make([]sampleRow, 0, len(samples))
	for _, sample := range samples {
		if sample.ID == uuid.Nil {
			sample.ID = uuid.New()
		}
		rows = append(rows, newSampleRow(sample))
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&rows, insertBatchSize).Error
	})
	if err != nil {
		return nil, types.NewStorageError("add_samples", fmt.Errorf("%w: %v", types.ErrBatchAborted, err))
	}

	return util.Map(rows, func(r sampleRow) types.GPSSample { return r.toSample() }), nil
}

func (s *Default) GetSamples(ctx context.Context, filter filter.Samples) ([]types.GPSSample, error) {
	q := s.db.WithContext(ctx).Model(&sampleRow{})

	if filter.TripID != nil {
		q = q.Where("trip_id = ?", filter.TripID.String())
	}
	if filter.UserID != nil {
		q = q.Where("user_id = ?", filter.UserID.String())
	}
	if filter.From != nil {
		q = q.Where("recorded_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		q = q.Where("recorded_at <= ?", filter.To.UTC())
	}

	var rows []sampleRow
	if err := q.Order("recorded_at, id").Find(&rows).Error; err != nil {
		return nil, types.NewStorageError("get_trip_samples", err)
	}

	return util.Map(rows, func(r sampleRow) types.GPSSample { return r.toSample() }), nil
}

// CountDuplicateTimestamps число моментов времени, на которые у поездки больше одной отметки.
// Запрос информационный, запись дублей не блокируется.
func (s *Default) CountDuplicateTimestamps(ctx context.Context, tripID uuid.UUID) (int64, error) {
	db := s.db.WithContext(ctx)
	sub := db.Table("gps_samples").
		Select("recorded_at").
		Where("trip_id = ?", tripID.String()).
		Group("recorded_at").
		Having("COUNT(*) > 1")

	var count int64
	if err := db.Table("(?) AS duplicates", sub).Count(&count).Error; err != nil {
		return 0, types.NewStorageError("count_duplicate_timestamps", err)
	}

	return count, nil
}
