package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Capability string

const (
	CapabilityNative   Capability = "native"
	CapabilityFallback Capability = "fallback"
)

type LocationRecord struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	Latitude           float64   `json:"latitude"`
	Longitude          float64   `json:"longitude"`
	OffsetRadiusMeters float64   `json:"offset_radius_meters"`
	Type               string    `json:"type"`
	IsActive           bool      `json:"is_active"`
	Geometry           string    `json:"geometry,omitempty"`
}

// LocationDistance запись локации вместе с расстоянием до точки запроса
type LocationDistance struct {
	LocationRecord
	DistanceMeters float64 `json:"distance_meters"`
}

type GPSSample struct {
	ID             uuid.UUID `json:"id"`
	TripID         uuid.UUID `json:"trip_id"`
	UserID         uuid.UUID `json:"user_id"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	Timestamp      time.Time `json:"timestamp"`
	SpeedKmh       *float64  `json:"speed_kmh,omitempty"`
	HeadingDeg     *float64  `json:"heading_deg,omitempty"`
	AccuracyMeters *float64  `json:"accuracy_meters,omitempty"`
	Geometry       string    `json:"geometry,omitempty"`
}

func (s GPSSample) Position() Position2D {
	return Position2D{Latitude: s.Latitude, Longitude: s.Longitude}
}

func (s *GPSSample) ToBytes() ([]byte, error) {
	return json.Marshal(s)
}

type TripLocation struct {
	TripID     uuid.UUID `json:"trip_id"`
	LocationID uuid.UUID `json:"location_id"`
	Sequence   int       `json:"sequence"`
}

type GeofenceResult struct {
	LocationID         uuid.UUID `json:"location_id"`
	DistanceMeters     float64   `json:"distance_meters"`
	IsWithinRadius     bool      `json:"is_within_radius"`
	OffsetRadiusMeters float64   `json:"offset_radius_meters"`
}

type BatchGeofenceResult struct {
	Results      []GeofenceResult `json:"results"`
	WithinRadius []uuid.UUID      `json:"within_radius"`
	Closest      *GeofenceResult  `json:"closest"`
}

type RoutePoint struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
	SpeedKmh  *float64  `json:"speed_kmh,omitempty"`
}

type RouteSummary struct {
	TripID          uuid.UUID    `json:"trip_id"`
	Points          []RoutePoint `json:"points"`
	TotalDistanceKm float64      `json:"total_distance_km"`
	DurationMinutes int64        `json:"duration_minutes"`
	IsSimplified    bool         `json:"is_simplified"`
}

type StopInterval struct {
	Location        Position2D `json:"location"`
	ArrivalTime     time.Time  `json:"arrival_time"`
	DepartureTime   time.Time  `json:"departure_time"`
	DurationMinutes float64    `json:"duration_minutes"`
}

type TimeWindow struct {
	Start time.Time
	End   time.Time
}

type BoundingBox struct {
	MinLatitude  float64
	MinLongitude float64
	MaxLatitude  float64
	MaxLongitude float64
}

type TripStatistics struct {
	TotalDistanceMeters float64 `json:"total_distance_meters"`
	DurationMinutes     int64   `json:"duration_minutes"`
	AverageSpeedKmh     float64 `json:"average_speed_kmh"`
	MaxSpeedKmh         float64 `json:"max_speed_kmh"`
	PointCount          int     `json:"point_count"`
	StopCount           int     `json:"stop_count"`
	EfficiencyScore     int     `json:"efficiency_score"`
}

type LongestTrip struct {
	TripID          uuid.UUID `json:"trip_id"`
	DistanceKm      float64   `json:"distance_km"`
	DurationMinutes int64     `json:"duration_minutes"`
}

type ProductiveDay struct {
	Date       string  `json:"date"`
	DistanceKm float64 `json:"distance_km"`
}

type VisitedLocation struct {
	LocationID uuid.UUID `json:"location_id"`
	Visits     int       `json:"visits"`
}

type RangeSummary struct {
	TotalDistanceKm    float64        `json:"total_distance_km"`
	TotalTrips         int            `json:"total_trips"`
	AverageSpeedKmh    float64        `json:"average_speed_kmh"`
	TotalDurationHours float64        `json:"total_duration_hours"`
	LongestTrip        *LongestTrip   `json:"longest_trip"`
	MostProductiveDay  *ProductiveDay `json:"most_productive_day"`

	// MostVisitedLocations не вычисляется, поле оставлено как точка расширения
	MostVisitedLocations         []VisitedLocation `json:"most_visited_locations"`
	MostVisitedLocationsComputed bool              `json:"most_visited_locations_computed"`
}
