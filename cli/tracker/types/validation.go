package types

import (
	"math"
	"strconv"
)

const (
	MaxRadiusMeters = 50000.0
	MaxBatchSize    = 1000
	MaxNearestLimit = 100
)

func ValidateCoordinates(latitude, longitude float64) error {
	if math.IsNaN(latitude) || math.IsInf(latitude, 0) || latitude < -90 || latitude > 90 {
		return NewValidationError("latitude", "широта должна быть в диапазоне [-90; 90]")
	}
	if math.IsNaN(longitude) || math.IsInf(longitude, 0) || longitude < -180 || longitude > 180 {
		return NewValidationError("longitude", "долгота должна быть в диапазоне [-180; 180]")
	}
	return nil
}

func ValidateRadius(field string, radiusMeters float64) error {
	if math.IsNaN(radiusMeters) || radiusMeters <= 0 || radiusMeters > MaxRadiusMeters {
		return NewValidationError(field, "радиус должен быть в диапазоне (0; "+strconv.Itoa(int(MaxRadiusMeters))+"] метров")
	}
	return nil
}

func ValidateLimit(limit int) error {
	if limit < 1 || limit > MaxNearestLimit {
		return NewValidationError("limit", "лимит должен быть в диапазоне [1; "+strconv.Itoa(MaxNearestLimit)+"]")
	}
	return nil
}

func ValidateBoundingBox(box BoundingBox) error {
	if err := ValidateCoordinates(box.MinLatitude, box.MinLongitude); err != nil {
		return err
	}
	if err := ValidateCoordinates(box.MaxLatitude, box.MaxLongitude); err != nil {
		return err
	}
	if box.MinLatitude > box.MaxLatitude {
		return NewValidationError("min_latitude", "минимальная широта больше максимальной")
	}
	if box.MinLongitude > box.MaxLongitude {
		return NewValidationError("min_longitude", "минимальная долгота больше максимальной")
	}
	return nil
}

func ValidateSample(sample GPSSample) error {
	if err := ValidateCoordinates(sample.Latitude, sample.Longitude); err != nil {
		return err
	}
	if sample.Timestamp.IsZero() {
		return NewValidationError("timestamp", "время фиксации обязательно")
	}
	if sample.SpeedKmh != nil && (math.IsNaN(*sample.SpeedKmh) || *sample.SpeedKmh < 0) {
		return NewValidationError("speed_kmh", "скорость не может быть отрицательной")
	}
	if sample.HeadingDeg != nil && (math.IsNaN(*sample.HeadingDeg) || *sample.HeadingDeg < 0 || *sample.HeadingDeg > 360) {
		return NewValidationError("heading_deg", "курс должен быть в диапазоне [0; 360]")
	}
	if sample.AccuracyMeters != nil && (math.IsNaN(*sample.AccuracyMeters) || *sample.AccuracyMeters < 0) {
		return NewValidationError("accuracy_meters", "точность не может быть отрицательной")
	}
	return nil
}

func ValidateTimeWindow(window *TimeWindow) error {
	if window == nil {
		return nil
	}
	if window.Start.After(window.End) {
		return NewValidationError("start", "начало интервала позже его окончания")
	}
	return nil
}
