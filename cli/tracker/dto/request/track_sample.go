package request

import (
	"time"

	"github.com/daniil11ru/geotrack/cli/tracker/types"
)

type TrackSample struct {
	Latitude       *float64  `json:"latitude"`
	Longitude      *float64  `json:"longitude"`
	Timestamp      time.Time `json:"timestamp"`
	SpeedKmh       *float64  `json:"speed_kmh"`
	HeadingDeg     *float64  `json:"heading_deg"`
	AccuracyMeters *float64  `json:"accuracy_meters"`
}

// ToSample переводит тело запроса в отметку. prefix добавляется к имени поля в ошибке.
func (r TrackSample) ToSample(prefix string) (types.GPSSample, error) {
	if r.Latitude == nil {
		return types.GPSSample{}, types.NewValidationError(prefix+"latitude", "обязательное поле")
	}
	if r.Longitude == nil {
		return types.GPSSample{}, types.NewValidationError(prefix+"longitude", "обязательное поле")
	}

	return types.GPSSample{
		Latitude:       *r.Latitude,
		Longitude:      *r.Longitude,
		Timestamp:      r.Timestamp,
		SpeedKmh:       r.SpeedKmh,
		HeadingDeg:     r.HeadingDeg,
		AccuracyMeters: r.AccuracyMeters,
	}, nil
}

type TrackSamples struct {
	Samples []TrackSample `json:"samples"`
}
