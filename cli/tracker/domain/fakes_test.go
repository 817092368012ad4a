package domain

import (
	"context"
	"math"
	"time"

	"github.com/daniil11ru/geotrack/cli/tracker/dto/db/in/filter"
	"github.com/daniil11ru/geotrack/cli/tracker/types"
	"github.com/google/uuid"
)

// metersPerDegreeLatitude длина градуса меридиана на сфере радиуса EarthRadiusMeters
const metersPerDegreeLatitude = types.EarthRadiusMeters * math.Pi / 180

var base = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func kmh(v float64) *float64 { return &v }

// north точка, сдвинутая по меридиану на заданное число метров
func north(latitude float64, meters float64) float64 {
	return latitude + meters/metersPerDegreeLatitude
}

// memorySamples хранилище отметок в памяти, возвращает их в порядке вставки
type memorySamples struct {
	samples []types.GPSSample
	err     error
}

func (m *memorySamples) AddSample(_ context.Context, sample types.GPSSample) (types.GPSSample, error) {
	if m.err != nil {
		return types.GPSSample{}, m.err
	}
	if sample.ID == uuid.Nil {
		sample.ID = uuid.New()
	}
	m.samples = append(m.samples, sample)
	return sample, nil
}

func (m *memorySamples) AddSamples(_ context.Context, samples []types.GPSSample) ([]types.GPSSample, error) {
	if m.err != nil {
		return nil, m.err
	}
	saved := make([]types.GPSSample, 0, len(samples))
	for _, sample := range samples {
		if sample.ID == uuid.Nil {
			sample.ID = uuid.New()
		}
		saved = append(saved, sample)
	}
	m.samples = append(m.samples, saved...)
	return saved, nil
}

func (m *memorySamples) GetSamples(_ context.Context, f filter.Samples) ([]types.GPSSample, error) {
	if m.err != nil {
		return nil, m.err
	}
	var result []types.GPSSample
	for _, sample := range m.samples {
		if f.TripID != nil && sample.TripID != *f.TripID {
			continue
		}
		if f.UserID != nil && sample.UserID != *f.UserID {
			continue
		}
		if f.From != nil && sample.Timestamp.Before(*f.From) {
			continue
		}
		if f.To != nil && sample.Timestamp.After(*f.To) {
			continue
		}
		result = append(result, sample)
	}
	return result, nil
}

func (m *memorySamples) CountDuplicateTimestamps(_ context.Context, tripID uuid.UUID) (int64, error) {
	counts := map[time.Time]int{}
	for _, sample := range m.samples {
		if sample.TripID == tripID {
			counts[sample.Timestamp]++
		}
	}
	var duplicates int64
	for _, c := range counts {
		if c > 1 {
			duplicates++
		}
	}
	return duplicates, nil
}

type memoryLocations map[uuid.UUID]types.LocationRecord

func (m memoryLocations) GetLocation(_ context.Context, id uuid.UUID) (types.LocationRecord, error) {
	location, ok := m[id]
	if !ok {
		return types.LocationRecord{}, &types.NotFoundError{Entity: "Локация", ID: id.String()}
	}
	return location, nil
}

func (m memoryLocations) GetActiveLocations(_ context.Context, ids []uuid.UUID) ([]types.LocationRecord, error) {
	var result []types.LocationRecord
	for _, id := range ids {
		if location, ok := m[id]; ok && location.IsActive {
			result = append(result, location)
		}
	}
	return result, nil
}

type memoryTrips map[uuid.UUID][]types.TripLocation

func (m memoryTrips) GetTripLocations(_ context.Context, tripID uuid.UUID) ([]types.TripLocation, error) {
	return m[tripID], nil
}

type haversine struct{}

func (haversine) Distance(_ context.Context, fromLatitude, fromLongitude, toLatitude, toLongitude float64) (float64, error) {
	return types.Distance(fromLatitude, fromLongitude, toLatitude, toLongitude), nil
}
