package spatial

import (
	"context"
	"math"
	"sort"

	"github.com/daniil11ru/geotrack/cli/tracker/dto/db/in/filter"
	"github.com/daniil11ru/geotrack/cli/tracker/types"
)

// Fallback грубый отбор по прямоугольнику в базе и точный расчёт гаверсинусом в процессе
type Fallback struct {
	locations LocationSource
}

func NewFallback(locations LocationSource) *Fallback {
	return &Fallback{locations: locations}
}

// boundingBox прямоугольник, гарантированно содержащий круг заданного радиуса
func boundingBox(latitude, longitude, radiusMeters float64) types.BoundingBox {
	latDelta := radiusMeters / types.MetersPerDegree

	box := types.BoundingBox{
		MinLatitude:  math.Max(latitude-latDelta, -90),
		MaxLatitude:  math.Min(latitude+latDelta, 90),
		MinLongitude: -180,
		MaxLongitude: 180,
	}

	// У полюсов и при касании полюса кругом отбор по долготе не сужается
	maxAbsLatitude := math.Max(math.Abs(box.MinLatitude), math.Abs(box.MaxLatitude))
	if maxAbsLatitude >= 89 {
		return box
	}

	lngDelta := latDelta / math.Cos(maxAbsLatitude*math.Pi/180)
	if lngDelta >= 180 {
		return box
	}

	box.MinLongitude = math.Max(longitude-lngDelta, -180)
	box.MaxLongitude = math.Min(longitude+lngDelta, 180)
	return box
}

// boundingBoxes прямоугольники отбора. Круг, пересекающий антимеридиан, дополняется
// прямоугольником с другой стороны от него.
func boundingBoxes(latitude, longitude, radiusMeters float64) []types.BoundingBox {
	box := boundingBox(latitude, longitude, radiusMeters)
	boxes := []types.BoundingBox{box}
	if box.MinLongitude == -180 && box.MaxLongitude == 180 {
		return boxes
	}

	// Обрезается не больше одной стороны, вторая хранит полную ширину
	lngDelta := math.Max(longitude-box.MinLongitude, box.MaxLongitude-longitude)

	wrapped := box
	switch {
	case longitude-lngDelta < -180:
		wrapped.MinLongitude = longitude - lngDelta + 360
		wrapped.MaxLongitude = 180
	case longitude+lngDelta > 180:
		wrapped.MinLongitude = -180
		wrapped.MaxLongitude = longitude + lngDelta - 360
	default:
		return boxes
	}
	return append(boxes, wrapped)
}

func (f *Fallback) WithinRadius(ctx context.Context, latitude, longitude, radiusMeters float64, locationType *string) ([]types.LocationDistance, error) {
	var candidates []types.LocationRecord
	seen := map[string]bool{}
	for _, box := range boundingBoxes(latitude, longitude, radiusMeters) {
		box := box
		found, err := f.locations.GetLocations(ctx, filter.Locations{Box: &box, Type: locationType})
		if err != nil {
			return nil, err
		}
		for _, location := range found {
			if !seen[location.ID.String()] {
				seen[location.ID.String()] = true
				candidates = append(candidates, location)
			}
		}
	}

	result := withDistances(candidates, latitude, longitude)
	kept := result[:0]
	for _, item := range result {
		if item.DistanceMeters <= radiusMeters {
			kept = append(kept, item)
		}
	}
	return kept, nil
}

func (f *Fallback) Nearest(ctx context.Context, latitude, longitude float64, limit int, maxDistanceMeters *float64) ([]types.LocationDistance, error) {
	var result []types.LocationDistance
	if maxDistanceMeters != nil {
		var err error
		if result, err = f.WithinRadius(ctx, latitude, longitude, *maxDistanceMeters, nil); err != nil {
			return nil, err
		}
	} else {
		candidates, err := f.locations.GetLocations(ctx, filter.Locations{})
		if err != nil {
			return nil, err
		}
		result = withDistances(candidates, latitude, longitude)
	}

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (f *Fallback) InBoundingBox(ctx context.Context, box types.BoundingBox, locationType *string) ([]types.LocationRecord, error) {
	return f.locations.GetLocations(ctx, filter.Locations{Box: &box, Type: locationType})
}

func (f *Fallback) Distance(_ context.Context, fromLatitude, fromLongitude, toLatitude, toLongitude float64) (float64, error) {
	return types.Distance(fromLatitude, fromLongitude, toLatitude, toLongitude), nil
}

// withDistances расстояния до точки запроса, по возрастанию расстояния, при равенстве по ID
func withDistances(locations []types.LocationRecord, latitude, longitude float64) []types.LocationDistance {
	result := make([]types.LocationDistance, 0, len(locations))
	for _, location := range locations {
		result = append(result, types.LocationDistance{
			LocationRecord: location,
			DistanceMeters: types.Distance(latitude, longitude, location.Latitude, location.Longitude),
		})
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].DistanceMeters != result[j].DistanceMeters {
			return result[i].DistanceMeters < result[j].DistanceMeters
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result
}
