package domain

import (
	"math/rand"
	"testing"
	"time"

	"github.com/daniil11ru/geotrack/cli/tracker/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomRoute(r *rand.Rand, n int) []types.RoutePoint {
	points := make([]types.RoutePoint, n)
	latitude, longitude := 55.75, 37.61
	for i := range points {
		latitude += (r.Float64() - 0.5) * 0.004
		longitude += (r.Float64() - 0.5) * 0.004
		points[i] = types.RoutePoint{Latitude: latitude, Longitude: longitude, Timestamp: base.Add(time.Duration(i) * time.Second)}
	}
	return points
}

func TestLine_DistanceToPosition(t *testing.T) {
	line := Line{
		First:  types.Position2D{Latitude: 0, Longitude: 0},
		Second: types.Position2D{Latitude: 0, Longitude: 0.01},
	}

	d := line.DistanceToPosition(types.Position2D{Latitude: 100 / types.MetersPerDegree, Longitude: 0.005})
	assert.InDelta(t, 100, d, 1e-6)

	degenerate := Line{First: types.Position2D{Latitude: 1, Longitude: 1}, Second: types.Position2D{Latitude: 1, Longitude: 1}}
	assert.InDelta(t, 50, degenerate.DistanceToPosition(types.Position2D{Latitude: 1 + 50/types.MetersPerDegree, Longitude: 1}), 1e-6)
}

func TestGetSimplifiedTrack_StraightLineCollapses(t *testing.T) {
	// 5 точек через ~100 м за 10 минут, допуск 150 м
	points := make([]types.RoutePoint, 5)
	for i := range points {
		points[i] = types.RoutePoint{
			Latitude:  north(10.7769331, float64(i)*100),
			Longitude: 106.7009238,
			Timestamp: base.Add(time.Duration(i) * 150 * time.Second),
		}
	}

	simplified := GetSimplifiedTrack(points, 150)
	require.Len(t, simplified, 2)
	assert.Equal(t, points[0], simplified[0])
	assert.Equal(t, points[4], simplified[1])
}

func TestGetSimplifiedTrack_KeepsCorner(t *testing.T) {
	points := []types.RoutePoint{
		{Latitude: 0, Longitude: 0},
		{Latitude: 0, Longitude: 0.001},
		{Latitude: 0, Longitude: 0.002},
		{Latitude: 0.002, Longitude: 0.002},
		{Latitude: 0.004, Longitude: 0.002},
	}

	simplified := GetSimplifiedTrack(points, 10)
	require.Len(t, simplified, 3)
	assert.Equal(t, points[2], simplified[1])
}

func TestGetSimplifiedTrack_ShortInputIsCopied(t *testing.T) {
	points := []types.RoutePoint{{Latitude: 1, Longitude: 1}, {Latitude: 2, Longitude: 2}}

	simplified := GetSimplifiedTrack(points, 10)
	require.Equal(t, points, simplified)

	simplified[0].Latitude = 42
	assert.Equal(t, 1.0, points[0].Latitude)

	assert.Empty(t, GetSimplifiedTrack(nil, 10))
}

func TestGetSimplifiedTrack_DoesNotMutateInput(t *testing.T) {
	points := randomRoute(rand.New(rand.NewSource(7)), 50)
	original := append([]types.RoutePoint(nil), points...)

	GetSimplifiedTrack(points, 20)
	assert.Equal(t, original, points)
}

func TestGetSimplifiedTrack_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for _, n := range []int{3, 5, 17, 100, 400} {
		for _, ep := range []float64{0, 1, 10, 50, 150, 1000} {
			points := randomRoute(r, n)

			once := GetSimplifiedTrack(points, ep)
			twice := GetSimplifiedTrack(once, ep)

			assert.Equal(t, once, twice, "n=%d ep=%v", n, ep)
			assert.LessOrEqual(t, len(once), len(points))
			assert.GreaterOrEqual(t, len(once), 2)
			assert.Equal(t, points[0], once[0])
			assert.Equal(t, points[n-1], once[len(once)-1])
		}
	}
}

func TestGetSimplifiedTrack_NegativeToleranceTreatedAsZero(t *testing.T) {
	points := []types.RoutePoint{
		{Latitude: 0, Longitude: 0},
		{Latitude: 0, Longitude: 0.001},
		{Latitude: 0, Longitude: 0.002},
	}

	assert.Len(t, GetSimplifiedTrack(points, -5), 2)
}
