package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/daniil11ru/geotrack/cli/tracker/cache"
	"github.com/daniil11ru/geotrack/cli/tracker/domain"
	"github.com/daniil11ru/geotrack/cli/tracker/dto/response"
	"github.com/daniil11ru/geotrack/cli/tracker/source"
	"github.com/daniil11ru/geotrack/cli/tracker/spatial"
	"github.com/daniil11ru/geotrack/cli/tracker/types"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testServer struct {
	router http.Handler
	source *source.Default
	close  func()
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log.SetOutput(io.Discard)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "api.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	src := source.NewDefault(db)
	require.NoError(t, src.AutoMigrate())

	index := spatial.New(context.Background(), db, src)
	store := cache.NewMemory(time.Minute)
	registry := cache.NewLocations(store, src, time.Hour)

	handler := &Handler{
		Track:          &domain.TrackPosition{Samples: src},
		Geofence:       &domain.ValidateGeofence{Locations: registry, Trips: src, Distance: index},
		Route:          &domain.BuildRoute{Samples: src},
		Stops:          &domain.DetectStops{Samples: src},
		Statistics:     &domain.CollectStatistics{Samples: src},
		Index:          index,
		Nearby:         cache.NewSpatial(store, index, time.Minute),
		Registry:       registry,
		MinStopMinutes: domain.DefaultMinStopMinutes,
	}

	return &testServer{
		router: NewController(handler).Router(),
		source: src,
		close:  func() { sqlDB.Close() },
	}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest))
}

func (s *testServer) putLocation(t *testing.T, id uuid.UUID, lat, lng, radius float64) {
	t.Helper()
	rec := s.do(t, http.MethodPut, "/locations/"+id.String(), gin.H{
		"name": "Точка", "latitude": lat, "longitude": lng,
		"offset_radius_meters": radius, "type": "warehouse",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestLocationRegistryAndGeofence(t *testing.T) {
	s := newTestServer(t)
	id := uuid.New()
	s.putLocation(t, id, 10.7769331, 106.7009238, 100)

	rec := s.do(t, http.MethodGet, "/locations/"+id.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var location types.LocationRecord
	decode(t, rec, &location)
	assert.Equal(t, id, location.ID)
	assert.True(t, location.IsActive)
	assert.Equal(t, "SRID=4326;POINT(106.7009238 10.7769331)", location.Geometry)

	rec = s.do(t, http.MethodPost, "/locations/"+id.String()+"/validate", gin.H{"latitude": 10.777, "longitude": 106.701})
	require.Equal(t, http.StatusOK, rec.Code)
	var result types.GeofenceResult
	decode(t, rec, &result)
	assert.True(t, result.IsWithinRadius)
	assert.Less(t, result.DistanceMeters, 100.0)

	// Обновление сбрасывает кэш записи
	s.putLocation(t, id, 11, 107, 100)
	rec = s.do(t, http.MethodPost, "/locations/"+id.String()+"/validate", gin.H{"latitude": 10.777, "longitude": 106.701})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &result)
	assert.False(t, result.IsWithinRadius)

	rec = s.do(t, http.MethodDelete, "/locations/"+id.String(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodGet, "/locations/"+id.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(t, http.MethodDelete, "/locations/"+id.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBatchValidateAndTrip(t *testing.T) {
	s := newTestServer(t)
	near, far := uuid.New(), uuid.New()
	s.putLocation(t, near, 0, 0, 100)
	s.putLocation(t, far, 0, 0.01, 100)

	rec := s.do(t, http.MethodPost, "/locations/validate", gin.H{
		"location_ids": []uuid.UUID{far, near}, "latitude": 0, "longitude": 0.0001,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var batch types.BatchGeofenceResult
	decode(t, rec, &batch)
	require.Len(t, batch.Results, 2)
	assert.Equal(t, []uuid.UUID{near}, batch.WithinRadius)
	require.NotNil(t, batch.Closest)
	assert.Equal(t, near, batch.Closest.LocationID)

	rec = s.do(t, http.MethodPost, "/locations/validate", gin.H{"location_ids": []uuid.UUID{}, "latitude": 0, "longitude": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	tripID := uuid.New()
	rec = s.do(t, http.MethodPost, "/trips/"+tripID.String()+"/validate", gin.H{"latitude": 0, "longitude": 0})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, s.source.SaveTripLocations(context.Background(), tripID, []uuid.UUID{far, near}))
	rec = s.do(t, http.MethodPost, "/trips/"+tripID.String()+"/validate", gin.H{"latitude": 0, "longitude": 0.01})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &batch)
	assert.Equal(t, []uuid.UUID{far}, batch.WithinRadius)
}

func TestValidateLocation_Errors(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/locations/not-a-uuid/validate", gin.H{"latitude": 0, "longitude": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var errResp response.Error
	decode(t, rec, &errResp)
	assert.Equal(t, "location_id", errResp.Field)

	rec = s.do(t, http.MethodPost, "/locations/"+uuid.NewString()+"/validate", gin.H{"latitude": 0, "longitude": 0})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/locations/"+uuid.NewString()+"/validate", gin.H{"latitude": 91, "longitude": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	decode(t, rec, &errResp)
	assert.Equal(t, "latitude", errResp.Field)

	rec = s.do(t, http.MethodPost, "/locations/"+uuid.NewString()+"/validate", gin.H{"latitude": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	decode(t, rec, &errResp)
	assert.Equal(t, "longitude", errResp.Field)
}

func TestSpatialQueries(t *testing.T) {
	s := newTestServer(t)
	a, b := uuid.New(), uuid.New()
	s.putLocation(t, a, 55.75, 37.61, 50)
	s.putLocation(t, b, 55.76, 37.61, 50)

	rec := s.do(t, http.MethodGet, "/locations/nearby?latitude=55.75&longitude=37.61&radius=500", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var nearby response.NearbyLocations
	decode(t, rec, &nearby)
	assert.Equal(t, types.CapabilityFallback, nearby.Capability)
	require.Len(t, nearby.Locations, 1)
	assert.Equal(t, a, nearby.Locations[0].ID)

	rec = s.do(t, http.MethodGet, "/locations/nearest?latitude=55.75&longitude=37.61&limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &nearby)
	require.Len(t, nearby.Locations, 2)
	assert.Equal(t, a, nearby.Locations[0].ID)
	assert.Equal(t, b, nearby.Locations[1].ID)

	rec = s.do(t, http.MethodGet, "/locations/bbox?min_latitude=55.755&min_longitude=37&max_latitude=56&max_longitude=38", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var boxed response.BoundingBoxLocations
	decode(t, rec, &boxed)
	require.Len(t, boxed.Locations, 1)
	assert.Equal(t, b, boxed.Locations[0].ID)

	rec = s.do(t, http.MethodGet, "/distance?from_latitude=55.7558&from_longitude=37.6173&to_latitude=59.9343&to_longitude=30.3351", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var distance response.Distance
	decode(t, rec, &distance)
	assert.InDelta(t, 633020, distance.DistanceMeters, 50)

	for _, path := range []string{
		"/locations/nearby?latitude=55.75&longitude=37.61&radius=60000",
		"/locations/nearby?latitude=55.75&radius=100",
		"/locations/nearest?latitude=55.75&longitude=37.61&limit=0",
		"/locations/nearest?latitude=55.75&longitude=37.61&limit=abc",
		"/locations/bbox?min_latitude=56&min_longitude=37&max_latitude=55&max_longitude=38",
		"/distance?from_latitude=95&from_longitude=0&to_latitude=0&to_longitude=0",
	} {
		rec = s.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func sampleBody(lat, lng float64, at time.Time, speed float64) gin.H {
	return gin.H{"latitude": lat, "longitude": lng, "timestamp": at.Format(time.RFC3339), "speed_kmh": speed}
}

func TestTrackAndRoute(t *testing.T) {
	s := newTestServer(t)
	tripID, userID := uuid.New(), uuid.New()
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	rec := s.do(t, http.MethodPost, "/trips/"+tripID.String()+"/samples", gin.H{
		"user_id": userID, "latitude": 0, "longitude": 0, "timestamp": start.Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var saved types.GPSSample
	decode(t, rec, &saved)
	assert.Equal(t, tripID, saved.TripID)
	assert.Equal(t, userID, saved.UserID)
	assert.NotEqual(t, uuid.Nil, saved.ID)

	samples := make([]gin.H, 0, 4)
	for i := 1; i <= 4; i++ {
		samples = append(samples, sampleBody(0, float64(i)*0.0009, start.Add(time.Duration(i)*150*time.Second), 20))
	}
	rec = s.do(t, http.MethodPost, "/trips/"+tripID.String()+"/samples/batch", gin.H{"user_id": userID, "samples": samples})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/trips/"+tripID.String()+"/route", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var route types.RouteSummary
	decode(t, rec, &route)
	assert.Len(t, route.Points, 5)
	assert.False(t, route.IsSimplified)
	assert.Equal(t, int64(10), route.DurationMinutes)
	assert.InDelta(t, 0.4, route.TotalDistanceKm, 0.001)

	rec = s.do(t, http.MethodGet, "/trips/"+tripID.String()+"/route?simplify=true&tolerance=150", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &route)
	assert.Len(t, route.Points, 2)
	assert.True(t, route.IsSimplified)

	window := fmt.Sprintf("?start=%s&end=%s", start.Add(time.Minute).Format(time.RFC3339), start.Add(6*time.Minute).Format(time.RFC3339))
	rec = s.do(t, http.MethodGet, "/trips/"+tripID.String()+"/route"+window, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &route)
	assert.Len(t, route.Points, 2)

	for _, query := range []string{
		"?start=" + start.Format(time.RFC3339),
		"?start=yesterday&end=today",
		"?simplify=maybe",
		"?simplify=true&tolerance=-1",
	} {
		rec = s.do(t, http.MethodGet, "/trips/"+tripID.String()+"/route"+query, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}

	rec = s.do(t, http.MethodGet, "/trips/"+tripID.String()+"/statistics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var statistics types.TripStatistics
	decode(t, rec, &statistics)
	assert.Equal(t, 5, statistics.PointCount)

	rec = s.do(t, http.MethodGet, "/trips/"+tripID.String()+"/duplicates", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var duplicates response.Duplicates
	decode(t, rec, &duplicates)
	assert.Equal(t, int64(0), duplicates.DuplicateTimestamps)
}

func TestRoute_ZeroToleranceKeepsZigzag(t *testing.T) {
	s := newTestServer(t)
	tripID, userID := uuid.New(), uuid.New()
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	// Каждая нечётная точка смещена к северу примерно на 5 м
	samples := make([]gin.H, 0, 5)
	for i := 0; i < 5; i++ {
		latitude := 0.0
		if i%2 == 1 {
			latitude = 0.000045
		}
		samples = append(samples, sampleBody(latitude, float64(i)*0.0009, start.Add(time.Duration(i)*time.Minute), 20))
	}
	rec := s.do(t, http.MethodPost, "/trips/"+tripID.String()+"/samples/batch", gin.H{"user_id": userID, "samples": samples})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var route types.RouteSummary
	rec = s.do(t, http.MethodGet, "/trips/"+tripID.String()+"/route?simplify=true&tolerance=0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &route)
	assert.Len(t, route.Points, 5)

	rec = s.do(t, http.MethodGet, "/trips/"+tripID.String()+"/route?simplify=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &route)
	assert.Len(t, route.Points, 2)
}

func TestTrack_ValidationErrors(t *testing.T) {
	s := newTestServer(t)
	tripID, userID := uuid.New(), uuid.New()
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	withUser := func(body gin.H) gin.H {
		body["user_id"] = userID
		return body
	}

	rec := s.do(t, http.MethodPost, "/trips/"+tripID.String()+"/samples", sampleBody(0, 0, start, 0))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var errResp response.Error
	decode(t, rec, &errResp)
	assert.Equal(t, "user_id", errResp.Field)

	rec = s.do(t, http.MethodPost, "/trips/"+tripID.String()+"/samples/batch", gin.H{"samples": []gin.H{sampleBody(0, 0, start, 0)}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	decode(t, rec, &errResp)
	assert.Equal(t, "user_id", errResp.Field)

	rec = s.do(t, http.MethodPost, "/trips/"+tripID.String()+"/samples", withUser(sampleBody(91, 0, start, 0)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	decode(t, rec, &errResp)
	assert.Equal(t, "latitude", errResp.Field)

	rec = s.do(t, http.MethodPost, "/trips/"+tripID.String()+"/samples", withUser(gin.H{"latitude": 1, "longitude": 1}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	decode(t, rec, &errResp)
	assert.Equal(t, "timestamp", errResp.Field)

	rec = s.do(t, http.MethodPost, "/trips/"+tripID.String()+"/samples/batch", withUser(gin.H{"samples": []gin.H{
		sampleBody(0, 0, start, 0),
		{"latitude": 0, "timestamp": start.Format(time.RFC3339)},
	}}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	decode(t, rec, &errResp)
	assert.Equal(t, "samples[1].longitude", errResp.Field)

	rec = s.do(t, http.MethodPost, "/trips/"+tripID.String()+"/samples/batch", withUser(gin.H{"samples": []gin.H{
		sampleBody(0, 0, start, 0),
		sampleBody(0, 0, start, -5),
	}}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	decode(t, rec, &errResp)
	assert.Equal(t, "samples[1].speed_kmh", errResp.Field)

	rec = s.do(t, http.MethodPost, "/trips/"+tripID.String()+"/samples/batch", withUser(gin.H{"samples": []gin.H{}}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/trips/"+tripID.String()+"/route", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var route types.RouteSummary
	decode(t, rec, &route)
	assert.Empty(t, route.Points)
}

func TestStopsAndSummary(t *testing.T) {
	s := newTestServer(t)
	tripID, userID := uuid.New(), uuid.New()
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	samples := make([]gin.H, 0, 11)
	for i := 0; i <= 10; i++ {
		samples = append(samples, sampleBody(55.75, 37.61, start.Add(time.Duration(i)*time.Minute), 0))
	}
	rec := s.do(t, http.MethodPost, "/trips/"+tripID.String()+"/samples/batch", gin.H{"user_id": userID, "samples": samples})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/trips/"+tripID.String()+"/stops", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stops []types.StopInterval
	decode(t, rec, &stops)
	require.Len(t, stops, 1)
	assert.InDelta(t, 10, stops[0].DurationMinutes, 0.01)

	rec = s.do(t, http.MethodGet, "/trips/"+tripID.String()+"/stops?min_duration=15", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &stops)
	assert.Empty(t, stops)

	rec = s.do(t, http.MethodGet, "/trips/"+tripID.String()+"/stops?min_duration=0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &stops)
	assert.Len(t, stops, 1)

	rec = s.do(t, http.MethodGet, "/trips/"+tripID.String()+"/stops?min_duration=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var errResp response.Error
	decode(t, rec, &errResp)
	assert.Equal(t, "min_duration", errResp.Field)

	query := fmt.Sprintf("/analytics/summary?from=%s&to=%s&user_id=%s",
		start.Add(-time.Hour).Format(time.RFC3339), start.Add(time.Hour).Format(time.RFC3339), userID)
	rec = s.do(t, http.MethodGet, query, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var summary types.RangeSummary
	decode(t, rec, &summary)
	assert.Equal(t, 1, summary.TotalTrips)
	assert.False(t, summary.MostVisitedLocationsComputed)

	for _, path := range []string{
		"/analytics/summary?to=" + start.Format(time.RFC3339),
		"/analytics/summary?from=" + start.Format(time.RFC3339),
		"/analytics/summary?from=" + start.Format(time.RFC3339) + "&to=" + start.Format(time.RFC3339) + "&user_id=bad",
		"/analytics/summary?from=" + start.Add(time.Hour).Format(time.RFC3339) + "&to=" + start.Format(time.RFC3339),
	} {
		rec = s.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestStorageFailureHidesCause(t *testing.T) {
	s := newTestServer(t)
	s.close()

	rec := s.do(t, http.MethodGet, "/trips/"+uuid.NewString()+"/route", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var errResp response.Error
	decode(t, rec, &errResp)
	assert.Equal(t, "внутренняя ошибка сервера", errResp.Error)
	assert.NotContains(t, rec.Body.String(), "sql")
}
