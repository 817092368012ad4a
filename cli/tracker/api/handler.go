package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/daniil11ru/geotrack/cli/tracker/cache"
	"github.com/daniil11ru/geotrack/cli/tracker/domain"
	"github.com/daniil11ru/geotrack/cli/tracker/dto/request"
	"github.com/daniil11ru/geotrack/cli/tracker/dto/response"
	"github.com/daniil11ru/geotrack/cli/tracker/spatial"
	"github.com/daniil11ru/geotrack/cli/tracker/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const defaultNearestLimit = 5

type Handler struct {
	Track      *domain.TrackPosition
	Geofence   *domain.ValidateGeofence
	Route      *domain.BuildRoute
	Stops      *domain.DetectStops
	Statistics *domain.CollectStatistics

	Index    *spatial.Index
	Nearby   cache.RadiusSearcher
	Registry cache.LocationRegistry

	// MinStopMinutes минимальная длительность стоянки, если в запросе она не задана
	MinStopMinutes float64
}

func writeError(c *gin.Context, err error) {
	var validationErr *types.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, response.Error{Error: validationErr.Error(), Field: validationErr.Field})
		return
	}

	var notFoundErr *types.NotFoundError
	if errors.As(err, &notFoundErr) {
		c.JSON(http.StatusNotFound, response.Error{Error: notFoundErr.Error()})
		return
	}

	entry := log.WithField("path", c.FullPath())
	var storageErr *types.StorageError
	if errors.As(err, &storageErr) {
		entry = entry.WithField("op", storageErr.Op).WithField("cause", storageErr.Err)
	}
	entry.Errorf("Ошибка обработки запроса: %v", err)

	c.JSON(http.StatusInternalServerError, response.Error{Error: "внутренняя ошибка сервера"})
}

func paramUUID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, types.NewValidationError(name, "ожидается UUID")
	}
	return id, nil
}

func queryFloat(c *gin.Context, name string) (*float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, types.NewValidationError(name, "ожидается число")
	}
	return &value, nil
}

func requiredFloat(c *gin.Context, name string) (float64, error) {
	value, err := queryFloat(c, name)
	if err != nil {
		return 0, err
	}
	if value == nil {
		return 0, types.NewValidationError(name, "обязательный параметр")
	}
	return *value, nil
}

func queryTime(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}

	value, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, types.NewValidationError(name, "ожидается время в формате RFC 3339")
	}
	return &value, nil
}

func queryString(c *gin.Context, name string) *string {
	if raw := c.Query(name); raw != "" {
		return &raw
	}
	return nil
}

func bindJSON(c *gin.Context, dest interface{}) error {
	if err := c.ShouldBindJSON(dest); err != nil {
		return types.NewValidationError("body", err.Error())
	}
	return nil
}

func (h *Handler) TrackSample(c *gin.Context) {
	tripID, err := paramUUID(c, "trip_id")
	if err != nil {
		writeError(c, err)
		return
	}

	body := struct {
		request.TrackSample
		UserID uuid.UUID `json:"user_id"`
	}{}
	if err := bindJSON(c, &body); err != nil {
		writeError(c, err)
		return
	}
	sample, err := body.ToSample("")
	if err != nil {
		writeError(c, err)
		return
	}

	saved, err := h.Track.Run(c.Request.Context(), tripID, body.UserID, sample)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, saved)
}

func (h *Handler) TrackSamples(c *gin.Context) {
	tripID, err := paramUUID(c, "trip_id")
	if err != nil {
		writeError(c, err)
		return
	}

	body := struct {
		request.TrackSamples
		UserID uuid.UUID `json:"user_id"`
	}{}
	if err := bindJSON(c, &body); err != nil {
		writeError(c, err)
		return
	}

	samples := make([]types.GPSSample, 0, len(body.Samples))
	for i, s := range body.Samples {
		sample, err := s.ToSample("samples[" + strconv.Itoa(i) + "].")
		if err != nil {
			writeError(c, err)
			return
		}
		samples = append(samples, sample)
	}

	saved, err := h.Track.RunBatch(c.Request.Context(), tripID, body.UserID, samples)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, saved)
}

func (h *Handler) CountDuplicates(c *gin.Context) {
	tripID, err := paramUUID(c, "trip_id")
	if err != nil {
		writeError(c, err)
		return
	}

	count, err := h.Track.CountDuplicateTimestamps(c.Request.Context(), tripID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Duplicates{TripID: tripID, DuplicateTimestamps: count})
}

func parseGetRoute(c *gin.Context) (request.GetRoute, error) {
	r := request.GetRoute{}

	start, err := queryTime(c, "start")
	if err != nil {
		return r, err
	}
	end, err := queryTime(c, "end")
	if err != nil {
		return r, err
	}
	switch {
	case start != nil && end != nil:
		r.Window = &types.TimeWindow{Start: *start, End: *end}
	case start != nil:
		return r, types.NewValidationError("end", "интервал задаётся обеими границами")
	case end != nil:
		return r, types.NewValidationError("start", "интервал задаётся обеими границами")
	}

	if raw := c.Query("simplify"); raw != "" {
		simplify, err := strconv.ParseBool(raw)
		if err != nil {
			return r, types.NewValidationError("simplify", "ожидается true или false")
		}
		r.Simplify = simplify
	}

	tolerance, err := queryFloat(c, "tolerance")
	if err != nil {
		return r, err
	}
	r.ToleranceMeters = tolerance

	return r, nil
}

func (h *Handler) GetRoute(c *gin.Context) {
	tripID, err := paramUUID(c, "trip_id")
	if err != nil {
		writeError(c, err)
		return
	}

	r, err := parseGetRoute(c)
	if err != nil {
		writeError(c, err)
		return
	}

	route, err := h.Route.Run(c.Request.Context(), tripID, r.Window, r.Simplify, r.ToleranceMeters)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, route)
}

func (h *Handler) DetectStops(c *gin.Context) {
	tripID, err := paramUUID(c, "trip_id")
	if err != nil {
		writeError(c, err)
		return
	}

	minDuration := h.MinStopMinutes
	if minDuration <= 0 {
		minDuration = domain.DefaultMinStopMinutes
	}
	value, err := queryFloat(c, "min_duration")
	if err != nil {
		writeError(c, err)
		return
	}
	if value != nil {
		minDuration = *value
	}

	stops, err := h.Stops.Run(c.Request.Context(), tripID, minDuration)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, stops)
}

func (h *Handler) TripStatistics(c *gin.Context) {
	tripID, err := paramUUID(c, "trip_id")
	if err != nil {
		writeError(c, err)
		return
	}

	statistics, err := h.Statistics.TripStatistics(c.Request.Context(), tripID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, statistics)
}

func (h *Handler) ValidateTrip(c *gin.Context) {
	tripID, err := paramUUID(c, "trip_id")
	if err != nil {
		writeError(c, err)
		return
	}

	body := request.ValidatePosition{}
	if err := bindJSON(c, &body); err != nil {
		writeError(c, err)
		return
	}
	latitude, longitude, err := body.Coordinates()
	if err != nil {
		writeError(c, err)
		return
	}

	result, err := h.Geofence.RunForTrip(c.Request.Context(), tripID, latitude, longitude)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) RangeSummary(c *gin.Context) {
	from, err := queryTime(c, "from")
	if err != nil {
		writeError(c, err)
		return
	}
	if from == nil {
		writeError(c, types.NewValidationError("from", "обязательный параметр"))
		return
	}
	to, err := queryTime(c, "to")
	if err != nil {
		writeError(c, err)
		return
	}
	if to == nil {
		writeError(c, types.NewValidationError("to", "обязательный параметр"))
		return
	}

	var userID *uuid.UUID
	if raw := c.Query("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(c, types.NewValidationError("user_id", "ожидается UUID"))
			return
		}
		userID = &id
	}

	summary, err := h.Statistics.RangeSummary(c.Request.Context(), *from, *to, userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *Handler) ValidateLocation(c *gin.Context) {
	locationID, err := paramUUID(c, "location_id")
	if err != nil {
		writeError(c, err)
		return
	}

	body := request.ValidatePosition{}
	if err := bindJSON(c, &body); err != nil {
		writeError(c, err)
		return
	}
	latitude, longitude, err := body.Coordinates()
	if err != nil {
		writeError(c, err)
		return
	}

	result, err := h.Geofence.Run(c.Request.Context(), locationID, latitude, longitude)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) ValidateLocations(c *gin.Context) {
	body := request.BatchValidatePosition{}
	if err := bindJSON(c, &body); err != nil {
		writeError(c, err)
		return
	}
	latitude, longitude, err := body.Coordinates()
	if err != nil {
		writeError(c, err)
		return
	}

	result, err := h.Geofence.RunBatch(c.Request.Context(), body.LocationIDs, latitude, longitude)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) FindNearby(c *gin.Context) {
	latitude, err := requiredFloat(c, "latitude")
	if err != nil {
		writeError(c, err)
		return
	}
	longitude, err := requiredFloat(c, "longitude")
	if err != nil {
		writeError(c, err)
		return
	}
	radius, err := requiredFloat(c, "radius")
	if err != nil {
		writeError(c, err)
		return
	}

	locations, err := h.Nearby.WithinRadius(c.Request.Context(), latitude, longitude, radius, queryString(c, "type"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.NearbyLocations{Capability: h.Index.Capability(), Locations: locations})
}

func (h *Handler) FindNearest(c *gin.Context) {
	latitude, err := requiredFloat(c, "latitude")
	if err != nil {
		writeError(c, err)
		return
	}
	longitude, err := requiredFloat(c, "longitude")
	if err != nil {
		writeError(c, err)
		return
	}

	limit := defaultNearestLimit
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			writeError(c, types.NewValidationError("limit", "ожидается целое число"))
			return
		}
	}

	maxDistance, err := queryFloat(c, "max_distance")
	if err != nil {
		writeError(c, err)
		return
	}

	locations, err := h.Index.Nearest(c.Request.Context(), latitude, longitude, limit, maxDistance)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.NearbyLocations{Capability: h.Index.Capability(), Locations: locations})
}

func (h *Handler) FindInBoundingBox(c *gin.Context) {
	box := types.BoundingBox{}
	bounds := []struct {
		name string
		dest *float64
	}{
		{"min_latitude", &box.MinLatitude},
		{"min_longitude", &box.MinLongitude},
		{"max_latitude", &box.MaxLatitude},
		{"max_longitude", &box.MaxLongitude},
	}
	for _, b := range bounds {
		value, err := requiredFloat(c, b.name)
		if err != nil {
			writeError(c, err)
			return
		}
		*b.dest = value
	}

	locations, err := h.Index.InBoundingBox(c.Request.Context(), box, queryString(c, "type"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.BoundingBoxLocations{Capability: h.Index.Capability(), Locations: locations})
}

func (h *Handler) CalculateDistance(c *gin.Context) {
	coordinates := make([]float64, 0, 4)
	for _, name := range []string{"from_latitude", "from_longitude", "to_latitude", "to_longitude"} {
		value, err := requiredFloat(c, name)
		if err != nil {
			writeError(c, err)
			return
		}
		coordinates = append(coordinates, value)
	}

	distance, err := h.Index.Distance(c.Request.Context(), coordinates[0], coordinates[1], coordinates[2], coordinates[3])
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Distance{DistanceMeters: distance})
}

func (h *Handler) GetLocation(c *gin.Context) {
	locationID, err := paramUUID(c, "location_id")
	if err != nil {
		writeError(c, err)
		return
	}

	location, err := h.Registry.GetLocation(c.Request.Context(), locationID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, location)
}

func (h *Handler) SaveLocation(c *gin.Context) {
	locationID, err := paramUUID(c, "location_id")
	if err != nil {
		writeError(c, err)
		return
	}

	body := request.SaveLocation{}
	if err := bindJSON(c, &body); err != nil {
		writeError(c, err)
		return
	}
	location, err := body.ToRecord()
	if err != nil {
		writeError(c, err)
		return
	}
	location.ID = locationID

	saved, err := h.Registry.SaveLocation(c.Request.Context(), location)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, saved)
}

func (h *Handler) DeleteLocation(c *gin.Context) {
	locationID, err := paramUUID(c, "location_id")
	if err != nil {
		writeError(c, err)
		return
	}

	if err := h.Registry.DeleteLocation(c.Request.Context(), locationID); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
