package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

type Controller struct {
	Handler *Handler
	router  *gin.Engine
}

func NewController(handler *Handler) *Controller {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	trips := router.Group("/trips/:trip_id")
	{
		trips.POST("/samples", handler.TrackSample)
		trips.POST("/samples/batch", handler.TrackSamples)
		trips.GET("/duplicates", handler.CountDuplicates)
		trips.GET("/route", handler.GetRoute)
		trips.GET("/stops", handler.DetectStops)
		trips.GET("/statistics", handler.TripStatistics)
		trips.POST("/validate", handler.ValidateTrip)
	}

	locations := router.Group("/locations")
	{
		locations.GET("/nearby", handler.FindNearby)
		locations.GET("/nearest", handler.FindNearest)
		locations.GET("/bbox", handler.FindInBoundingBox)
		locations.POST("/validate", handler.ValidateLocations)
		locations.GET("/:location_id", handler.GetLocation)
		locations.PUT("/:location_id", handler.SaveLocation)
		locations.DELETE("/:location_id", handler.DeleteLocation)
		locations.POST("/:location_id/validate", handler.ValidateLocation)
	}

	router.GET("/analytics/summary", handler.RangeSummary)
	router.GET("/distance", handler.CalculateDistance)

	return &Controller{Handler: handler, router: router}
}

func (c *Controller) Router() http.Handler {
	return c.router
}

// Run обслуживает API до отмены контекста, затем корректно завершает активные запросы
func (c *Controller) Run(ctx context.Context, port int32) error {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: c.router,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("не удалось остановить API: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	log.Info("API остановлен")
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
		}).Debug("Запрос API обработан")
	}
}
