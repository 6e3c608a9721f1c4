// api.go: route registration and shared plumbing for the station HTTP API
package api

import (
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/patrickmn/go-cache"

	"github.com/visionqc/visionqc-go/internal/conf"
	"github.com/visionqc/visionqc-go/internal/datastore"
	"github.com/visionqc/visionqc-go/internal/errors"
	"github.com/visionqc/visionqc-go/internal/export"
	"github.com/visionqc/visionqc-go/internal/inspection"
	"github.com/visionqc/visionqc-go/internal/observability"
)

// Controller manages the API routes and handlers
type Controller struct {
	Echo      *echo.Echo
	Group     *echo.Group
	DS        datastore.Interface
	Settings  *conf.Settings
	Processor *inspection.Processor
	Exporter  *export.Exporter
	Metrics   *observability.Metrics

	apiLogger    *slog.Logger
	defectCache  *cache.Cache // cache for the distinct defect label list
	exportSerial atomic.Int64 // running serial for export file names
}

// defectCacheKey is the single key used in the defect label cache.
const defectCacheKey = "defect-labels"

// New creates the API controller and registers all routes under /api/v1.
func New(e *echo.Echo, ds datastore.Interface, settings *conf.Settings,
	processor *inspection.Processor, exporter *export.Exporter,
	metrics *observability.Metrics, logger *slog.Logger) *Controller {

	if logger == nil {
		logger = slog.Default()
	}

	c := &Controller{
		Echo:        e,
		Group:       e.Group("/api/v1"),
		DS:          ds,
		Settings:    settings,
		Processor:   processor,
		Exporter:    exporter,
		Metrics:     metrics,
		apiLogger:   logger,
		defectCache: cache.New(1*time.Minute, 5*time.Minute),
	}

	e.Use(middleware.Recover())
	if settings.WebServer.Debug {
		e.Use(middleware.Logger())
	}

	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	}

	c.initRecordRoutes()

	return c
}

// ErrorResponse is the JSON error body returned by all handlers. Category
// carries the error kind so clients can branch without string matching.
type ErrorResponse struct {
	Error    string `json:"error"`
	Category string `json:"category"`
}

// handleError maps an error category to an HTTP status and writes the JSON
// error body.
func (c *Controller) handleError(ctx echo.Context, err error) error {
	category := errors.CategoryOf(err)

	status := http.StatusInternalServerError
	switch category {
	case errors.CategoryNotFound:
		status = http.StatusNotFound
	case errors.CategoryValidation:
		status = http.StatusBadRequest
	case errors.CategoryDeviceUnavailable:
		status = http.StatusServiceUnavailable
	case errors.CategoryTimeout:
		status = http.StatusGatewayTimeout
	}

	if status >= http.StatusInternalServerError {
		c.apiLogger.Error("request failed",
			"path", ctx.Path(), "category", category, "error", err)
	}

	return ctx.JSON(status, &ErrorResponse{
		Error:    err.Error(),
		Category: string(category),
	})
}
