package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

// Check pings one dependency
type Check func(ctx context.Context) error

// Server exposes /metrics and health endpoints while a run is in progress
type Server struct {
	echo      *echo.Echo
	logger    ectologger.Logger
	addr      string
	version   string
	startTime time.Time
	checks    map[string]Check
	ready     atomic.Bool
}

// NewServer creates the metrics server. Checks are named dependency pings.
func NewServer(addr, version string, checks map[string]Check, logger ectologger.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)
	e.Use(otelecho.Middleware("clover"))

	s := &Server{
		echo:      e,
		logger:    logger,
		addr:      addr,
		version:   version,
		startTime: time.Now(),
		checks:    checks,
	}

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/health", s.Health)
	e.GET("/health/live", s.Live)
	e.GET("/health/ready", s.Ready)

	return s
}

// SetReady sets the readiness state
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.logger.Infof("Metrics server listening on %s", s.addr)
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// HealthStatus represents the health check response
type HealthStatus struct {
	Status     string                  `json:"status"`
	Version    string                  `json:"version"`
	Uptime     string                  `json:"uptime"`
	Checks     map[string]*CheckResult `json:"checks"`
	ReportedAt time.Time               `json:"reported_at"`
}

// CheckResult represents an individual check result
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Health returns the overall health status
func (s *Server) Health(c echo.Context) error {
	status := &HealthStatus{
		Status:     "healthy",
		Version:    s.version,
		Uptime:     time.Since(s.startTime).Round(time.Second).String(),
		Checks:     make(map[string]*CheckResult),
		ReportedAt: time.Now(),
	}

	for name, check := range s.checks {
		start := time.Now()
		err := check(c.Request().Context())
		latency := time.Since(start)

		if err != nil {
			status.Status = "unhealthy"
			status.Checks[name] = &CheckResult{Status: "unhealthy", Message: err.Error()}
			continue
		}
		status.Checks[name] = &CheckResult{Status: "healthy", Latency: latency.String()}
	}

	httpStatus := http.StatusOK
	if status.Status == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}
	return c.JSON(httpStatus, status)
}

// Live returns the liveness status
func (s *Server) Live(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "alive"})
}

// Ready reports whether the run has finished loading its inputs
func (s *Server) Ready(c echo.Context) error {
	if s.ready.Load() {
		return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
	}
	return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
}
