// Package server exposes the page and the JSON API over HTTP.
package server

import (
	"context"
	"embed"
	"html/template"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"legal-explainer/internal/analysis"
	"legal-explainer/internal/config"
	"legal-explainer/internal/metrics"
	"legal-explainer/internal/ui"
)

//go:embed templates/index.html
var templateFS embed.FS

// multipartOverhead is the room left above the file limit for form framing.
const multipartOverhead = 1 << 20

type Server struct {
	echo     *echo.Echo
	addr     string
	orch     *ui.Orchestrator
	pipeline *analysis.Pipeline
	metrics  *metrics.Exporter
	page     *template.Template
	maxBody  int64

	// background analyses started from the page
	running sync.WaitGroup
}

func New(cfg *config.Config, orch *ui.Orchestrator, pipeline *analysis.Pipeline, m *metrics.Exporter) *Server {
	s := &Server{
		echo:     echo.New(),
		addr:     cfg.Server.Addr,
		orch:     orch,
		pipeline: pipeline,
		metrics:  m,
		page:     template.Must(template.ParseFS(templateFS, "templates/index.html")),
		maxBody:  pipeline.Validator().MaxBytes() + multipartOverhead,
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true

	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())
	s.echo.Use(requestLogger())

	s.echo.GET("/", s.handleIndex)
	s.echo.POST("/select", s.handleSelect)
	s.echo.POST("/analyze", s.handleAnalyze)
	s.echo.POST("/toggles", s.handleToggles)
	s.echo.POST("/drag", s.handleDrag)
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(m.Handler()))

	api := s.echo.Group("/api/v1")
	api.GET("/state", s.handleState)
	api.POST("/explain", s.handleExplain, rateLimiter(cfg.Server.RateLimitPerSecond))

	return s
}

func rateLimiter(perSecond float64) echo.MiddlewareFunc {
	if perSecond <= 0 {
		perSecond = 1
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(perSecond),
		Burst:     int(math.Max(1, math.Ceil(perSecond))),
		ExpiresIn: 3 * time.Minute,
	})
	return middleware.RateLimiter(store)
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			event := log.Info()
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				event = log.Error().Err(v.Error)
			}
			event.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("HTTP request")
			return nil
		},
	})
}

// ServeHTTP lets the server be driven directly, as in tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start blocks serving until Shutdown. It returns http.ErrServerClosed after
// a graceful stop.
func (s *Server) Start() error {
	log.Info().Str("addr", s.addr).Msg("Starting HTTP server")
	return s.echo.Start(s.addr)
}

// Shutdown stops accepting requests and waits for running analyses.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.echo.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Warn().Msg("Shutdown deadline reached with an analysis still running")
	}
	return err
}
