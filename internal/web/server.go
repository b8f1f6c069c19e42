// Package web serves the upload page and the analysis API over HTTP.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/GauravPandit27/AI-Data-Analyst/internal/pipeline"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const title = "AI Data Analyst"

// Options configures the HTTP server.
type Options struct {
	Addr           string
	UploadLimit    string // echo BodyLimit syntax, e.g. "32M"
	RequestLogging bool
	Version        string
	Provider       string
	Model          string
	Logger         *slog.Logger
}

// Server wires the analysis pipeline to echo routes.
type Server struct {
	e      *echo.Echo
	runner *pipeline.Runner
	opt    Options
	logger *slog.Logger
}

// New builds a server with its routes and middleware registered.
func New(runner *pipeline.Runner, opt Options) (*Server, error) {
	if opt.Addr == "" {
		opt.Addr = ":8501"
	}
	if opt.UploadLimit == "" {
		opt.UploadLimit = "32M"
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	renderer, err := newRenderer()
	if err != nil {
		return nil, err
	}
	s := &Server{e: echo.New(), runner: runner, opt: opt, logger: opt.Logger}
	s.e.HideBanner = true
	s.e.HidePort = true
	s.e.Renderer = renderer
	s.e.HTTPErrorHandler = s.errorHandler

	s.e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	s.e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return !opt.RequestLogging || c.Request().URL.Path == "/api/health"
		},
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency, "request_id", v.RequestID}
			if v.Error != nil {
				s.logger.Warn("request", append(attrs, "error", v.Error)...)
				return nil
			}
			s.logger.Info("request", attrs...)
			return nil
		},
	}))
	s.e.Use(middleware.Recover())
	s.e.Use(middleware.BodyLimit(opt.UploadLimit))

	s.e.GET("/", s.handleIndex)
	s.e.POST("/analyze", s.handleAnalyzePage)

	api := s.e.Group("/api")
	api.GET("/health", s.handleHealth)
	api.POST("/analyze", s.handleAnalyzeAPI)
	return s, nil
}

// ServeHTTP lets the server be mounted or exercised with httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.e.ServeHTTP(w, r) }

// Run listens on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.opt.Addr, "provider", s.opt.Provider, "model", s.opt.Model)
		errc <- s.e.Start(s.opt.Addr)
	}()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return s.e.Shutdown(sctx)
	}
}
