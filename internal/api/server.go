// Package api serves the KPI, metadata, timeseries, emission factor and config routes over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/j-veylop/energy-kpi/internal/cache"
	"github.com/j-veylop/energy-kpi/internal/logger"
	"github.com/j-veylop/energy-kpi/internal/metrics"
	"github.com/j-veylop/energy-kpi/internal/services/kpi"
)

// Config configures the HTTP server.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CacheTTL        time.Duration
}

// Server is the HTTP API.
type Server struct {
	httpServer *http.Server
	kpi        *kpi.Service
	store      Store
	cache      cache.Store
	metrics    *metrics.Metrics
	log        zerolog.Logger
	now        func() time.Time
	config     Config
}

// NewServer builds the server and its routes. A nil cache disables meta caching.
func NewServer(cfg Config, svc *kpi.Service, store Store, c cache.Store, m *metrics.Metrics) *Server {
	if c == nil {
		c = cache.NoopStore{}
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = cache.DefaultTTLSeconds * time.Second
	}

	s := &Server{
		kpi:     svc,
		store:   store,
		cache:   c,
		metrics: m,
		log:     logger.With("http"),
		now:     time.Now,
		config:  cfg,
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the routed handler wrapped in middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handlePing)
	mux.HandleFunc("GET /v1/{$}", s.handlePing)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", s.metricsHandler())

	s.kpiRoutes(mux)

	mux.HandleFunc("POST /v1/meta/{$}", s.handleCreateMeta)
	mux.HandleFunc("GET /v1/meta/{$}", s.handleListMeta)
	mux.HandleFunc("GET /v1/meta/{identifier}/{$}", s.handleGetMeta)

	mux.HandleFunc("POST /v1/ts/{$}", s.handleInsertTimeseries)
	mux.HandleFunc("GET /v1/ts/{identifier}/{$}", s.handleGetTimeseries)
	mux.HandleFunc("GET /v1/ts/{identifier}/resample/{$}", s.handleResampleTimeseries)

	mux.HandleFunc("GET /v1/emission_factor/{$}", s.handleListFactors)
	mux.HandleFunc("POST /v1/emission_factor/{$}", s.handleCreateFactor)

	mux.HandleFunc("GET /v1/config/{$}", s.handleGetConfig)
	mux.HandleFunc("PUT /v1/config/{$}", s.handlePutConfig)
	mux.HandleFunc("POST /v1/config/{$}", s.handlePutConfig)

	return withRequestID(withAccessLog(s.log, s.metrics, withRecover(s.log, mux)))
}

func (s *Server) metricsHandler() http.Handler {
	if s.metrics == nil {
		return http.NotFoundHandler()
	}
	return s.metrics.Handler()
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", ln.Addr().String()).Msg("http server listening")
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}
