package apihttp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"torrentstream/bridge/internal/bridge"
	"torrentstream/bridge/internal/domain"
)

// StatusSource exposes the running loop's state.
type StatusSource interface {
	Snapshot() bridge.Snapshot
}

// CycleHistory lists past cycles, newest first.
type CycleHistory interface {
	Recent(ctx context.Context, limit int64) ([]domain.Cycle, error)
}

// Server is the bridge's local status endpoint.
type Server struct {
	status    StatusSource
	history   CycleHistory
	logger    *slog.Logger
	metrics   http.Handler
	rateRPS   float64
	rateBurst int
	handler   http.Handler
}

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithHistory(history CycleHistory) ServerOption {
	return func(s *Server) { s.history = history }
}

// WithMetricsHandler replaces the default promhttp handler on /metrics.
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(s *Server) {
		if h != nil {
			s.metrics = h
		}
	}
}

func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) {
		if rps > 0 && burst > 0 {
			s.rateRPS = rps
			s.rateBurst = burst
		}
	}
}

func NewServer(status StatusSource, opts ...ServerOption) *Server {
	s := &Server{
		status:    status,
		logger:    slog.Default(),
		metrics:   promhttp.Handler(),
		rateRPS:   10,
		rateBurst: 20,
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/cycles", s.handleCycles)
	mux.Handle("/metrics", s.metrics)

	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "bridge-status",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/metrics" && r.URL.Path != "/health"
		}),
	)
	s.handler = recoveryMiddleware(s.logger, rateLimitMiddleware(s.rateRPS, s.rateBurst, metricsMiddleware(traced)))
	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
