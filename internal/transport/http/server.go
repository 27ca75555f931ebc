// Package http serves the status endpoints of a running deadline command.
//
// Routes (Go 1.22+ method-qualified patterns):
//
//	GET /health
//	GET /status
//	GET /metrics
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/snehjoshi/deadline/internal/metrics"
)

// Default scrape limits applied across all clients.
const (
	DefaultRPS   = 10.0
	DefaultBurst = 20
)

// Server wraps the stdlib HTTP server with the status route wiring.
type Server struct {
	inner *http.Server
}

// New builds a Server. status reports the wait being served; reg may be nil,
// in which case /metrics is not registered.
// The caller is responsible for calling ListenAndServe / Shutdown.
func New(status StatusFunc, reg *metrics.Registry) *Server {
	h := &Handler{status: status}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /status", h.statusHandler)

	// Metrics (Prometheus text format)
	if reg != nil {
		mux.Handle("GET /metrics", reg.Handler())
	}

	var handler http.Handler = mux
	handler = chain(handler,
		LoggingMiddleware,
		RateLimitMiddleware(DefaultRPS, DefaultBurst),
	)

	return &Server{
		inner: &http.Server{
			Handler:      handler,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Handler returns the composed http.Handler (useful for testing).
func (s *Server) Handler() http.Handler { return s.inner.Handler }

// ListenAndServe starts the server on the given address (e.g. ":9090").
// It returns when the server stops or encounters an error.
func (s *Server) ListenAndServe(addr string) error {
	s.inner.Addr = addr
	return s.inner.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting up to ctx's deadline for
// in-flight requests to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
