package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/customer-import/internal/pkg/logger"
)

// Server wraps the HTTP listener. The import worker runs in its own
// goroutine behind the Supervisor, so request handling is never blocked
// by ingest I/O.
type Server struct {
	addr   string
	router *chi.Mux
	server *http.Server
}

// NewServer builds the HTTP server around a configured router.
func NewServer(addr string, router *chi.Mux) *Server {
	return &Server{
		addr:   addr,
		router: router,
		server: &http.Server{
			Addr:    addr,
			Handler: router,
			// No WriteTimeout: the SSE stream is long-lived by design.
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Start begins serving and blocks until the listener stops.
func (s *Server) Start() error {
	logger.Info("http server listening", "addr", s.addr)
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
