// Package api exposes the send pipeline over HTTP: the JSON endpoints under
// /api, the legacy /send alias, the health check and the embedded client.
package api

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ignite/blast-sender/internal/config"
	"github.com/ignite/blast-sender/internal/ratelimit"
)

// Server represents the API server
type Server struct {
	config   config.ServerConfig
	handler  http.Handler
	handlers *Handlers

	mu     sync.Mutex
	server *http.Server
}

// NewServer creates a new API server. limiter may be nil to disable rate
// limiting.
func NewServer(cfg config.ServerConfig, h *Handlers, limiter ratelimit.Limiter) *Server {
	return &Server{
		config:   cfg,
		handler:  SetupRoutes(h, cfg, limiter),
		handlers: h,
	}
}

func (s *Server) httpServer(addr string) *http.Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.handler,
		// A full batch at the default delay keeps the send request open for
		// minutes, so the write timeout is generous.
		ReadTimeout:       time.Minute,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}
	return s.server
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe(addr string) error {
	return s.httpServer(addr).ListenAndServe()
}

// Serve accepts connections on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer(ln.Addr().String()).Serve(ln)
}

// Shutdown gracefully shuts down the server, waiting for in-flight batches
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing
func (s *Server) Handler() http.Handler {
	return s.handler
}
