package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Server wraps http.Server.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
}

// NewServer serves handler on addr. With enableHTTP2, cleartext HTTP/2 (h2c)
// is accepted alongside HTTP/1.1. A positive timeout bounds reads and writes.
func NewServer(addr string, handler http.Handler, enableHTTP2 bool, timeout time.Duration) *Server {
	if enableHTTP2 {
		handler = h2c.NewHandler(handler, &http2.Server{})
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       timeout,
			WriteTimeout:      timeout,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Listen binds the address without serving, so callers learn the real
// address (useful with port 0) before Serve.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// ListenAndServe serves until Shutdown. It returns nil after a graceful
// shutdown.
func (s *Server) ListenAndServe() error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	err := s.httpServer.Serve(s.listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
