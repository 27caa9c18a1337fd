package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/yndnr/guardian/internal/telemetry/logger"
)

// Server represents the HTTP server.
type Server struct {
	httpServer *http.Server
	logger     logger.Logger
	listener   net.Listener
	errCh      chan error
}

// New creates a new HTTP server.
func New(addr string, handler http.Handler, log logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: log,
		errCh:  make(chan error, 1),
	}
}

// Start binds the listen address and serves in the background. Bind
// errors are returned directly; later serve errors go to Err.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.logger.Info("http server listening", "addr", ln.Addr().String())

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server failed", "error", err)
			s.errCh <- err
		}
		close(s.errCh)
	}()
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Err reports a serve failure after Start. It is closed once serving stops.
func (s *Server) Err() <-chan error {
	return s.errCh
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
