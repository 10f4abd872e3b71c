package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/wonny/insiderperf/pkg/config"
	"github.com/wonny/insiderperf/pkg/logger"
)

const (
	// POST /api/runs holds the connection for a whole recompute
	recomputeWriteTimeout = 5 * time.Minute
	drainTimeout          = 30 * time.Second
)

// Server runs the attribution API until its context ends, then drains
// in-flight requests.
// ⭐ SSOT: HTTP server settings live here only
type Server struct {
	http   *http.Server
	drain  time.Duration
	logger *logger.Logger
}

// New configures a server on cfg.Port
func New(cfg *config.Config, log *logger.Logger, router http.Handler) *Server {
	return &Server{
		http: &http.Server{
			Addr:              net.JoinHostPort("", cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      recomputeWriteTimeout,
			IdleTimeout:       time.Minute,
		},
		drain:  drainTimeout,
		logger: log.WithFields(logger.Fields{"module": "server", "env": cfg.Env}),
	}
}

// Serve listens on the configured address and blocks until ctx is done or
// the listener fails. A cancelled context is a clean stop.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.http.Addr, err)
	}
	return s.serveOn(ctx, ln)
}

func (s *Server) serveOn(ctx context.Context, ln net.Listener) error {
	s.logger.WithField("addr", ln.Addr().String()).Info("API server listening")

	served := make(chan error, 1)
	go func() { served <- s.http.Serve(ln) }()

	select {
	case err := <-served:
		return fmt.Errorf("serve %s: %w", ln.Addr(), err)
	case <-ctx.Done():
	}

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.drain)
	defer cancel()

	s.logger.WithField("drain", s.drain.String()).Info("Draining API server")
	if err := s.http.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("drain api server: %w", err)
	}
	if err := <-served; !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve %s: %w", ln.Addr(), err)
	}
	return nil
}
