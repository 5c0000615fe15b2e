package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/callistoworks/parley/internal/health"
	"github.com/callistoworks/parley/internal/observe"
)

// Config holds the HTTP server settings.
type Config struct {
	// ListenAddr is the TCP address to listen on. Default ":8080".
	ListenAddr string

	// ReadTimeout and WriteTimeout bound individual requests. WriteTimeout
	// zero is respected as-is: the live WebSocket endpoint holds its
	// connection open for the whole conversation.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// ShutdownTimeout caps graceful drain. Default 15s.
	ShutdownTimeout time.Duration
}

// Server ties the session manager, health checks and metrics to an
// http.Server.
type Server struct {
	cfg      Config
	sessions *SessionManager
	health   *health.Handler
	metrics  *observe.Metrics

	httpSrv *http.Server
}

// New wires a Server. metrics may be nil to use the process defaults.
func New(cfg Config, sessions *SessionManager, checkers []health.Checker, metrics *observe.Metrics) *Server {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 15 * time.Second
	}
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	s := &Server{
		cfg:      cfg,
		sessions: sessions,
		health:   health.New(checkers...),
		metrics:  metrics,
	}
	s.httpSrv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.Routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Run serves until ctx is cancelled, then drains connections within the
// shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		observe.Logger(ctx).Info("http server listening", "addr", s.cfg.ListenAddr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: listen on %s: %w", s.cfg.ListenAddr, err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
