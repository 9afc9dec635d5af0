package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/wudi/proxymanager/internal/config"
	"github.com/wudi/proxymanager/internal/logging"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Server wraps the application with an HTTP listener and its lifecycle.
type Server struct {
	app        *App
	httpServer *http.Server
	config     *config.Config

	mu       sync.Mutex
	listener net.Listener
}

// New creates a server for cfg. Nothing is bound until Start.
func New(cfg *config.Config) (*Server, error) {
	app, err := NewApp(cfg)
	if err != nil {
		return nil, err
	}
	return newServer(cfg, app), nil
}

func newServer(cfg *config.Config, app *App) *Server {
	return &Server{
		app:    app,
		config: cfg,
		httpServer: &http.Server{
			Addr:              cfg.Listen.Address,
			Handler:           app.Handler(),
			ReadTimeout:       cfg.Listen.ReadTimeout,
			WriteTimeout:      cfg.Listen.WriteTimeout,
			IdleTimeout:       cfg.Listen.IdleTimeout,
			ReadHeaderTimeout: cfg.Listen.ReadHeaderTimeout,
			MaxHeaderBytes:    cfg.Listen.MaxHeaderBytes,
		},
	}
}

// Start binds the listen address. Serving happens in Serve.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.Listen.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen.Address, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	logging.Info("Listening",
		zap.String("address", ln.Addr().String()),
		zap.Bool("geoip", s.app.resolver.Enabled()),
		zap.Any("proxies", s.app.table.Addresses()),
	)
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until the server is shut down. Start must have
// been called.
func (s *Server) Serve() error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return fmt.Errorf("server not started")
	}

	if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Run starts the server and blocks until ctx is done, SIGINT or SIGTERM is
// received, or serving fails. It then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(s.Serve)
	g.Go(func() error {
		<-gctx.Done()
		logging.Info("Shutting down gracefully...")
		return s.Shutdown(s.config.Shutdown.Timeout)
	})

	return g.Wait()
}

// Shutdown drains in-flight requests and releases the GeoIP database.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var shutdownErr error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		logging.Error("HTTP server shutdown error", zap.Error(err))
		shutdownErr = err
	}

	s.mu.Lock()
	if s.listener != nil {
		// Already closed by Shutdown when Serve was running.
		s.listener.Close()
	}
	s.mu.Unlock()

	if err := s.app.Close(); err != nil {
		logging.Error("GeoIP database close error", zap.Error(err))
		if shutdownErr == nil {
			shutdownErr = err
		}
	}

	logging.Info("Server shutdown complete")
	return shutdownErr
}
