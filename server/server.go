package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caasmo/gatekeeper/config"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"
)

// Daemon is a background component started after the listener is bound and
// stopped during graceful shutdown.
type Daemon interface {
	Name() string
	Start() error
	Stop(ctx context.Context) error
}

type Server struct {
	configProvider *config.Provider
	handler        http.Handler
	logger         *slog.Logger
	daemons        []Daemon

	// reloadFunc runs on SIGHUP. Its error is logged, the server keeps running.
	reloadFunc func() error

	// exitFunc terminates the process. Replaced in tests.
	exitFunc func(int)

	addr  net.Addr
	ready chan struct{}
}

func NewServer(provider *config.Provider, handler http.Handler, logger *slog.Logger, reloadFunc func() error) *Server {
	if reloadFunc == nil {
		reloadFunc = func() error { return nil }
	}
	return &Server{
		configProvider: provider,
		handler:        handler,
		logger:         logger,
		reloadFunc:     reloadFunc,
		exitFunc:       os.Exit,
		ready:          make(chan struct{}),
	}
}

// AddDaemon registers d. Daemons start in registration order and stop
// together on shutdown. Must be called before Run.
func (s *Server) AddDaemon(d Daemon) {
	s.daemons = append(s.daemons, d)
}

// Ready is closed once the listener is bound and every daemon has started.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr is the bound listener address. Valid after Ready is closed.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// Run binds the listener, starts the daemons and serves until SIGINT,
// SIGTERM or SIGQUIT, or a serve error. It always ends by calling exitFunc:
// 0 after a clean shutdown, 1 otherwise.
func (s *Server) Run() {
	cfg := s.configProvider.Get().Server

	s.logger.Info("Server configuration",
		"addr", cfg.Addr,
		"read_timeout", cfg.ReadTimeout.Duration,
		"read_header_timeout", cfg.ReadHeaderTimeout.Duration,
		"write_timeout", cfg.WriteTimeout.Duration,
		"idle_timeout", cfg.IdleTimeout.Duration,
		"shutdown_timeout", cfg.ShutdownGracefulTimeout.Duration,
		"max_connections", cfg.MaxConnections,
	)

	// Bind synchronously so that an unavailable port is a startup failure.
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		s.logger.Error("Failed to bind listener", "addr", cfg.Addr, "err", err)
		s.exitFunc(1)
		return
	}
	if cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, cfg.MaxConnections)
	}
	s.addr = ln.Addr()

	srv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       cfg.ReadTimeout.Duration,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout.Duration,
		WriteTimeout:      cfg.WriteTimeout.Duration,
		IdleTimeout:       cfg.IdleTimeout.Duration,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sigChan)

	serverError := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", "addr", s.addr.String())
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Serve error", "err", err)
			serverError <- err
		}
	}()

	started, err := s.startDaemons()
	if err != nil {
		s.logger.Error("Daemon failed to start - shutting down", "err", err)
		s.shutdown(srv, started, cfg.ShutdownGracefulTimeout.Duration)
		s.exitFunc(1)
		return
	}
	close(s.ready)

	exitCode := 0
wait:
	for {
		select {
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				s.logger.Info("Received SIGHUP - reloading")
				if err := s.reloadFunc(); err != nil {
					s.logger.Error("Reload failed", "err", err)
				}
				continue
			}
			s.logger.Info("Received shutdown signal - gracefully shutting down", "signal", sig.String())
			break wait
		case err := <-serverError:
			s.logger.Error("Server error - initiating shutdown", "err", err)
			exitCode = 1
			break wait
		}
	}

	if err := s.shutdown(srv, started, cfg.ShutdownGracefulTimeout.Duration); err != nil {
		s.logger.Error("Error during shutdown", "err", err)
		exitCode = 1
	}

	if exitCode == 0 {
		s.logger.Info("All systems stopped gracefully")
	}
	s.exitFunc(exitCode)
}

// startDaemons starts the daemons in order and returns those that started.
func (s *Server) startDaemons() ([]Daemon, error) {
	started := make([]Daemon, 0, len(s.daemons))
	for _, d := range s.daemons {
		s.logger.Info("Starting daemon", "daemon", d.Name())
		if err := d.Start(); err != nil {
			s.logger.Error("Failed to start daemon", "daemon", d.Name(), "err", err)
			return started, err
		}
		started = append(started, d)
	}
	return started, nil
}

// shutdown stops the HTTP server and the daemons concurrently, bounded by
// timeout.
func (s *Server) shutdown(srv *http.Server, daemons []Daemon, timeout time.Duration) error {
	gracefulCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	shutdownGroup, _ := errgroup.WithContext(gracefulCtx)

	shutdownGroup.Go(func() error {
		s.logger.Info("Shutting down HTTP server")
		if err := srv.Shutdown(gracefulCtx); err != nil {
			s.logger.Error("HTTP server shutdown error", "err", err)
			return err
		}
		s.logger.Info("HTTP server stopped gracefully")
		return nil
	})

	for _, d := range daemons {
		shutdownGroup.Go(func() error {
			s.logger.Info("Stopping daemon", "daemon", d.Name())
			if err := d.Stop(gracefulCtx); err != nil {
				s.logger.Error("Daemon stop error", "daemon", d.Name(), "err", err)
				return err
			}
			s.logger.Info("Daemon stopped", "daemon", d.Name())
			return nil
		})
	}

	return shutdownGroup.Wait()
}
