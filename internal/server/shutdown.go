package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"go.uber.org/multierr"

	"rfm-dashboard/internal/config"
)

const hookTimeout = 10 * time.Second

type shutdownHook struct {
	name string
	fn   func(ctx context.Context) error
}

// GracefulServer serves HTTP until it is signalled, then drains requests
// and runs the registered shutdown hooks.
type GracefulServer struct {
	server *http.Server
	logger *slog.Logger
	config *config.Config

	mu    sync.Mutex
	hooks []shutdownHook
}

func NewGracefulServer(server *http.Server, logger *slog.Logger, config *config.Config) *GracefulServer {
	return &GracefulServer{
		server: server,
		logger: logger,
		config: config,
	}
}

// RegisterShutdownHook adds a named cleanup step. Hooks run concurrently
// after the HTTP server has finished in-flight requests, so they may close
// resources the handlers use.
func (gs *GracefulServer) RegisterShutdownHook(name string, fn func(ctx context.Context) error) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.hooks = append(gs.hooks, shutdownHook{name: name, fn: fn})
}

func (gs *GracefulServer) ListenAndServe() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return gs.Run(ctx)
}

// Run serves until ctx is done, then shuts down within the configured
// timeout. Listen errors are returned before anything is served.
func (gs *GracefulServer) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", gs.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", gs.server.Addr, err)
	}

	gs.logger.Info("starting server",
		"addr", ln.Addr().String(),
		"read_timeout", gs.config.Server.ReadTimeout,
		"write_timeout", gs.config.Server.WriteTimeout,
	)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- gs.server.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		gs.logger.Info("shutdown signal received", "cause", context.Cause(ctx))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), gs.config.Server.ShutdownTimeout)
	defer cancel()
	return gs.shutdown(shutdownCtx)
}

func (gs *GracefulServer) shutdown(ctx context.Context) error {
	start := time.Now()
	gs.logger.Info("stopping HTTP server", "timeout", gs.config.Server.ShutdownTimeout)

	var errs error
	if err := gs.server.Shutdown(ctx); err != nil {
		gs.logger.Error("HTTP server shutdown failed", "error", err)
		errs = multierr.Append(errs, fmt.Errorf("http server shutdown: %w", err))
	}
	errs = multierr.Append(errs, gs.runHooks(ctx))

	gs.logger.Info("graceful shutdown completed",
		"duration", time.Since(start),
		"errors", len(multierr.Errors(errs)),
	)
	return errs
}

func (gs *GracefulServer) runHooks(ctx context.Context) error {
	gs.mu.Lock()
	hooks := slices.Clone(gs.hooks)
	gs.mu.Unlock()

	errs := make([]error, len(hooks))
	var wg sync.WaitGroup
	for i, h := range hooks {
		wg.Add(1)
		go func() {
			defer wg.Done()

			hookCtx, cancel := context.WithTimeout(ctx, hookTimeout)
			defer cancel()

			if err := h.fn(hookCtx); err != nil {
				gs.logger.Error("shutdown hook failed", "hook", h.name, "error", err)
				errs[i] = fmt.Errorf("shutdown hook %q: %w", h.name, err)
				return
			}
			gs.logger.Debug("shutdown hook completed", "hook", h.name)
		}()
	}
	wg.Wait()

	return multierr.Combine(errs...)
}
