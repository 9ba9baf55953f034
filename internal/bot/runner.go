// internal/bot/runner.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/lp-hedger/internal/api"
	"github.com/rovshanmuradov/lp-hedger/internal/config"
)

// Runner owns the process lifecycle: it builds the service, serves the
// dashboard API and turns SIGINT/SIGTERM into an orderly teardown.
type Runner struct {
	logger     *zap.Logger
	cfg        *config.Config
	service    *Service
	httpServer *http.Server
	shutdownCh chan os.Signal
}

func NewRunner(cfg *config.Config, logger *zap.Logger) *Runner {
	return &Runner{
		logger:     logger,
		cfg:        cfg,
		shutdownCh: make(chan os.Signal, 1),
	}
}

// Run blocks until a shutdown signal arrives or a component fails, then
// tears everything down before returning.
func (r *Runner) Run(ctx context.Context) error {
	signal.Notify(r.shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	shutdownCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		sig := <-r.shutdownCh
		r.logger.Info("📡 Signal received: " + sig.String())
		cancel()
	}()

	service, err := NewService(shutdownCtx, &ServiceConfig{Config: r.cfg, Logger: r.logger})
	if err != nil {
		return err
	}
	r.service = service

	if _, err := service.Start(); err != nil {
		return fmt.Errorf("failed to start hedger: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", r.cfg.Dashboard.Host, r.cfg.Dashboard.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           api.NewServer(service, r.logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	r.logger.Info("🌐 Dashboard API listening", zap.String("addr", addr))

	g, gctx := errgroup.WithContext(shutdownCtx)
	g.Go(func() error {
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return r.teardown()
	})

	return g.Wait()
}

// teardown closes the HTTP server first so no request observes a
// half-stopped bot, then the bot itself.
func (r *Runner) teardown() error {
	handler := NewShutdownHandler(r.logger, 30*time.Second)
	handler.AddFunc("bot_service", r.service.Close)
	handler.AddFunc("http_server", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return r.httpServer.Shutdown(ctx)
	})
	return handler.ShutdownAll()
}

// Shutdown flushes the logger once Run has returned.
func (r *Runner) Shutdown() {
	r.logger.Info("👋 Hedger shutting down gracefully")

	if err := r.logger.Sync(); err != nil {
		if !os.IsNotExist(err) &&
			err.Error() != "sync /dev/stdout: invalid argument" &&
			err.Error() != "sync /dev/stderr: inappropriate ioctl for device" {
			fmt.Fprintf(os.Stderr, "failed to sync logger during shutdown: %v\n", err)
		}
	}
}
