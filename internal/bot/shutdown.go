// internal/bot/shutdown.go
package bot

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CloseFunc allows using a function as an io.Closer.
type CloseFunc func() error

func (f CloseFunc) Close() error {
	return f()
}

// ShutdownHandler closes registered services in reverse registration
// order under one shared deadline.
type ShutdownHandler struct {
	logger   *zap.Logger
	mu       sync.Mutex
	services []namedService
	timeout  time.Duration
}

type namedService struct {
	name   string
	closer io.Closer
}

// NewShutdownHandler creates a handler with the given total shutdown
// budget. A non-positive timeout falls back to 30 seconds.
func NewShutdownHandler(logger *zap.Logger, timeout time.Duration) *ShutdownHandler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownHandler{
		logger:  logger.Named("shutdown"),
		timeout: timeout,
	}
}

// Add registers a service for shutdown.
func (sh *ShutdownHandler) Add(name string, closer io.Closer) {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sh.services = append(sh.services, namedService{name: name, closer: closer})
	sh.logger.Debug("Registered service for shutdown", zap.String("service", name))
}

// AddFunc registers a shutdown function.
func (sh *ShutdownHandler) AddFunc(name string, fn func() error) {
	sh.Add(name, CloseFunc(fn))
}

// ShutdownAll runs Shutdown under the handler's own timeout.
func (sh *ShutdownHandler) ShutdownAll() error {
	ctx, cancel := context.WithTimeout(context.Background(), sh.timeout)
	defer cancel()
	return sh.Shutdown(ctx)
}

// Shutdown closes every registered service one at a time in LIFO order,
// so the most recently started dependency goes down first. Each Close
// runs in its own goroutine only so the context can bound it; a hung
// Close is abandoned rather than blocking the rest of the teardown.
func (sh *ShutdownHandler) Shutdown(ctx context.Context) error {
	sh.mu.Lock()
	services := make([]namedService, len(sh.services))
	copy(services, sh.services)
	sh.mu.Unlock()

	sh.logger.Info("Starting graceful shutdown", zap.Int("services", len(services)))

	var failed []string
	for i := len(services) - 1; i >= 0; i-- {
		svc := services[i]
		sh.logger.Info("Shutting down service", zap.String("service", svc.name))

		done := make(chan error, 1)
		go func() {
			done <- svc.closer.Close()
		}()

		select {
		case err := <-done:
			if err != nil {
				sh.logger.Error("Failed to shutdown service",
					zap.String("service", svc.name),
					zap.Error(err))
				failed = append(failed, svc.name)
			} else {
				sh.logger.Info("Service shutdown complete", zap.String("service", svc.name))
			}
		case <-ctx.Done():
			sh.logger.Error("Shutdown timeout for service", zap.String("service", svc.name))
			failed = append(failed, svc.name)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("shutdown incomplete: %s", strings.Join(failed, ", "))
	}
	sh.logger.Info("Graceful shutdown completed successfully")
	return nil
}
