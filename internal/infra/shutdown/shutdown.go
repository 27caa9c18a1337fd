package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/yndnr/guardian/internal/telemetry/logger"
)

// Hook is a cleanup function run during shutdown.
type Hook func(context.Context) error

type namedHook struct {
	name string
	fn   Hook
}

// Handler handles graceful shutdown.
type Handler struct {
	timeout time.Duration
	logger  logger.Logger

	mu    sync.Mutex
	hooks []namedHook

	ctx     context.Context
	cancel  context.CancelCauseFunc
	stopSig func() bool
	once    sync.Once
	done    chan struct{}
}

// ErrTriggered is the cancellation cause when Trigger is called.
var ErrTriggered = errors.New("shutdown triggered")

// NewHandler creates a new shutdown handler. Signal delivery starts
// immediately so a signal arriving before Wait is not lost.
func NewHandler(timeout time.Duration, log logger.Logger) *Handler {
	if log == nil {
		log = logger.Default()
	}
	ctx, cancel := context.WithCancelCause(context.Background())
	h := &Handler{
		timeout: timeout,
		logger:  log,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	stop := context.AfterFunc(ctx, func() { signal.Stop(sigCh) })
	h.stopSig = stop
	go func() {
		select {
		case sig := <-sigCh:
			h.logger.Info("received signal", "signal", sig.String())
			cancel(fmt.Errorf("signal %s", sig))
		case <-ctx.Done():
		}
	}()
	return h
}

// Context returns a context cancelled when shutdown begins.
func (h *Handler) Context() context.Context {
	return h.ctx
}

// Trigger begins shutdown without a signal.
func (h *Handler) Trigger() {
	h.cancel(ErrTriggered)
}

// OnShutdown registers a shutdown hook.
// Hooks are called in reverse order of registration.
func (h *Handler) OnShutdown(name string, hook Hook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, namedHook{name: name, fn: hook})
}

// Wait blocks until shutdown begins, then runs the hooks. Every hook
// runs even if an earlier one fails; failures are joined.
func (h *Handler) Wait() error {
	<-h.ctx.Done()

	var err error
	h.once.Do(func() {
		err = h.runHooks()
		close(h.done)
	})
	return err
}

func (h *Handler) runHooks() error {
	h.logger.Info("shutting down", "cause", context.Cause(h.ctx).Error(), "timeout", h.timeout)

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	h.mu.Lock()
	hooks := make([]namedHook, len(h.hooks))
	copy(hooks, h.hooks)
	h.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i].fn(ctx); err != nil {
			h.logger.Error("shutdown hook failed", "hook", hooks[i].name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", hooks[i].name, err))
		}
	}
	return errors.Join(errs...)
}

// Done returns a channel that closes when shutdown is complete.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}
