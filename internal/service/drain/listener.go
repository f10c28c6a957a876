package drain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Subscription delivers readiness values until closed.
type Subscription interface {
	Signals() <-chan string
	Close() error
}

// Notifier opens a subscription to the readiness channel.
type Notifier interface {
	Subscribe(ctx context.Context) (Subscription, error)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context) (Subscription, error)

func (f NotifierFunc) Subscribe(ctx context.Context) (Subscription, error) { return f(ctx) }

// Listener runs one drain cycle per readiness signal (Idle -> Draining -> Idle).
// Cycles triggered by overlapping signals run concurrently.
//
// [LIFECYCLE]
// Started on gateway connect, stopped on disconnect and restartable afterwards.
type Listener struct {
	drainer  *Drainer
	notifier Notifier
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	sub    Subscription
	group  *errgroup.Group
}

func NewListener(drainer *Drainer, notifier Notifier, logger *slog.Logger) *Listener {
	return &Listener{drainer: drainer, notifier: notifier, logger: logger}
}

// Start subscribes to the readiness channel. It returns once the subscription
// is live. Calling Start on a running listener is a no-op.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		return nil
	}

	sub, err := l.notifier.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("drain listener: subscribe: %w", err)
	}

	// Cycles outlive the caller's context; only Stop ends them.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	g := new(errgroup.Group)
	g.Go(func() error {
		l.listen(runCtx, g, sub)
		return nil
	})

	l.cancel, l.sub, l.group = cancel, sub, g
	l.logger.Info("DRAIN_LISTENER_STARTED")
	return nil
}

// Stop closes the subscription, cancels in-flight cycles and waits for them.
func (l *Listener) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel == nil {
		return nil
	}

	l.cancel()
	err := l.sub.Close()
	_ = l.group.Wait()

	l.cancel, l.sub, l.group = nil, nil, nil
	l.logger.Info("DRAIN_LISTENER_STOPPED")
	return err
}

// Running reports whether the listener is subscribed.
func (l *Listener) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancel != nil
}

func (l *Listener) listen(ctx context.Context, g *errgroup.Group, sub Subscription) {
	signals := sub.Signals()
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			g.Go(func() error {
				l.cycle(ctx, sig)
				return nil
			})
		}
	}
}

func (l *Listener) cycle(ctx context.Context, signal string) {
	cycleID := uuid.NewString()[:8]
	l.logger.Debug("DRAIN_CYCLE_STARTED", "cycle", cycleID, "signal", signal)

	stats, err := l.drainer.Drain(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		l.logger.Error("DRAIN_CYCLE_ABORTED",
			"cycle", cycleID,
			"err", err,
			"transferred", stats.Transferred,
			"failed", stats.Failed,
		)
		return
	}

	l.logger.Debug("DRAIN_CYCLE_COMPLETED",
		"cycle", cycleID,
		"transferred", stats.Transferred,
		"failed", stats.Failed,
	)
}
