/*
Package drain moves control-plane commands from the pending queue to the
processed queue and dispatches them.

Key points:
  - Transfer: every item is moved by one atomic store primitive (pop oldest
    from pending, push onto processed). Dispatch only ever sees items that are
    already in the processed queue.
  - Concurrency: cycles may overlap freely; two readiness signals arriving back
    to back run two cycles that share the queue without any local locking.
  - Isolation: a command that fails to decode or dispatch is reported on the
    failure channel and logged; the cycle carries on with the next item.
*/
package drain

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/webitel/im-discord-relay/internal/domain/model"
	"github.com/webitel/im-discord-relay/internal/service/dispatch"
)

// Queue is the atomic transfer primitive. ok is false when pending is empty.
type Queue interface {
	Transfer(ctx context.Context) (raw []byte, ok bool, err error)
}

// Failure describes one processed item that could not be dispatched.
// The item itself stays in the processed queue.
type Failure struct {
	Raw []byte
	Err error
}

func (f Failure) Error() string { return f.Err.Error() }
func (f Failure) Unwrap() error { return f.Err }

// Stats summarizes one drain cycle.
type Stats struct {
	Transferred int
	Failed      int
}

type Drainer struct {
	queue      Queue
	dispatcher dispatch.Dispatcher
	logger     *slog.Logger
	failures   chan Failure
}

func NewDrainer(queue Queue, dispatcher dispatch.Dispatcher, logger *slog.Logger, opts ...Option) *Drainer {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Drainer{
		queue:      queue,
		dispatcher: dispatcher,
		logger:     logger,
		failures:   make(chan Failure, cfg.failureBuffer),
	}
}

// Failures exposes per-item failures. Sends never block the drain: when the
// buffer is full the failure is only logged.
func (d *Drainer) Failures() <-chan Failure { return d.failures }

// Drain transfers and dispatches items until the pending queue is empty.
// Only a store failure ends the cycle early; item failures do not.
func (d *Drainer) Drain(ctx context.Context) (Stats, error) {
	var stats Stats

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		raw, ok, err := d.queue.Transfer(ctx)
		if err != nil {
			return stats, fmt.Errorf("drain: %w", err)
		}
		if !ok {
			return stats, nil
		}
		stats.Transferred++

		if err := d.process(ctx, raw); err != nil {
			stats.Failed++
			d.report(Failure{Raw: raw, Err: err})
		}
	}
}

func (d *Drainer) process(ctx context.Context, raw []byte) (err error) {
	ctx, span := otel.Tracer("relay").Start(ctx, "drain.item")
	defer span.End()

	// [PANIC_RECOVERY]
	// A panicking dispatch must not take the rest of the queue down with it.
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("PANIC_RECOVERED", "err", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("drain: panic: %v", r)
		}
	}()

	// [DECODING] discriminator first, then the concrete variant
	cmd, err := model.DecodeCommand(raw)
	if err != nil {
		return fmt.Errorf("drain: decode: %w", err)
	}
	span.SetAttributes(attribute.String("command.kind", string(cmd.GetKind())))

	// [EXECUTION]
	if err := d.dispatcher.Dispatch(ctx, cmd); err != nil {
		return fmt.Errorf("drain: %w", err)
	}
	return nil
}

func (d *Drainer) report(f Failure) {
	d.logger.Error("DRAIN_ITEM_FAILED", "err", f.Err, "raw", string(f.Raw))

	select {
	case d.failures <- f:
	default:
		d.logger.Warn("DRAIN_FAILURE_DROPPED: channel_full", "raw", string(f.Raw))
	}
}
