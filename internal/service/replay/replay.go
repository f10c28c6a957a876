// Package replay re-emits the archive onto the bus for manual recovery.
package replay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/webitel/im-discord-relay/internal/adapter/pubsub"
	"github.com/webitel/im-discord-relay/internal/domain/model"
)

// ErrDisabled is returned when the safety switch is off.
var ErrDisabled = errors.New("replay: disabled by safety switch")

// Source walks the archive in ascending timestamp order.
type Source interface {
	Scan(ctx context.Context, pageSize int, fn func(ts int64, payload []byte) error) error
}

// Result summarizes a replay run.
type Result struct {
	Published int
	Skipped   int
}

// Engine republishes every archived event through the live publisher contract.
// Downstream consumers see duplicates; it is never started automatically.
type Engine struct {
	source     Source
	dispatcher pubsub.EventDispatcher
	logger     *slog.Logger
	enabled    bool
	pageSize   int
}

func NewEngine(source Source, dispatcher pubsub.EventDispatcher, logger *slog.Logger, enabled bool, pageSize int) *Engine {
	return &Engine{
		source:     source,
		dispatcher: dispatcher,
		logger:     logger,
		enabled:    enabled,
		pageSize:   pageSize,
	}
}

func (e *Engine) Enabled() bool { return e.enabled }

// Run replays the whole archive. Entries that no longer decode are logged and
// skipped; the first publish failure stops the run.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	var res Result
	if !e.enabled {
		e.logger.Warn("REPLAY_REFUSED: safety_switch_off")
		return res, ErrDisabled
	}

	e.logger.Warn("REPLAY_STARTED", "page_size", e.pageSize)

	err := e.source.Scan(ctx, e.pageSize, func(ts int64, payload []byte) error {
		ev, err := model.DecodeEvent(payload)
		if err != nil {
			e.logger.Error("REPLAY_DECODE_FAILED", "err", err, "ts", ts)
			res.Skipped++
			return nil
		}

		if err := e.dispatcher.Publish(ctx, ev); err != nil {
			return fmt.Errorf("replay: publish event at %d: %w", ts, err)
		}
		res.Published++
		return nil
	})
	if err != nil {
		e.logger.Error("REPLAY_ABORTED", "err", err, "published", res.Published, "skipped", res.Skipped)
		return res, err
	}

	e.logger.Warn("REPLAY_COMPLETED", "published", res.Published, "skipped", res.Skipped)
	return res, nil
}
