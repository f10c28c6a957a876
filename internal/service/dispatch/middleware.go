package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/webitel/im-discord-relay/internal/domain/model"
)

// DispatcherMiddleware adds timing and outcome logging around a Dispatcher.
type DispatcherMiddleware struct {
	Next   Dispatcher
	Logger *slog.Logger
}

func NewDispatcherMiddleware(next Dispatcher, logger *slog.Logger) Dispatcher {
	return &DispatcherMiddleware{
		Next:   next,
		Logger: logger,
	}
}

func (m *DispatcherMiddleware) Dispatch(ctx context.Context, cmd model.Commander) error {
	start := time.Now()

	err := m.Next.Dispatch(ctx, cmd)

	duration := time.Since(start)
	if err != nil {
		m.Logger.Error("COMMAND_DISPATCH_FAILED",
			"err", err,
			"kind", cmd.GetKind(),
			"channel_id", cmd.GetChannelID(),
			"duration_ms", duration.Milliseconds(),
		)
	} else {
		m.Logger.Debug("COMMAND_DISPATCHED",
			"kind", cmd.GetKind(),
			"channel_id", cmd.GetChannelID(),
			"duration_ms", duration.Milliseconds(),
		)
	}

	return err
}
