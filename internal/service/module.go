package service

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/webitel/im-discord-relay/config"
	"github.com/webitel/im-discord-relay/internal/adapter/discord"
	"github.com/webitel/im-discord-relay/internal/adapter/pubsub"
	"github.com/webitel/im-discord-relay/internal/adapter/store"
	"github.com/webitel/im-discord-relay/internal/domain/clock"
	"github.com/webitel/im-discord-relay/internal/service/capture"
	"github.com/webitel/im-discord-relay/internal/service/dispatch"
	"github.com/webitel/im-discord-relay/internal/service/drain"
	"github.com/webitel/im-discord-relay/internal/service/relay"
	"github.com/webitel/im-discord-relay/internal/service/replay"
)

var Module = fx.Module(
	"service",

	fx.Provide(
		// Outbound path
		func() *clock.Clock { return clock.New() },
		func(d *discord.Directory) capture.Lookup { return d },
		capture.NewMapper,
		fx.Annotate(
			func(st *store.Store, d pubsub.EventDispatcher, logger *slog.Logger) *relay.Service {
				return relay.NewService(relay.NewArchiver(st), d, logger)
			},
			fx.As(new(relay.Relayer)),
		),

		// Inbound path
		fx.Annotate(
			func(p *discord.Platform, cfg *config.Config, logger *slog.Logger) *dispatch.Service {
				return dispatch.NewService(p, dispatch.Options{
					MaxRetries:      cfg.Dispatch.MaxRetries,
					InitialInterval: cfg.Dispatch.InitialInterval,
					MaxInterval:     cfg.Dispatch.MaxInterval,
				}, logger)
			},
			fx.As(new(dispatch.Dispatcher)),
		),
		func(st *store.Store, d dispatch.Dispatcher, logger *slog.Logger) *drain.Drainer {
			return drain.NewDrainer(st, d, logger)
		},
		func(dr *drain.Drainer, st *store.Store, logger *slog.Logger) *drain.Listener {
			return drain.NewListener(dr, Notifier(st), logger)
		},

		// Operator path
		func(st *store.Store, d pubsub.EventDispatcher, cfg *config.Config, logger *slog.Logger) *replay.Engine {
			return replay.NewEngine(st, d, logger, cfg.Replay.Enabled, cfg.Replay.PageSize)
		},
	),

	// [DECORATION_LAYER] Intercept Dispatcher to add cross-cutting concerns
	fx.Decorate(func(orig dispatch.Dispatcher, logger *slog.Logger) dispatch.Dispatcher {
		return dispatch.NewDispatcherMiddleware(orig, logger)
	}),
)

// Notifier subscribes the drain listener to the store's ready channel.
func Notifier(st *store.Store) drain.Notifier {
	return drain.NotifierFunc(func(ctx context.Context) (drain.Subscription, error) {
		sub, err := st.Subscribe(ctx)
		if err != nil {
			return nil, err
		}
		return sub, nil
	})
}
