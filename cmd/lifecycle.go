package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bwmarrin/discordgo"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/webitel/im-discord-relay/internal/adapter/pubsub"
	"github.com/webitel/im-discord-relay/internal/adapter/store"
	"github.com/webitel/im-discord-relay/internal/handler/gateway"
	"github.com/webitel/im-discord-relay/internal/service/drain"
)

type lifecycleParams struct {
	fx.In

	Logger   *slog.Logger
	Redis    redis.UniversalClient
	Store    *store.Store
	Router   *message.Router
	Events   pubsub.EventDispatcher
	Session  *discordgo.Session
	Gateway  *gateway.Handler
	Listener *drain.Listener
}

// [LIFECYCLE_CONTRACTS]
// The narrow views the start/stop sequence needs of each component.
type (
	pinger interface {
		Ping(ctx context.Context) error
	}

	busRouter interface {
		Run(ctx context.Context) error
		Running() chan struct{}
		Close() error
	}

	gatewaySession interface {
		gateway.Session
		Open() error
		Close() error
	}

	capturer interface {
		Attach(s gateway.Session)
		Detach()
	}

	stopper interface {
		Stop() error
	}

	closer interface {
		Close() error
	}
)

type relayLifecycle struct {
	logger    *slog.Logger
	store     pinger
	router    busRouter
	publisher closer
	session   gatewaySession
	gateway   capturer
	listener  stopper
	redis     closer
}

func newRelayLifecycle(p lifecycleParams) *relayLifecycle {
	return &relayLifecycle{
		logger:    p.Logger,
		store:     p.Store,
		router:    p.Router,
		publisher: p.Events.Publisher(),
		session:   p.Session,
		gateway:   p.Gateway,
		listener:  p.Listener,
		redis:     p.Redis,
	}
}

// RegisterLifecycle starts the relay and tears it down in a fixed order:
// capture stops first, then draining, then the bus, the gateway session and
// finally the store.
func RegisterLifecycle(lc fx.Lifecycle, p lifecycleParams) {
	lc.Append(newRelayLifecycle(p).hook())
}

func (r *relayLifecycle) hook() fx.Hook {
	routerDone := make(chan error, 1)

	return fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := r.store.Ping(ctx); err != nil {
				return fmt.Errorf("STORE_UNREACHABLE: %w", err)
			}

			go func() { routerDone <- r.router.Run(context.Background()) }()
			select {
			case <-r.router.Running():
			case err := <-routerDone:
				return fmt.Errorf("ROUTER_FAILED: %w", err)
			case <-ctx.Done():
				return ctx.Err()
			}

			r.gateway.Attach(r.session)
			if err := r.session.Open(); err != nil {
				return fmt.Errorf("GATEWAY_OPEN_FAILED: %w", err)
			}

			r.logger.Info("RELAY_STARTED")
			return nil
		},

		OnStop: func(ctx context.Context) error {
			var errs []error

			// 1. [CAPTURE] no new events enter the archive
			r.gateway.Detach()

			// 2. [DRAIN] in-flight cycles finish or are cancelled
			errs = append(errs, r.listener.Stop())

			// 3. [BUS]
			errs = append(errs, r.router.Close(), r.publisher.Close())

			// 4. [GATEWAY] logout
			errs = append(errs, r.session.Close())

			// 5. [STORE]
			errs = append(errs, r.redis.Close())

			err := errors.Join(errs...)
			r.logger.Info("RELAY_STOPPED", "err", err)
			return err
		},
	}
}

type replayParams struct {
	fx.In

	Redis  redis.UniversalClient
	Store  *store.Store
	Events pubsub.EventDispatcher
}

func RegisterReplayLifecycle(lc fx.Lifecycle, p replayParams) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return p.Store.Ping(ctx)
		},
		OnStop: func(context.Context) error {
			return errors.Join(p.Events.Publisher().Close(), p.Redis.Close())
		},
	})
}
