package cmd

import (
	"log/slog"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/webitel/im-discord-relay/config"
	"github.com/webitel/im-discord-relay/internal/adapter/discord"
	pubsubadapter "github.com/webitel/im-discord-relay/internal/adapter/pubsub"
	"github.com/webitel/im-discord-relay/internal/adapter/store"
	"github.com/webitel/im-discord-relay/internal/handler/admin"
	amqpdi "github.com/webitel/im-discord-relay/internal/handler/amqp"
	"github.com/webitel/im-discord-relay/internal/handler/gateway"
	"github.com/webitel/im-discord-relay/internal/service"
)

func infrastructure(cfg *config.Config) fx.Option {
	return fx.Options(
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideLogger,
			ProvideWatermillLogger,
			ProvideRedis,
			ProvideTracerProvider,
			ProvidePubSub,
		),
		// tracer first: its shutdown hook runs after everything else has stopped
		fx.Invoke(func(*sdktrace.TracerProvider) {}),
		store.Module,
		pubsubadapter.Module,
		discord.Module,
		service.Module,
	)
}

func serverOptions(cfg *config.Config) fx.Option {
	return fx.Options(
		infrastructure(cfg),
		gateway.Module,
		amqpdi.Module,
		admin.Module,
		fx.Invoke(RegisterLifecycle),
	)
}

// replayOptions holds only what the archive replay needs; no gateway session
// is opened and no commands are consumed.
func replayOptions(cfg *config.Config) fx.Option {
	return fx.Options(
		infrastructure(cfg),
		fx.Invoke(RegisterReplayLifecycle),
	)
}

// fxLogger routes fx's own lifecycle events into slog at debug level.
func fxLogger(logger *slog.Logger) fxevent.Logger {
	l := &fxevent.SlogLogger{Logger: logger}
	l.UseLogLevel(slog.LevelDebug)
	return l
}

// NewApp composes the relay server.
func NewApp(cfg *config.Config) *fx.App {
	return fx.New(serverOptions(cfg), fx.WithLogger(fxLogger))
}

func NewReplayApp(cfg *config.Config, populate ...interface{}) *fx.App {
	return fx.New(replayOptions(cfg), fx.Populate(populate...), fx.WithLogger(fxLogger))
}
