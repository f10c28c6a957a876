package amqp

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/fx"

	pubsubadapter "github.com/webitel/im-discord-relay/internal/adapter/pubsub"
)

var Module = fx.Module("amqp-handler",
	fx.Provide(
		NewCommandHandler,
		NewWatermillRouter,
	),

	fx.Invoke(RegisterHandlers),
)

func NewWatermillRouter(logger watermill.LoggerAdapter) (*message.Router, error) {
	return message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, logger)
}

func RegisterHandlers(h *CommandHandler, router *message.Router, subProvider *pubsubadapter.SubscriberProvider) error {
	return h.RegisterHandlers(router, subProvider)
}
