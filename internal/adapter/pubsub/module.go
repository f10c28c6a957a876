package pubsub

import (
	"go.uber.org/fx"

	"github.com/webitel/im-discord-relay/config"
)

var Module = fx.Module("pubsub-adapter",
	fx.Provide(
		NewPublisherProvider,
		NewSubscriberProvider,
		ProvideEventDispatcher,
	),
)

// ProvideEventDispatcher binds the dispatcher to the events exchange.
func ProvideEventDispatcher(pp *PublisherProvider, cfg *config.Config) (EventDispatcher, error) {
	pub, err := pp.Build(cfg.AMQP.EventsExchange)
	if err != nil {
		return nil, err
	}
	return NewEventDispatcher(pub), nil
}
