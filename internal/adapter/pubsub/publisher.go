package pubsub

import (
	"github.com/ThreeDotsLabs/watermill/message"

	infrapubsub "github.com/webitel/im-discord-relay/infra/pubsub"
	"github.com/webitel/im-discord-relay/infra/pubsub/factory"
)

const exchangeType = "topic"

type PublisherProvider struct {
	factory factory.Factory
}

func NewPublisherProvider(p infrapubsub.Provider) *PublisherProvider {
	return &PublisherProvider{factory: p.GetFactory()}
}

func (pp *PublisherProvider) Build(exchange string) (message.Publisher, error) {
	return pp.factory.BuildPublisher(&factory.PublisherConfig{
		Exchange: factory.ExchangeConfig{
			Name:    exchange,
			Type:    exchangeType,
			Durable: true,
		},
		ConfirmDelivery: true,
	})
}

type SubscriberProvider struct {
	factory factory.Factory
}

func NewSubscriberProvider(p infrapubsub.Provider) *SubscriberProvider {
	return &SubscriberProvider{factory: p.GetFactory()}
}

// Build returns a subscriber consuming queue, bound to exchange with the topic
// passed to Subscribe as the binding key.
func (sp *SubscriberProvider) Build(queue, exchange string, prefetch int) (message.Subscriber, error) {
	return sp.factory.BuildSubscriber(&factory.SubscriberConfig{
		Exchange: factory.ExchangeConfig{
			Name:    exchange,
			Type:    exchangeType,
			Durable: true,
		},
		Queue:    queue,
		Prefetch: prefetch,
	})
}
