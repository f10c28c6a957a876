package pubsub

import (
	"github.com/ThreeDotsLabs/watermill"

	"github.com/webitel/im-discord-relay/config"
	"github.com/webitel/im-discord-relay/infra/pubsub/factory"
)

// Provider hands out the broker factory configured for this process.
type Provider interface {
	GetFactory() factory.Factory
}

type provider struct {
	factory factory.Factory
}

func NewProvider(cfg *config.Config, logger watermill.LoggerAdapter) Provider {
	return &provider{factory: factory.NewAMQPFactory(cfg.AMQP.URL, logger)}
}

func (p *provider) GetFactory() factory.Factory { return p.factory }
