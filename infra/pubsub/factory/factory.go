package factory

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
)

// ExchangeConfig describes the AMQP exchange a publisher or subscriber is bound to.
type ExchangeConfig struct {
	Name    string
	Type    string
	Durable bool
}

type PublisherConfig struct {
	Exchange ExchangeConfig
	// ConfirmDelivery waits for broker confirms before Publish returns.
	ConfirmDelivery bool
}

// SubscriberConfig binds one named queue to the exchange. The watermill topic
// passed to Subscribe is used as the binding key, so wildcards are allowed.
type SubscriberConfig struct {
	Exchange ExchangeConfig
	Queue    string
	Prefetch int
}

// Factory builds watermill publishers and subscribers for one broker.
type Factory interface {
	BuildPublisher(cfg *PublisherConfig) (message.Publisher, error)
	BuildSubscriber(cfg *SubscriberConfig) (message.Subscriber, error)
}

type amqpFactory struct {
	url    string
	logger watermill.LoggerAdapter
}

func NewAMQPFactory(url string, logger watermill.LoggerAdapter) Factory {
	return &amqpFactory{url: url, logger: logger}
}

func (f *amqpFactory) BuildPublisher(cfg *PublisherConfig) (message.Publisher, error) {
	c := PublisherAMQPConfig(f.url, cfg)
	if err := c.ValidatePublisher(); err != nil {
		return nil, fmt.Errorf("amqp factory: publisher config: %w", err)
	}

	pub, err := amqp.NewPublisher(c, f.logger)
	if err != nil {
		return nil, fmt.Errorf("amqp factory: publisher on %s: %w", cfg.Exchange.Name, err)
	}
	return pub, nil
}

func (f *amqpFactory) BuildSubscriber(cfg *SubscriberConfig) (message.Subscriber, error) {
	c := SubscriberAMQPConfig(f.url, cfg)
	if err := c.ValidateSubscriber(); err != nil {
		return nil, fmt.Errorf("amqp factory: subscriber config: %w", err)
	}

	sub, err := amqp.NewSubscriber(c, f.logger)
	if err != nil {
		return nil, fmt.Errorf("amqp factory: subscriber on %s: %w", cfg.Queue, err)
	}
	return sub, nil
}

// PublisherAMQPConfig maps a PublisherConfig onto a topic-exchange publisher:
// the watermill topic becomes the routing key.
func PublisherAMQPConfig(url string, cfg *PublisherConfig) amqp.Config {
	exchange := cfg.Exchange
	return amqp.Config{
		Connection: amqp.ConnectionConfig{AmqpURI: url},
		Marshaler:  amqp.DefaultMarshaler{},
		Exchange: amqp.ExchangeConfig{
			GenerateName: func(string) string { return exchange.Name },
			Type:         exchange.Type,
			Durable:      exchange.Durable,
		},
		Publish: amqp.PublishConfig{
			GenerateRoutingKey: func(topic string) string { return topic },
			ConfirmDelivery:    cfg.ConfirmDelivery,
		},
		TopologyBuilder: &amqp.DefaultTopologyBuilder{},
	}
}

// SubscriberAMQPConfig maps a SubscriberConfig onto a durable work queue.
func SubscriberAMQPConfig(url string, cfg *SubscriberConfig) amqp.Config {
	exchange := cfg.Exchange
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}

	return amqp.Config{
		Connection: amqp.ConnectionConfig{AmqpURI: url},
		Marshaler:  amqp.DefaultMarshaler{},
		Exchange: amqp.ExchangeConfig{
			GenerateName: func(string) string { return exchange.Name },
			Type:         exchange.Type,
			Durable:      exchange.Durable,
		},
		Queue: amqp.QueueConfig{
			GenerateName: amqp.GenerateQueueNameConstant(cfg.Queue),
			Durable:      true,
		},
		QueueBind: amqp.QueueBindConfig{
			GenerateRoutingKey: func(topic string) string { return topic },
		},
		Consume: amqp.ConsumeConfig{
			Qos: amqp.QosConfig{PrefetchCount: prefetch},
		},
		TopologyBuilder: &amqp.DefaultTopologyBuilder{},
	}
}
