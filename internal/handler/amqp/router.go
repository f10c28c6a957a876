package amqp

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/webitel/im-discord-relay/config"
	"github.com/webitel/im-discord-relay/internal/adapter/pubsub"
	"github.com/webitel/im-discord-relay/internal/domain/model"
	"github.com/webitel/im-discord-relay/internal/service/dispatch"
)

const (
	// ------------------- TOPICS (ROUTING KEYS) -----------------
	TopicAnyCommand = model.CommandRoutingPrefix + "#"

	// ------------------- QUEUES (CONSUMERS) --------------------
	PoisonSuffix = ".poison"
)

// SubscriberBuilder opens a consumer on queue bound to exchange.
type SubscriberBuilder interface {
	Build(queue, exchange string, prefetch int) (message.Subscriber, error)
}

var _ SubscriberBuilder = (*pubsub.SubscriberProvider)(nil)

type CommandHandler struct {
	dispatcher dispatch.Dispatcher
	events     pubsub.EventDispatcher
	logger     *slog.Logger
	amqp       config.AMQPConfig
	retry      config.RetryConfig
}

func NewCommandHandler(dispatcher dispatch.Dispatcher, events pubsub.EventDispatcher, logger *slog.Logger, cfg *config.Config) *CommandHandler {
	return &CommandHandler{
		dispatcher: dispatcher,
		events:     events,
		logger:     logger,
		amqp:       cfg.AMQP,
		retry:      cfg.AMQP.Retry,
	}
}

// PoisonTopic is where commands land after the retry budget is spent.
func (h *CommandHandler) PoisonTopic() string {
	return h.amqp.Queue + PoisonSuffix
}

// [REGISTRATION_PIPELINE]
func (h *CommandHandler) RegisterHandlers(router *message.Router, subProvider SubscriberBuilder) error {
	poison, err := middleware.PoisonQueue(h.events.Publisher(), h.PoisonTopic())
	if err != nil {
		return fmt.Errorf("POISON_SETUP_FAILED: %w", err)
	}

	configs := []struct {
		name     string
		exchange string
		topic    string
		handler  message.NoPublishHandlerFunc
	}{
		{"ON_COMMAND", h.amqp.CommandsExchange, TopicAnyCommand, Bind(h, h.OnCommand)},
	}

	for _, c := range configs {
		// [SHARED_WORK_QUEUE]
		// Every relay instance consumes the same durable queue, so each command
		// is handled by exactly one of them.
		sub, err := subProvider.Build(h.amqp.Queue, c.exchange, h.amqp.Prefetch)
		if err != nil {
			return err
		}

		router.AddConsumerHandler(c.name, c.topic, sub, c.handler).AddMiddleware(
			TraceIDMiddleware,
			LoggingMiddleware(h.logger),
			// poison wraps retry: a message is quarantined only once its retries are spent
			poison,
			NewRetryMiddleware(h.retry).Middleware,
			middleware.NewThrottle(100, time.Second).Middleware,
			middleware.Timeout(time.Second*30),
		)
	}

	h.logger.Info("AMQP_PIPELINE_READY", "queue", h.amqp.Queue, "exchange", h.amqp.CommandsExchange)
	return nil
}
