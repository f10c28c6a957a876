package pubsub

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/webitel/im-discord-relay/internal/domain/model"
)

const (
	MetadataKind      = "kind"
	MetadataTimestamp = "timestamp"
)

// EventDispatcher defines the high-level contract for outgoing events.
// This allows the relay to stay agnostic of the transport implementation.
type EventDispatcher interface {
	// Publish emits ev under the routing key of its discriminator.
	// One attempt; stronger guarantees belong to the bus client.
	Publish(ctx context.Context, ev model.Eventer) error
	Publisher() message.Publisher
}

type eventDispatcher struct {
	publisher message.Publisher
}

func NewEventDispatcher(pub message.Publisher) EventDispatcher {
	return &eventDispatcher{
		publisher: pub,
	}
}

func (d *eventDispatcher) Publish(ctx context.Context, ev model.Eventer) error {
	if ev == nil {
		return fmt.Errorf("event dispatcher: cannot publish nil event")
	}

	ctx, span := otel.Tracer("relay").Start(ctx, "event.publish")
	defer span.End()

	payload, err := model.EncodeEvent(ev)
	if err != nil {
		return fmt.Errorf("event dispatcher: marshal failure: %w", err)
	}

	topic := ev.GetRoutingKey()
	span.SetAttributes(
		attribute.String("event.kind", string(ev.GetKind())),
		attribute.String("messaging.destination", topic),
	)

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(MetadataKind, string(ev.GetKind()))
	msg.Metadata.Set(MetadataTimestamp, strconv.FormatInt(ev.GetTimestamp(), 10))
	msg.SetContext(ctx)

	if err := d.publisher.Publish(topic, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		return fmt.Errorf("event dispatcher: failed to publish to topic %s: %w", topic, err)
	}

	return nil
}

func (d *eventDispatcher) Publisher() message.Publisher {
	return d.publisher
}
