package relay

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/webitel/im-discord-relay/internal/adapter/pubsub"
	"github.com/webitel/im-discord-relay/internal/domain/model"
)

// Relayer is the outbound path handed to the gateway handlers.
type Relayer interface {
	Relay(ctx context.Context, ev model.Eventer) error
}

// Service archives every event before publishing it.
//
// [ARCHIVE_BEFORE_PUBLISH]
// A crash between the two steps leaves a replayable record. A failed publish
// does not roll the archive write back; the two are not transactional.
type Service struct {
	archiver   *Archiver
	dispatcher pubsub.EventDispatcher
	logger     *slog.Logger
}

func NewService(archiver *Archiver, dispatcher pubsub.EventDispatcher, logger *slog.Logger) *Service {
	return &Service{archiver: archiver, dispatcher: dispatcher, logger: logger}
}

func (s *Service) Relay(ctx context.Context, ev model.Eventer) error {
	ctx, span := otel.Tracer("relay").Start(ctx, "event.relay")
	defer span.End()
	span.SetAttributes(
		attribute.String("event.kind", string(ev.GetKind())),
		attribute.Int64("event.timestamp", ev.GetTimestamp()),
	)

	// 1. [PERSIST]
	if err := s.archiver.Archive(ctx, ev); err != nil {
		s.logger.Error("ARCHIVE_FAILED", "err", err, "kind", ev.GetKind(), "ts", ev.GetTimestamp())
		span.RecordError(err)
		span.SetStatus(codes.Error, "archive failed")
		return err
	}

	// 2. [EMIT]
	if err := s.dispatcher.Publish(ctx, ev); err != nil {
		s.logger.Error("PUBLISH_FAILED", "err", err, "kind", ev.GetKind(), "ts", ev.GetTimestamp())
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		return err
	}

	s.logger.Debug("EVENT_RELAYED", "kind", ev.GetKind(), "ts", ev.GetTimestamp())
	return nil
}
