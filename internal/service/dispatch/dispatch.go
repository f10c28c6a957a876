package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/webitel/im-discord-relay/internal/domain/model"
)

// Dispatcher turns a command into exactly one platform action.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd model.Commander) error
}

// Options bound the retry of transient platform failures.
type Options struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

type Service struct {
	platform Platform
	opts     Options
	logger   *slog.Logger
}

func NewService(platform Platform, opts Options, logger *slog.Logger) *Service {
	return &Service{platform: platform, opts: opts, logger: logger}
}

// Dispatch resolves the target channel and performs the action. Resolution
// misses (stale or deleted channel/message) are skipped without error.
func (s *Service) Dispatch(ctx context.Context, cmd model.Commander) error {
	ctx, span := otel.Tracer("relay").Start(ctx, "command.dispatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("command.kind", string(cmd.GetKind())),
		attribute.String("command.channel_id", cmd.GetChannelID().String()),
	)

	ch, err := retry(ctx, s.opts, func() (Channel, error) {
		return s.platform.ResolveChannel(ctx, cmd.GetChannelID())
	})
	if errors.Is(err, ErrNotFound) {
		s.logger.Debug("DISPATCH_SKIPPED: channel_unresolved", "kind", cmd.GetKind(), "channel_id", cmd.GetChannelID())
		return nil
	}
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("dispatch %s: resolve channel %s: %w", cmd.GetKind(), cmd.GetChannelID(), err)
	}

	if err := s.perform(ctx, ch, cmd); err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Debug("DISPATCH_SKIPPED: target_missing", "kind", cmd.GetKind(), "channel_id", cmd.GetChannelID())
			return nil
		}
		span.RecordError(err)
		return fmt.Errorf("dispatch %s: %w", cmd.GetKind(), err)
	}
	return nil
}

func (s *Service) perform(ctx context.Context, ch Channel, cmd model.Commander) error {
	switch c := cmd.(type) {
	case *model.AddContent:
		return s.do(ctx, func() error { return ch.SendMessage(ctx, c.Content) })

	case *model.RemoveContent:
		return s.do(ctx, func() error { return ch.DeleteMessage(ctx, c.MessageID) })

	case *model.AddReaction:
		msg, err := s.fetch(ctx, ch, c.MessageID)
		if err != nil {
			return err
		}
		emote := FixupEmote(c.Emote)
		return s.do(ctx, func() error { return msg.AddReaction(ctx, emote) })

	case *model.RemoveReaction:
		msg, err := s.fetch(ctx, ch, c.MessageID)
		if err != nil {
			return err
		}
		emote := FixupEmote(c.Emote)
		return s.do(ctx, func() error { return msg.RemoveOwnReaction(ctx, emote) })

	case *model.RemoveAllReactions:
		msg, err := s.fetch(ctx, ch, c.MessageID)
		if err != nil {
			return err
		}
		return s.do(ctx, func() error { return msg.RemoveAllReactions(ctx) })

	default:
		return fmt.Errorf("%w: %T", model.ErrUnknownKind, cmd)
	}
}

func (s *Service) fetch(ctx context.Context, ch Channel, id model.Snowflake) (Message, error) {
	return retry(ctx, s.opts, func() (Message, error) { return ch.FetchMessage(ctx, id) })
}

func (s *Service) do(ctx context.Context, op func() error) error {
	_, err := retry(ctx, s.opts, func() (struct{}, error) { return struct{}{}, op() })
	return err
}

// retry repeats op while it fails with ErrTransient, with exponential backoff
// and at most MaxRetries extra attempts. Any other error stops immediately.
func retry[T any](ctx context.Context, opts Options, op func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	if opts.InitialInterval > 0 {
		b.InitialInterval = opts.InitialInterval
	}
	if opts.MaxInterval > 0 {
		b.MaxInterval = opts.MaxInterval
	}

	tries := uint(1)
	if opts.MaxRetries > 0 {
		tries += uint(opts.MaxRetries)
	}

	return backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err != nil && !errors.Is(err, ErrTransient) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(tries))
}
