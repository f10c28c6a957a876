package dispatch

import (
	"context"
	"errors"

	"github.com/webitel/im-discord-relay/internal/domain/model"
)

var (
	// ErrNotFound marks a resolution miss: the channel or message no longer
	// exists or is not accessible. Dispatch treats it as a silent no-op.
	ErrNotFound = errors.New("platform: not found")
	// ErrTransient marks a failure worth retrying (rate limit, 5xx, network).
	ErrTransient = errors.New("platform: transient failure")
)

// Platform is the chat-platform action API.
type Platform interface {
	// ResolveChannel returns ErrNotFound when the channel is unknown or inaccessible.
	ResolveChannel(ctx context.Context, id model.Snowflake) (Channel, error)
}

type Channel interface {
	ID() model.Snowflake
	SendMessage(ctx context.Context, content string) error
	DeleteMessage(ctx context.Context, messageID model.Snowflake) error
	FetchMessage(ctx context.Context, messageID model.Snowflake) (Message, error)
}

type Message interface {
	ID() model.Snowflake
	AddReaction(ctx context.Context, emote string) error
	// RemoveOwnReaction removes only the reaction placed by the relay's own account.
	RemoveOwnReaction(ctx context.Context, emote string) error
	RemoveAllReactions(ctx context.Context) error
}
