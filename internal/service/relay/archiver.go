package relay

import (
	"context"
	"fmt"

	"github.com/webitel/im-discord-relay/internal/domain/model"
)

// Archive is the durable, timestamp-ordered append log.
type Archive interface {
	Append(ctx context.Context, ts int64, payload []byte) error
}

// Archiver persists canonical events keyed by their capture timestamp.
// No local retry: retry policy belongs to the store client.
type Archiver struct {
	archive Archive
}

func NewArchiver(archive Archive) *Archiver {
	return &Archiver{archive: archive}
}

func (a *Archiver) Archive(ctx context.Context, ev model.Eventer) error {
	payload, err := model.EncodeEvent(ev)
	if err != nil {
		return fmt.Errorf("archiver: %w", err)
	}
	if err := a.archive.Append(ctx, ev.GetTimestamp(), payload); err != nil {
		return fmt.Errorf("archiver: %s: %w", ev.GetKind(), err)
	}
	return nil
}
