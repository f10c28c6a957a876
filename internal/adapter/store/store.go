// Package store is the key-value side of the relay: the event archive,
// the control-plane queues and the readiness channel, all on Redis.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Keys names the store locations used by the relay.
type Keys struct {
	// Ready is the pub/sub channel; any value triggers a drain cycle.
	Ready string
	// Pending receives commands from external producers (LPUSH, oldest at the tail).
	Pending string
	// Processed holds every command that was transferred for dispatch.
	Processed string
	// Archive is the timestamp-scored sorted set of captured events.
	Archive string
}

// NewKeys derives the key namespace from a prefix.
func NewKeys(prefix string) Keys {
	return Keys{
		Ready:     prefix + "control:ready",
		Pending:   prefix + "control:pending",
		Processed: prefix + "control:processed",
		Archive:   prefix + "events:archive",
	}
}

type Store struct {
	client redis.UniversalClient
	keys   Keys
}

func New(client redis.UniversalClient, keys Keys) *Store {
	return &Store{client: client, keys: keys}
}

func (s *Store) Keys() Keys { return s.keys }

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// [ARCHIVE]

// Append stores payload in the archive under the logical timestamp ts.
// The relay never removes archive entries.
func (s *Store) Append(ctx context.Context, ts int64, payload []byte) error {
	err := s.client.ZAdd(ctx, s.keys.Archive, redis.Z{
		Score:  float64(ts),
		Member: payload,
	}).Err()
	if err != nil {
		return fmt.Errorf("store: archive append at %d: %w", ts, err)
	}
	return nil
}

// Scan walks the archive in ascending timestamp order, pageSize entries per
// round trip. A non-nil error from fn stops the walk and is returned as is.
//
// Pages are cut by score, not by rank: an entry appended behind the cursor
// during the walk is not visited and does not shift the rest of the walk.
func (s *Store) Scan(ctx context.Context, pageSize int, fn func(ts int64, payload []byte) error) error {
	if pageSize <= 0 {
		pageSize = 100
	}

	// cursor is the last visited score; atCursor counts the visited entries
	// sharing it, so ties spanning a page boundary are neither lost nor repeated.
	from, cursor, atCursor := "-inf", int64(0), int64(0)
	for {
		page, err := s.client.ZRangeByScoreWithScores(ctx, s.keys.Archive, &redis.ZRangeBy{
			Min:    from,
			Max:    "+inf",
			Offset: atCursor,
			Count:  int64(pageSize),
		}).Result()
		if err != nil {
			return fmt.Errorf("store: archive scan from %s: %w", from, err)
		}

		for _, z := range page {
			member, ok := z.Member.(string)
			if !ok {
				return fmt.Errorf("store: archive member of type %T", z.Member)
			}

			ts := int64(z.Score)
			if ts == cursor && from != "-inf" {
				atCursor++
			} else {
				cursor, atCursor = ts, 1
			}
			from = strconv.FormatInt(cursor, 10)

			if err := fn(ts, []byte(member)); err != nil {
				return err
			}
		}

		if len(page) < pageSize {
			return nil
		}
	}
}

// ArchiveLen returns the number of archived events.
func (s *Store) ArchiveLen(ctx context.Context) (int64, error) {
	return s.client.ZCard(ctx, s.keys.Archive).Result()
}

// [CONTROL_PLANE]

// Transfer atomically pops the oldest pending command and pushes it onto the
// processed queue (LMOVE pending processed RIGHT LEFT). ok is false when the
// pending queue is empty.
func (s *Store) Transfer(ctx context.Context) (raw []byte, ok bool, err error) {
	val, err := s.client.LMove(ctx, s.keys.Pending, s.keys.Processed, "RIGHT", "LEFT").Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: transfer: %w", err)
	}
	return []byte(val), true, nil
}

// Enqueue places a command in the pending queue, acting as an external producer.
func (s *Store) Enqueue(ctx context.Context, raw []byte) error {
	if err := s.client.LPush(ctx, s.keys.Pending, raw).Err(); err != nil {
		return fmt.Errorf("store: enqueue: %w", err)
	}
	return nil
}

// Signal publishes value on the readiness channel.
func (s *Store) Signal(ctx context.Context, value string) error {
	if err := s.client.Publish(ctx, s.keys.Ready, value).Err(); err != nil {
		return fmt.Errorf("store: signal: %w", err)
	}
	return nil
}

// Depths reports the lengths of both control queues.
func (s *Store) Depths(ctx context.Context) (pending, processed int64, err error) {
	pipe := s.client.Pipeline()
	p := pipe.LLen(ctx, s.keys.Pending)
	d := pipe.LLen(ctx, s.keys.Processed)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("store: depths: %w", err)
	}
	return p.Val(), d.Val(), nil
}

// Processed returns the processed queue, newest first.
func (s *Store) Processed(ctx context.Context) ([][]byte, error) {
	vals, err := s.client.LRange(ctx, s.keys.Processed, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("store: processed: %w", err)
	}
	out := make([][]byte, 0, len(vals))
	for _, v := range vals {
		out = append(out, []byte(v))
	}
	return out, nil
}
