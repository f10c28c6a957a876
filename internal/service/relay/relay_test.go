package relay_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webitel/im-discord-relay/internal/adapter/store"
	"github.com/webitel/im-discord-relay/internal/domain/clock"
	"github.com/webitel/im-discord-relay/internal/domain/model"
	"github.com/webitel/im-discord-relay/internal/service/relay"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// journal records the order in which the relay touched archive and bus.
type journal struct {
	mu    sync.Mutex
	steps []string
}

func (j *journal) add(step string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.steps = append(j.steps, step)
}

type fakeArchive struct {
	j   *journal
	err error
}

func (a *fakeArchive) Append(_ context.Context, _ int64, _ []byte) error {
	a.j.add("archive")
	return a.err
}

type fakeDispatcher struct {
	j         *journal
	err       error
	published []model.Eventer
}

func (d *fakeDispatcher) Publish(_ context.Context, ev model.Eventer) error {
	d.j.add("publish")
	if d.err != nil {
		return d.err
	}
	d.published = append(d.published, ev)
	return nil
}

func (d *fakeDispatcher) Publisher() message.Publisher { return nil }

func connected(ts int64) model.Eventer {
	return &model.Connected{EventHeader: model.EventHeader{Kind: model.ConnectedKind, Timestamp: ts}}
}

func TestRelayArchivesBeforePublishing(t *testing.T) {
	j := &journal{}
	disp := &fakeDispatcher{j: j}
	svc := relay.NewService(relay.NewArchiver(&fakeArchive{j: j}), disp, discard)

	require.NoError(t, svc.Relay(context.Background(), connected(1)))
	assert.Equal(t, []string{"archive", "publish"}, j.steps)
	assert.Len(t, disp.published, 1)
}

func TestRelayArchiveFailureSkipsPublish(t *testing.T) {
	j := &journal{}
	boom := errors.New("redis down")
	disp := &fakeDispatcher{j: j}
	svc := relay.NewService(relay.NewArchiver(&fakeArchive{j: j, err: boom}), disp, discard)

	err := svc.Relay(context.Background(), connected(1))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"archive"}, j.steps)
	assert.Empty(t, disp.published)
}

func TestRelayPublishFailureKeepsArchive(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	st := store.New(client, store.NewKeys("t:"))

	boom := errors.New("broker gone")
	svc := relay.NewService(relay.NewArchiver(st), &fakeDispatcher{j: &journal{}, err: boom}, discard)

	err := svc.Relay(context.Background(), connected(5))
	assert.ErrorIs(t, err, boom)

	n, err := st.ArchiveLen(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "failed publish must leave a replayable record")
}

func TestArchiveOrderFollowsCaptureOrder(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	st := store.New(client, store.NewKeys("t:"))

	clk := clock.New()
	svc := relay.NewService(relay.NewArchiver(st), &fakeDispatcher{j: &journal{}}, discard)
	ctx := context.Background()

	var captured []int64
	for i := range 50 {
		ev := &model.ContentReceived{
			EventHeader: model.EventHeader{Kind: model.ContentReceivedKind, Timestamp: clk.Tick()},
			MessageID:   model.Snowflake(i + 1),
			Content:     "same text",
		}
		captured = append(captured, ev.Timestamp)
		require.NoError(t, svc.Relay(ctx, ev))
	}

	var ids []model.Snowflake
	var stamps []int64
	require.NoError(t, st.Scan(ctx, 7, func(ts int64, payload []byte) error {
		ev, err := model.DecodeEvent(payload)
		require.NoError(t, err)
		assert.Equal(t, ts, ev.GetTimestamp())
		ids = append(ids, ev.(*model.ContentReceived).MessageID)
		stamps = append(stamps, ts)
		return nil
	}))

	require.Len(t, ids, 50)
	assert.Equal(t, captured, stamps)
	for i, id := range ids {
		assert.Equal(t, model.Snowflake(i+1), id)
	}
}
