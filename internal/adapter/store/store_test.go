package store_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webitel/im-discord-relay/internal/adapter/store"
)

func newStore(t *testing.T) (*store.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return store.New(client, store.NewKeys("test:")), mr
}

func TestTransferMovesOldestFirst(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	for i := range 3 {
		require.NoError(t, s.Enqueue(ctx, []byte(fmt.Sprintf("cmd-%d", i))))
	}

	for i := range 3 {
		raw, ok, err := s.Transfer(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("cmd-%d", i), string(raw))
	}

	raw, ok, err := s.Transfer(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, raw)

	pending, processed, err := s.Depths(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
	assert.EqualValues(t, 3, processed)

	list, err := mr.List("test:control:processed")
	require.NoError(t, err)
	assert.Equal(t, []string{"cmd-2", "cmd-1", "cmd-0"}, list)
}

func TestTransferConcurrentIsExact(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	const n = 200
	for i := range n {
		require.NoError(t, s.Enqueue(ctx, []byte(fmt.Sprintf("cmd-%d", i))))
	}

	var (
		mu   sync.Mutex
		seen = make(map[string]int)
		wg   sync.WaitGroup
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				raw, ok, err := s.Transfer(ctx)
				if !assert.NoError(t, err) || !ok {
					return
				}
				mu.Lock()
				seen[string(raw)]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, n)
	for k, v := range seen {
		assert.Equal(t, 1, v, "item %s transferred %d times", k, v)
	}

	pending, processed, err := s.Depths(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
	assert.EqualValues(t, n, processed)
}

func TestArchiveScanIsTimestampOrdered(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	// appended out of order on purpose
	for _, ts := range []int64{1_700_000_000_000_003, 1_700_000_000_000_001, 1_700_000_000_000_002} {
		require.NoError(t, s.Append(ctx, ts, []byte(fmt.Sprintf(`{"timestamp":%d}`, ts))))
	}

	var got []int64
	err := s.Scan(ctx, 2, func(ts int64, payload []byte) error {
		assert.Equal(t, fmt.Sprintf(`{"timestamp":%d}`, ts), string(payload))
		got = append(got, ts)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1_700_000_000_000_001, 1_700_000_000_000_002, 1_700_000_000_000_003}, got)

	n, err := s.ArchiveLen(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestArchiveScanIgnoresEntriesAppendedBehindTheCursor(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	for ts := int64(10); ts < 20; ts++ {
		require.NoError(t, s.Append(ctx, ts, []byte(fmt.Sprint(ts))))
	}

	var seen []int64
	err := s.Scan(ctx, 5, func(ts int64, _ []byte) error {
		if len(seen) == 0 {
			// a second instance with a lagging clock archives mid-walk
			require.NoError(t, s.Append(ctx, 1, []byte("late")))
		}
		seen = append(seen, ts)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 11, 12, 13, 14, 15, 16, 17, 18, 19}, seen)
}

func TestArchiveScanKeepsTiesAcrossPages(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, 1, []byte("a")))
	for _, p := range []string{"b", "c", "d", "e"} {
		require.NoError(t, s.Append(ctx, 2, []byte(p)))
	}
	require.NoError(t, s.Append(ctx, 3, []byte("f")))

	var seen []string
	err := s.Scan(ctx, 2, func(_ int64, payload []byte) error {
		seen = append(seen, string(payload))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f"}, seen)
}

func TestArchiveScanStopsOnCallbackError(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	for ts := int64(1); ts <= 5; ts++ {
		require.NoError(t, s.Append(ctx, ts, []byte(fmt.Sprint(ts))))
	}

	stop := fmt.Errorf("stop")
	calls := 0
	err := s.Scan(ctx, 10, func(int64, []byte) error {
		calls++
		if calls == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, calls)
}

func TestSubscribeReceivesSignals(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	sub, err := s.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Signal(ctx, "init"))

	select {
	case v := <-sub.Signals():
		assert.Equal(t, "init", v)
	case <-time.After(2 * time.Second):
		t.Fatal("signal not delivered")
	}

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	_, open := <-sub.Signals()
	assert.False(t, open)
}

func TestStoreSurfacesConnectivityFailure(t *testing.T) {
	s, mr := newStore(t)
	mr.Close()

	err := s.Append(context.Background(), 1, []byte("x"))
	assert.Error(t, err)

	_, _, err = s.Transfer(context.Background())
	assert.Error(t, err)
}
