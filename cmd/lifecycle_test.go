package cmd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"

	"github.com/webitel/im-discord-relay/internal/handler/gateway"
)

// timeline records component calls in the order they happen.
type timeline struct {
	mu    sync.Mutex
	calls []string
}

func (tl *timeline) add(call string) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.calls = append(tl.calls, call)
}

func (tl *timeline) snapshot() []string {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return append([]string(nil), tl.calls...)
}

type step struct {
	tl   *timeline
	name string
	err  error
}

func (s step) Ping(context.Context) error {
	s.tl.add(s.name + ".ping")
	return s.err
}

func (s step) Stop() error {
	s.tl.add(s.name + ".stop")
	return s.err
}

func (s step) Close() error {
	s.tl.add(s.name + ".close")
	return s.err
}

type fakeRouter struct {
	tl      *timeline
	running chan struct{}
	closed  chan struct{}
	once    sync.Once
}

func newFakeRouter(tl *timeline) *fakeRouter {
	return &fakeRouter{tl: tl, running: make(chan struct{}), closed: make(chan struct{})}
}

func (r *fakeRouter) Run(context.Context) error {
	r.tl.add("router.run")
	close(r.running)
	<-r.closed
	return nil
}

func (r *fakeRouter) Running() chan struct{} { return r.running }

func (r *fakeRouter) Close() error {
	r.tl.add("router.close")
	r.once.Do(func() { close(r.closed) })
	return nil
}

type fakeSession struct {
	tl *timeline
}

func (s fakeSession) AddHandler(interface{}) func() { return func() {} }

func (s fakeSession) Open() error {
	s.tl.add("session.open")
	return nil
}

func (s fakeSession) Close() error {
	s.tl.add("session.close")
	return nil
}

type fakeCapture struct {
	tl *timeline
}

func (c fakeCapture) Attach(gateway.Session) { c.tl.add("gateway.attach") }
func (c fakeCapture) Detach()                { c.tl.add("gateway.detach") }

func newTestLifecycle(tl *timeline) *relayLifecycle {
	return &relayLifecycle{
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		store:     step{tl: tl, name: "store"},
		router:    newFakeRouter(tl),
		publisher: step{tl: tl, name: "publisher"},
		session:   fakeSession{tl: tl},
		gateway:   fakeCapture{tl: tl},
		listener:  step{tl: tl, name: "listener"},
		redis:     step{tl: tl, name: "redis"},
	}
}

func TestRelayStartsInOrder(t *testing.T) {
	tl := &timeline{}
	lc := fxtest.NewLifecycle(t)
	lc.Append(newTestLifecycle(tl).hook())

	lc.RequireStart()
	assert.Equal(t, []string{"store.ping", "router.run", "gateway.attach", "session.open"}, tl.snapshot())

	lc.RequireStop()
}

func TestRelayStopsInOrder(t *testing.T) {
	tl := &timeline{}
	lc := fxtest.NewLifecycle(t)
	lc.Append(newTestLifecycle(tl).hook())

	lc.RequireStart()
	started := len(tl.snapshot())
	lc.RequireStop()

	assert.Equal(t, []string{
		"gateway.detach",
		"listener.stop",
		"router.close",
		"publisher.close",
		"session.close",
		"redis.close",
	}, tl.snapshot()[started:])
}

func TestRelayStopClosesEverythingDespiteFailures(t *testing.T) {
	tl := &timeline{}
	boom := errors.New("subscription already gone")
	r := newTestLifecycle(tl)
	r.listener = step{tl: tl, name: "listener", err: boom}
	hook := r.hook()

	require.NoError(t, hook.OnStart(context.Background()))
	err := hook.OnStop(context.Background())

	assert.ErrorIs(t, err, boom)
	calls := tl.snapshot()
	assert.Equal(t, "redis.close", calls[len(calls)-1], "the store is closed last even after a failure")
	assert.Contains(t, calls, "session.close")
}

func TestRelayRefusesToStartWithoutStore(t *testing.T) {
	tl := &timeline{}
	down := errors.New("connection refused")
	r := newTestLifecycle(tl)
	r.store = step{tl: tl, name: "store", err: down}

	err := r.hook().OnStart(context.Background())
	assert.ErrorIs(t, err, down)
	assert.Equal(t, []string{"store.ping"}, tl.snapshot(), "nothing else is touched")
}
