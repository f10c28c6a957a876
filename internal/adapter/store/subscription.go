package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Subscription delivers readiness values until closed.
type Subscription struct {
	ps   *redis.PubSub
	out  chan string
	done chan struct{}
	once sync.Once
}

// Subscribe listens on the readiness channel. It returns only after the
// server confirmed the subscription, so a Signal sent afterwards is never missed.
func (s *Store) Subscribe(ctx context.Context) (*Subscription, error) {
	ps := s.client.Subscribe(ctx, s.keys.Ready)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("store: subscribe %s: %w", s.keys.Ready, err)
	}

	sub := &Subscription{
		ps:   ps,
		out:  make(chan string),
		done: make(chan struct{}),
	}
	go sub.pump()
	return sub, nil
}

func (s *Subscription) pump() {
	defer close(s.out)

	in := s.ps.Channel()
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			select {
			case s.out <- msg.Payload:
			case <-s.done:
				return
			}
		}
	}
}

// Signals is closed once the subscription is closed.
func (s *Subscription) Signals() <-chan string { return s.out }

func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.ps.Close()
	})
	return err
}
