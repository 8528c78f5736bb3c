package feed

import (
	"sync"

	"github.com/mcdev12/fieldboss/go/internal/models"
)

// chanSubscription is a Subscription backed by a buffered channel. done is
// closed once Unsubscribe has run cancel.
type chanSubscription struct {
	events chan models.ChangeEvent
	done   chan struct{}
	cancel func() error

	once sync.Once
	err  error
}

func newChanSubscription(buffer int) *chanSubscription {
	return &chanSubscription{
		events: make(chan models.ChangeEvent, buffer),
		done:   make(chan struct{}),
		cancel: func() error { return nil },
	}
}

func (s *chanSubscription) Events() <-chan models.ChangeEvent {
	return s.events
}

func (s *chanSubscription) Unsubscribe() error {
	s.once.Do(func() {
		close(s.done)
		s.err = s.cancel()
	})
	return s.err
}

// deliver hands ev to the consumer, giving up when the subscription ends.
func (s *chanSubscription) deliver(ev models.ChangeEvent) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}
