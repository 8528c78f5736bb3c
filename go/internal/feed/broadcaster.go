package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/mcdev12/fieldboss/go/internal/models"
	"github.com/rs/zerolog/log"
)

const subscriberBuffer = 64

// Broadcaster is an in-process Feed that fans published events out to every
// subscriber. Slow subscribers lose events instead of blocking publishers.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[*chanSubscription]struct{}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[*chanSubscription]struct{})}
}

var _ Feed = (*Broadcaster)(nil)

// Subscribe registers a subscriber that lives until Unsubscribe or ctx is done.
func (b *Broadcaster) Subscribe(ctx context.Context, table string) (Subscription, error) {
	if table != TimersTable {
		return nil, fmt.Errorf("unknown table %q", table)
	}
	sub := newChanSubscription(subscriberBuffer)
	sub.cancel = func() error {
		b.remove(sub)
		return nil
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Unsubscribe()
		case <-sub.done:
		}
	}()
	return sub, nil
}

// Publish delivers ev to every current subscriber.
func (b *Broadcaster) Publish(ev models.ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		select {
		case sub.events <- ev:
		default:
			log.Warn().
				Str("row_id", ev.RowID.String()).
				Msg("subscriber buffer full, dropping change event")
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Broadcaster) remove(sub *chanSubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(sub.events)
	}
}

