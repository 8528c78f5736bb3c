package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/fieldboss/go/internal/feed"
	"github.com/rs/zerolog/log"
)

// EventConsumer follows a change feed and broadcasts every event to viewers
type EventConsumer struct {
	connectionManager *ConnectionManager
	source            feed.Feed
	retryDelay        time.Duration
	clock             clockwork.Clock
}

func NewEventConsumer(cm *ConnectionManager, source feed.Feed, clock clockwork.Clock) *EventConsumer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &EventConsumer{
		connectionManager: cm,
		source:            source,
		retryDelay:        2 * time.Second,
		clock:             clock,
	}
}

// Start consumes until ctx is done, re-subscribing when the source drops.
func (ec *EventConsumer) Start(ctx context.Context) error {
	for {
		err := ec.consume(ctx)
		if ctx.Err() != nil {
			log.Info().Msg("event consumer shutting down")
			return nil
		}
		log.Error().Err(err).Dur("retry_in", ec.retryDelay).Msg("change feed interrupted")

		select {
		case <-ctx.Done():
			return nil
		case <-ec.clock.After(ec.retryDelay):
		}
	}
}

func (ec *EventConsumer) consume(ctx context.Context) error {
	sub, err := ec.source.Subscribe(ctx, feed.TimersTable)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	log.Info().Msg("event consumer subscribed to change feed")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-sub.Events():
			if !ok {
				return fmt.Errorf("subscription closed")
			}
			ec.connectionManager.Broadcast(ev)
		}
	}
}
