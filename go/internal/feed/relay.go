package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/fieldboss/go/internal/metrics"
	"github.com/mcdev12/fieldboss/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Publisher is an interface that defines our publisher.
type Publisher interface {
	Publish(ctx context.Context, ev models.ChangeEvent) error
}

type RelayConfig struct {
	MaxRetries int
	RetryDelay time.Duration
}

func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		MaxRetries: 5,
		RetryDelay: 200 * time.Millisecond,
	}
}

// Relay forwards every event from a source feed (the database) to a
// publisher (the bus) so viewers without database access can follow changes.
type Relay struct {
	source    Feed
	publisher Publisher
	cfg       RelayConfig
	clock     clockwork.Clock

	mu        sync.Mutex
	running   bool
	processed uint64
	lastEvent time.Time
}

func NewRelay(source Feed, publisher Publisher, cfg RelayConfig, clock clockwork.Clock) *Relay {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Relay{
		source:    source,
		publisher: publisher,
		cfg:       cfg,
		clock:     clock,
	}
}

// Start relays events until ctx is done or the source subscription ends.
func (r *Relay) Start(ctx context.Context) error {
	sub, err := r.source.Subscribe(ctx, TimersTable)
	if err != nil {
		return fmt.Errorf("subscribe to source: %w", err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	r.setRunning(true)
	defer r.setRunning(false)

	log.Info().Msg("relay started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("relay shutting down")
			return nil
		case ev, ok := <-sub.Events():
			if !ok {
				return fmt.Errorf("source subscription closed")
			}
			if err := r.publishWithRetry(ctx, ev); err != nil {
				metrics.RelayPublishFailures.Inc()
				log.Error().
					Err(err).
					Str("row_id", ev.RowID.String()).
					Msg("failed to relay change event")
				continue
			}
			metrics.RelayPublishedTotal.Inc()
			r.recordPublished()
		}
	}
}

// Stats returns how many events were relayed and when the last one was.
func (r *Relay) Stats() (uint64, time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.processed, r.lastEvent
}

// Running reports whether Start is subscribed to the source.
func (r *Relay) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Relay) setRunning(running bool) {
	r.mu.Lock()
	r.running = running
	r.mu.Unlock()
}

func (r *Relay) recordPublished() {
	r.mu.Lock()
	r.processed++
	r.lastEvent = r.clock.Now()
	r.mu.Unlock()
}

// publishWithRetry attempts to publish an event with a linearly growing delay.
func (r *Relay) publishWithRetry(ctx context.Context, ev models.ChangeEvent) error {
	var lastErr error

	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := r.cfg.RetryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-r.clock.After(delay):
			}
		}

		if err := r.publisher.Publish(ctx, ev); err != nil {
			lastErr = err
			log.Error().
				Err(err).
				Int("attempt", attempt+1).
				Str("row_id", ev.RowID.String()).
				Msg("failed to publish, retrying")
			continue
		}

		if attempt > 0 {
			log.Info().
				Int("attempt", attempt+1).
				Str("row_id", ev.RowID.String()).
				Msg("publish succeeded after retry")
		}
		return nil
	}

	return fmt.Errorf("publish failed after %d attempts: %w", r.cfg.MaxRetries+1, lastErr)
}
