package timers

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/fieldboss/go/internal/metrics"
	"github.com/mcdev12/fieldboss/go/internal/models"
	"github.com/rs/zerolog/log"
)

// ActiveSet answers whether a timer is already displayed locally.
type ActiveSet interface {
	Contains(resource models.Resource, channel int, kind models.Kind) bool
}

// Coordinator serializes timer creation for one client and performs the
// purge-then-insert mutation sequence.
//
// Only one creation may be in flight at a time. A request arriving while
// another is running is dropped with ErrBusy rather than queued.
type Coordinator struct {
	store    Store
	active   ActiveSet
	clock    clockwork.Clock
	inFlight atomic.Bool
}

// NewCoordinator creates a coordinator. active may be nil to skip duplicate suppression.
func NewCoordinator(store Store, active ActiveSet, clock clockwork.Clock) *Coordinator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Coordinator{
		store:  store,
		active: active,
		clock:  clock,
	}
}

// InFlight reports whether a creation is currently running.
func (c *Coordinator) InFlight() bool {
	return c.inFlight.Load()
}

// RequestTimer starts a kind timer on channelInput for resource.
//
// The new row is not added to local state; it arrives through the change feed
// like any other viewer's timer.
func (c *Coordinator) RequestTimer(ctx context.Context, resource models.Resource, channelInput string, kind models.Kind) error {
	channel, duration, err := c.validate(resource, channelInput, kind)
	if err != nil {
		metrics.TimerRequestsTotal.WithLabelValues(string(resource), "invalid").Inc()
		log.Warn().
			Err(err).
			Str("resource", string(resource)).
			Str("channel", channelInput).
			Str("kind", string(kind)).
			Msg("rejected timer request")
		return err
	}

	if !c.inFlight.CompareAndSwap(false, true) {
		metrics.TimerRequestsTotal.WithLabelValues(string(resource), "busy").Inc()
		log.Debug().
			Str("resource", string(resource)).
			Int("channel", channel).
			Msg("timer request dropped, another is in flight")
		return ErrBusy
	}
	defer c.inFlight.Store(false)

	if c.active != nil && c.active.Contains(resource, channel, kind) {
		metrics.TimerRequestsTotal.WithLabelValues(string(resource), "duplicate").Inc()
		log.Debug().
			Str("resource", string(resource)).
			Int("channel", channel).
			Str("kind", string(kind)).
			Msg("timer already running")
		return ErrDuplicate
	}

	now := c.clock.Now()
	expiresAt := now.Add(duration)

	// Last writer wins per channel: whatever occupies it is evicted.
	if err := c.store.PurgeExpiredOrConflicting(ctx, resource, channel, now); err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("purge").Inc()
		log.Error().
			Err(err).
			Str("resource", string(resource)).
			Int("channel", channel).
			Msg("failed to purge timers before insert")
	}

	id, err := c.store.Insert(ctx, resource, channel, kind, expiresAt)
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("insert").Inc()
		metrics.TimerRequestsTotal.WithLabelValues(string(resource), "failed").Inc()
		log.Error().
			Err(err).
			Str("resource", string(resource)).
			Int("channel", channel).
			Str("kind", string(kind)).
			Msg("failed to insert timer")
		return fmt.Errorf("insert timer: %w", err)
	}

	metrics.TimerRequestsTotal.WithLabelValues(string(resource), "created").Inc()
	log.Info().
		Str("timer_id", id.String()).
		Str("resource", string(resource)).
		Int("channel", channel).
		Str("kind", string(kind)).
		Time("expires_at", expiresAt).
		Msg("timer created")
	return nil
}

func (c *Coordinator) validate(resource models.Resource, channelInput string, kind models.Kind) (int, time.Duration, error) {
	if !resource.Valid() {
		return 0, 0, &ValidationError{Field: "resource", Value: string(resource), Err: ErrUnknownResource}
	}
	channel, err := models.ParseChannel(channelInput)
	if err != nil {
		return 0, 0, &ValidationError{Field: "channel", Value: channelInput, Err: err}
	}
	duration, ok := resource.Duration(kind)
	if !ok {
		return 0, 0, &ValidationError{Field: "kind", Value: string(kind), Err: ErrUnknownKind}
	}
	return channel, duration, nil
}
