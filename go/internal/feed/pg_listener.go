package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/lib/pq"
	"github.com/mcdev12/fieldboss/go/internal/metrics"
	"github.com/rs/zerolog/log"
)

type PGConfig struct {
	DatabaseURL          string        // Postgres DSN for LISTEN/NOTIFY
	NotifyChannel        string        // Channel name to LISTEN on
	MinReconnectInterval time.Duration
	MaxReconnectInterval time.Duration
	PingInterval         time.Duration
}

func DefaultPGConfig() PGConfig {
	return PGConfig{
		DatabaseURL:          "",
		NotifyChannel:        "timers_changes",
		MinReconnectInterval: 10 * time.Second,
		MaxReconnectInterval: time.Minute,
		PingInterval:         90 * time.Second,
	}
}

// PGFeed listens for the notifications the timers trigger emits.
type PGFeed struct {
	cfg   PGConfig
	clock clockwork.Clock
}

func NewPGFeed(cfg PGConfig, clock clockwork.Clock) *PGFeed {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &PGFeed{cfg: cfg, clock: clock}
}

var _ Feed = (*PGFeed)(nil)

// Subscribe opens a dedicated LISTEN connection for the subscription.
func (f *PGFeed) Subscribe(ctx context.Context, table string) (Subscription, error) {
	if table != TimersTable {
		return nil, fmt.Errorf("unknown table %q", table)
	}

	l := pq.NewListener(
		f.cfg.DatabaseURL,
		f.cfg.MinReconnectInterval,
		f.cfg.MaxReconnectInterval,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("listener event")
			}
			if ev == pq.ListenerEventReconnected {
				log.Warn().
					Str("channel", f.cfg.NotifyChannel).
					Msg("listener reconnected, notifications may have been missed")
			}
		},
	)
	if err := l.Listen(f.cfg.NotifyChannel); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	log.Info().
		Str("channel", f.cfg.NotifyChannel).
		Msg("listening for notifications")

	sub := newChanSubscription(subscriberBuffer)
	sub.cancel = l.Close
	go f.run(ctx, l, sub)
	return sub, nil
}

func (f *PGFeed) run(ctx context.Context, l *pq.Listener, sub *chanSubscription) {
	defer close(sub.events)

	pingTicker := f.clock.NewTicker(f.cfg.PingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = sub.Unsubscribe()
			return
		case <-sub.done:
			return
		case note, ok := <-l.Notify:
			if !ok {
				return
			}
			if note == nil {
				// nil notification means the connection was lost and re-established
				continue
			}
			ev, err := DecodeNotification(note.Extra)
			if err != nil {
				metrics.FeedDecodeErrors.WithLabelValues("postgres").Inc()
				log.Error().Err(err).Msg("failed to decode notification")
				continue
			}
			metrics.FeedEventsTotal.WithLabelValues("postgres", string(ev.Op)).Inc()
			if !sub.deliver(ev) {
				return
			}
		case <-pingTicker.Chan():
			if err := l.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}
