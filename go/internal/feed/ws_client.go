package feed

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/fieldboss/go/internal/metrics"
	"github.com/mcdev12/fieldboss/go/internal/models"
	"github.com/rs/zerolog/log"
)

// WSConfig holds configuration for following a gateway over websocket
type WSConfig struct {
	GatewayURL       string // ws:// or http:// base URL of the gateway
	Resource         models.Resource
	ReconnectDelay   time.Duration
	HandshakeTimeout time.Duration
}

func DefaultWSConfig() WSConfig {
	return WSConfig{
		GatewayURL:       "ws://localhost:8080",
		ReconnectDelay:   2 * time.Second,
		HandshakeTimeout: 10 * time.Second,
	}
}

// WSFeed follows the gateway's /ws/timers stream. The connection is
// re-dialed after drops until the subscription ends.
type WSFeed struct {
	cfg    WSConfig
	dialer *websocket.Dialer
	clock  clockwork.Clock
}

func NewWSFeed(cfg WSConfig, clock clockwork.Clock) *WSFeed {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &WSFeed{
		cfg:   cfg,
		clock: clock,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
	}
}

var _ Feed = (*WSFeed)(nil)

// StreamURL builds the websocket URL for the configured gateway and resource.
func (f *WSFeed) StreamURL() (string, error) {
	u, err := url.Parse(f.cfg.GatewayURL)
	if err != nil {
		return "", fmt.Errorf("parse gateway url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported gateway scheme %q", u.Scheme)
	}
	u.Path = "/ws/timers"
	if f.cfg.Resource != "" {
		q := u.Query()
		q.Set("resource", string(f.cfg.Resource))
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (f *WSFeed) Subscribe(ctx context.Context, table string) (Subscription, error) {
	if table != TimersTable {
		return nil, fmt.Errorf("unknown table %q", table)
	}
	target, err := f.StreamURL()
	if err != nil {
		return nil, err
	}

	// Dial once up front so a bad address fails the subscription.
	conn, _, err := f.dialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}

	sub := newChanSubscription(subscriberBuffer)
	var (
		mu      sync.Mutex
		current = conn
	)
	sub.cancel = func() error {
		mu.Lock()
		defer mu.Unlock()
		if current == nil {
			return nil
		}
		err := current.Close()
		current = nil
		return err
	}

	go func() {
		defer close(sub.events)
		c := conn
		for {
			if c != nil {
				f.readLoop(ctx, sub, c)
				mu.Lock()
				if current == c {
					_ = c.Close()
					current = nil
				}
				mu.Unlock()
			}

			select {
			case <-ctx.Done():
				_ = sub.Unsubscribe()
				return
			case <-sub.done:
				return
			case <-f.clock.After(f.cfg.ReconnectDelay):
			}

			next, _, err := f.dialer.DialContext(ctx, target, nil)
			if err != nil {
				log.Warn().Err(err).Str("url", target).Msg("gateway reconnect failed")
				c = nil
				continue
			}

			mu.Lock()
			select {
			case <-sub.done:
				mu.Unlock()
				_ = next.Close()
				return
			default:
			}
			current = next
			mu.Unlock()
			c = next
			log.Info().Str("url", target).Msg("reconnected to gateway")
		}
	}()

	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Unsubscribe()
		case <-sub.done:
		}
	}()

	log.Info().Str("url", target).Msg("subscribed to gateway change events")
	return sub, nil
}

// readLoop decodes envelopes from conn until it fails.
func (f *WSFeed) readLoop(ctx context.Context, sub *chanSubscription, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-sub.done:
			case <-ctx.Done():
			default:
				log.Warn().Err(err).Msg("gateway connection lost")
			}
			return
		}
		ev, err := DecodeEnvelope(data)
		if err != nil {
			metrics.FeedDecodeErrors.WithLabelValues("ws").Inc()
			log.Error().Err(err).Msg("failed to decode gateway message")
			continue
		}
		metrics.FeedEventsTotal.WithLabelValues("ws", string(ev.Op)).Inc()
		if !sub.deliver(ev) {
			return
		}
	}
}
