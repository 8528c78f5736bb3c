package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/fieldboss/go/internal/metrics"
	"github.com/mcdev12/fieldboss/go/internal/models"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// NATSConfig holds configuration for the JetStream change stream
type NATSConfig struct {
	URL           string
	StreamName    string
	SubjectPrefix string        // events go to <prefix>.<resource>
	MaxAge        time.Duration // How long the stream retains events
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConfig returns default JetStream configuration
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		StreamName:    "TIMER_EVENTS",
		SubjectPrefix: "timers.events",
		MaxAge:        time.Hour,
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// Subject returns the subject events for resource are published on.
func (c NATSConfig) Subject(resource models.Resource) string {
	return c.SubjectPrefix + "." + string(resource)
}

// ConnectJetStream creates a NATS connection with JetStream
func ConnectJetStream(cfg NATSConfig) (*nats.Conn, jetstream.JetStream, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create JetStream context: %w", err)
	}

	return nc, js, nil
}

// EnsureStream creates or updates the change stream
func EnsureStream(ctx context.Context, js jetstream.JetStream, cfg NATSConfig) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        cfg.StreamName,
		Description: "Timer table change events",
		Subjects:    []string{cfg.SubjectPrefix + ".>"},
		MaxAge:      cfg.MaxAge,
		Duplicates:  time.Minute,
	})
	if err != nil {
		return fmt.Errorf("ensure stream %s: %w", cfg.StreamName, err)
	}
	log.Info().Str("stream", cfg.StreamName).Msg("JetStream stream ready")
	return nil
}

// NATSPublisher publishes change events to JetStream
type NATSPublisher struct {
	js    jetstream.JetStream
	cfg   NATSConfig
	clock clockwork.Clock
}

func NewNATSPublisher(js jetstream.JetStream, cfg NATSConfig, clock clockwork.Clock) *NATSPublisher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &NATSPublisher{js: js, cfg: cfg, clock: clock}
}

func (p *NATSPublisher) Publish(ctx context.Context, ev models.ChangeEvent) error {
	data, err := EncodeEnvelope(ev, p.clock.Now())
	if err != nil {
		return err
	}

	subject := p.cfg.Subject(ev.Resource)
	if _, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(EventID(ev))); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}

	log.Debug().
		Str("subject", subject).
		Str("row_id", ev.RowID.String()).
		Str("op", string(ev.Op)).
		Msg("published change event")
	return nil
}

// NATSFeed delivers change events from JetStream. Each subscription is an
// ordered ephemeral consumer that starts at the newest message.
type NATSFeed struct {
	js  jetstream.JetStream
	cfg NATSConfig
}

func NewNATSFeed(js jetstream.JetStream, cfg NATSConfig) *NATSFeed {
	return &NATSFeed{js: js, cfg: cfg}
}

var _ Feed = (*NATSFeed)(nil)

func (f *NATSFeed) Subscribe(ctx context.Context, table string) (Subscription, error) {
	if table != TimersTable {
		return nil, fmt.Errorf("unknown table %q", table)
	}

	consumer, err := f.js.OrderedConsumer(ctx, f.cfg.StreamName, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{f.cfg.SubjectPrefix + ".>"},
		DeliverPolicy:  jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("create ordered consumer: %w", err)
	}

	sub := newChanSubscription(subscriberBuffer)
	messageCh := make(chan jetstream.Msg, 100)

	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		select {
		case messageCh <- msg:
		case <-sub.done:
		}
	})
	if err != nil {
		return nil, fmt.Errorf("start consumer: %w", err)
	}
	sub.cancel = func() error {
		consumeCtx.Stop()
		return nil
	}

	go func() {
		defer close(sub.events)
		for {
			select {
			case <-ctx.Done():
				_ = sub.Unsubscribe()
				return
			case <-sub.done:
				return
			case msg := <-messageCh:
				ev, err := DecodeEnvelope(msg.Data())
				if err != nil {
					metrics.FeedDecodeErrors.WithLabelValues("nats").Inc()
					log.Error().
						Err(err).
						Str("subject", msg.Subject()).
						Msg("failed to decode change event")
					continue
				}
				metrics.FeedEventsTotal.WithLabelValues("nats", string(ev.Op)).Inc()
				if !sub.deliver(ev) {
					return
				}
			}
		}
	}()

	log.Info().
		Str("stream", f.cfg.StreamName).
		Str("subjects", f.cfg.SubjectPrefix+".>").
		Msg("subscribed to JetStream change events")
	return sub, nil
}
