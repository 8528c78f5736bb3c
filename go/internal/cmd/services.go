package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/fieldboss/go/internal/config"
	"github.com/mcdev12/fieldboss/go/internal/feed"
	"github.com/mcdev12/fieldboss/go/internal/timers"
	timersdb "github.com/mcdev12/fieldboss/go/internal/timers/db"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// Services holds the store and feed selected by configuration.
type Services struct {
	Store timers.Store
	Feed  feed.Feed

	pool   *pgxpool.Pool
	nc     *nats.Conn
	js     jetstream.JetStream
	memory *timers.MemoryStore
}

func (s *Services) Close() {
	if s.nc != nil {
		if err := s.nc.Drain(); err != nil {
			log.Warn().Err(err).Msg("failed to drain NATS connection")
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

func natsConfig(c *config.Config) feed.NATSConfig {
	nc := feed.DefaultNATSConfig()
	nc.URL = c.NATS.URL
	nc.StreamName = c.NATS.Stream
	nc.SubjectPrefix = c.NATS.SubjectPrefix
	return nc
}

// setupServices wires the store and feed drivers. Both memory drivers share
// one MemoryStore so inserts show up on the feed.
func setupServices(ctx context.Context, c *config.Config) (*Services, error) {
	s := &Services{}

	switch c.Store.Driver {
	case config.StorePostgres:
		pool, err := setupDatabase(ctx, c.Database)
		if err != nil {
			return nil, err
		}
		s.pool = pool
		s.Store = timers.NewRepository(timersdb.New(pool))
	case config.StoreRemote:
		s.Store = timers.NewClient(&http.Client{Timeout: 10 * time.Second}, c.Gateway.URL)
	case config.StoreMemory:
		s.memory = timers.NewMemoryStore()
		s.Store = s.memory
	default:
		return nil, fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	switch c.Feed.Driver {
	case config.FeedPostgres:
		pg := feed.DefaultPGConfig()
		pg.DatabaseURL = c.Database.DSN()
		s.Feed = feed.NewPGFeed(pg, clockwork.NewRealClock())
	case config.FeedNATS:
		ncfg := natsConfig(c)
		nc, js, err := feed.ConnectJetStream(ncfg)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.nc, s.js = nc, js
		if err := feed.EnsureStream(ctx, js, ncfg); err != nil {
			s.Close()
			return nil, err
		}
		s.Feed = feed.NewNATSFeed(js, ncfg)
	case config.FeedWS:
		ws := feed.DefaultWSConfig()
		ws.GatewayURL = c.Gateway.URL
		s.Feed = feed.NewWSFeed(ws, clockwork.NewRealClock())
	case config.FeedMemory:
		if s.memory == nil {
			s.Close()
			return nil, fmt.Errorf("memory feed requires the memory store")
		}
		s.Feed = s.memory
	default:
		s.Close()
		return nil, fmt.Errorf("unknown feed driver %q", c.Feed.Driver)
	}

	log.Info().
		Str("store", c.Store.Driver).
		Str("feed", c.Feed.Driver).
		Msg("services ready")
	return s, nil
}
