package session

import (
	"context"
	"errors"

	"github.com/mcdev12/fieldboss/go/internal/feed"
	"github.com/mcdev12/fieldboss/go/internal/models"
	"github.com/rs/zerolog/log"
)

var errAlreadyRunning = errors.New("session already running")

// Everything in this file runs on the session loop.

// selectResource starts a new generation. Results and events from older
// generations are dropped when they reach the loop.
func (s *Session) selectResource(resource models.Resource) {
	s.gen++
	gen := s.gen

	s.dropSubscription()
	s.engine.Reset(resource)
	s.seeded = false
	s.pending = nil
	s.publish(s.engine.View())

	s.persist.enqueue("selected_resource", func(ctx context.Context) error {
		return s.prefs.SetSelectedResource(ctx, resource)
	})

	ctx, cancel := context.WithCancel(s.runCtx)
	s.subCancel = cancel

	go s.fetch(ctx, gen, resource)
	go s.follow(ctx, gen)

	log.Info().
		Str("resource", string(resource)).
		Uint64("generation", gen).
		Msg("resource selected")
}

func (s *Session) dropSubscription() {
	if s.subCancel != nil {
		s.subCancel()
		s.subCancel = nil
	}
	if s.sub != nil {
		if err := s.sub.Unsubscribe(); err != nil {
			log.Warn().Err(err).Msg("failed to unsubscribe from change feed")
		}
		s.sub = nil
	}
}

func (s *Session) fetch(ctx context.Context, gen uint64, resource models.Resource) {
	rows, err := s.store.FetchActive(ctx, resource)
	s.post(func() {
		if gen != s.gen {
			log.Debug().Uint64("generation", gen).Msg("dropping stale fetch result")
			return
		}
		now := s.clock.Now()
		if err != nil {
			// Keep following live events on top of an empty set.
			log.Error().Err(err).Str("resource", string(resource)).Msg("failed to fetch active timers")
		} else {
			s.engine.Seed(resource, rows, now)
		}
		s.seeded = true
		// Events that raced the fetch are merged on top of it.
		for _, ev := range s.pending {
			s.engine.ApplyChangeEvent(ev, now)
		}
		s.pending = nil
		s.publish(s.engine.View())

		if err == nil {
			go s.sweep(ctx)
		}
	})
}

func (s *Session) sweep(ctx context.Context) {
	if err := s.store.DeleteExpired(ctx, s.clock.Now()); err != nil {
		log.Error().Err(err).Msg("failed to delete expired timers")
	}
}

func (s *Session) follow(ctx context.Context, gen uint64) {
	if s.feed == nil {
		return
	}
	sub, err := s.feed.Subscribe(ctx, feed.TimersTable)
	if err != nil {
		log.Error().Err(err).Msg("failed to subscribe to change feed")
		return
	}

	s.post(func() {
		if gen != s.gen {
			_ = sub.Unsubscribe()
			return
		}
		s.sub = sub
	})

	for ev := range sub.Events() {
		s.post(func() { s.applyEvent(gen, ev) })
	}
}

func (s *Session) applyEvent(gen uint64, ev models.ChangeEvent) {
	if gen != s.gen {
		return
	}
	if !s.seeded {
		s.pending = append(s.pending, ev)
		return
	}
	if s.engine.ApplyChangeEvent(ev, s.clock.Now()) {
		s.publish(s.engine.View())
	}
}
