package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

type prefWrite struct {
	name  string
	apply func(ctx context.Context) error
}

// prefWriter applies preference writes one at a time in submission order, so
// the last value chosen is the one left in the store.
type prefWriter struct {
	mu      sync.Mutex
	pending []prefWrite
	running bool
	idle    *sync.Cond
}

func newPrefWriter() *prefWriter {
	w := &prefWriter{}
	w.idle = sync.NewCond(&w.mu)
	return w
}

func (w *prefWriter) enqueue(name string, apply func(ctx context.Context) error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(w.pending, prefWrite{name: name, apply: apply})
	if !w.running {
		w.running = true
		go w.drain()
	}
}

func (w *prefWriter) drain() {
	for {
		w.mu.Lock()
		if len(w.pending) == 0 {
			w.running = false
			w.idle.Broadcast()
			w.mu.Unlock()
			return
		}
		next := w.pending[0]
		w.pending = w.pending[1:]
		w.mu.Unlock()

		if err := next.apply(context.Background()); err != nil {
			log.Error().Err(err).Str("preference", next.name).Msg("failed to persist preference")
		}
	}
}

// wait blocks until every queued write has been applied.
func (w *prefWriter) wait() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for w.running {
		w.idle.Wait()
	}
}
