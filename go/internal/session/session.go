package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/fieldboss/go/internal/feed"
	"github.com/mcdev12/fieldboss/go/internal/models"
	"github.com/mcdev12/fieldboss/go/internal/prefs"
	"github.com/mcdev12/fieldboss/go/internal/reconcile"
	"github.com/mcdev12/fieldboss/go/internal/timers"
	"github.com/rs/zerolog/log"
)

// Observer receives every published view. Observers run on the session loop
// and must not call back into the session synchronously.
type Observer func(reconcile.View)

// VolumeControl is implemented by players whose output level can change.
type VolumeControl interface {
	SetVolume(v float64)
}

type Config struct {
	TickInterval time.Duration
	QueueSize    int
}

func DefaultConfig() Config {
	return Config{
		TickInterval: time.Second,
		QueueSize:    256,
	}
}

// Session drives one viewer: it owns the reconciliation engine and feeds it
// ticks, fetch results and change events from a single goroutine.
type Session struct {
	cfg         Config
	store       timers.Store
	feed        feed.Feed
	prefs       prefs.Store
	clock       clockwork.Clock
	player      reconcile.AlertPlayer
	engine      *reconcile.Engine
	coordinator *timers.Coordinator

	queue    chan func()
	done     chan struct{}
	started  atomic.Bool
	snapshot atomic.Pointer[reconcile.View]
	volume   atomic.Value // float64

	obsMu     sync.Mutex
	observers []Observer

	persist *prefWriter

	// Loop-owned state.
	runCtx    context.Context
	gen       uint64
	seeded    bool
	pending   []models.ChangeEvent
	sub       feed.Subscription
	subCancel context.CancelFunc
}

// New creates a session. player may be nil for headless use.
func New(cfg Config, store timers.Store, source feed.Feed, preferences prefs.Store, player reconcile.AlertPlayer, clock clockwork.Clock) *Session {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if player == nil {
		player = reconcile.NopPlayer{}
	}
	if preferences == nil {
		preferences = prefs.NewMemory()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultConfig().TickInterval
	}

	s := &Session{
		cfg:     cfg,
		store:   store,
		feed:    source,
		prefs:   preferences,
		clock:   clock,
		player:  player,
		engine:  reconcile.NewEngine(models.DefaultResource, player),
		queue:   make(chan func(), cfg.QueueSize),
		done:    make(chan struct{}),
		persist: newPrefWriter(),
	}
	s.coordinator = timers.NewCoordinator(store, s, clock)
	s.volume.Store(prefs.DefaultVolume)
	initial := s.engine.View()
	s.snapshot.Store(&initial)
	return s
}

// Observe registers fn for every future view.
func (s *Session) Observe(fn Observer) {
	s.obsMu.Lock()
	s.observers = append(s.observers, fn)
	s.obsMu.Unlock()
}

// View returns the latest published snapshot.
func (s *Session) View() reconcile.View {
	return *s.snapshot.Load()
}

// Contains checks the latest snapshot, so it is safe from any goroutine.
func (s *Session) Contains(resource models.Resource, channel int, kind models.Kind) bool {
	return s.View().Contains(resource, channel, kind)
}

// Volume returns the current alert volume.
func (s *Session) Volume() float64 {
	return s.volume.Load().(float64)
}

// Run loads preferences, selects the stored resource and processes events
// until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return errAlreadyRunning
	}
	defer close(s.done)

	s.runCtx = ctx
	s.loadPreferences(ctx)
	s.selectResource(s.initialResource(ctx))

	ticker := s.clock.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	defer func() {
		s.dropSubscription()
		s.player.Stop()
		s.persist.wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-s.queue:
			fn()
		case <-ticker.Chan():
			s.publish(s.engine.Tick(s.clock.Now()))
		}
	}
}

// SelectResource switches the viewer to resource. Unknown names are ignored.
func (s *Session) SelectResource(resource models.Resource) {
	if !resource.Valid() {
		log.Warn().Str("resource", string(resource)).Msg("ignoring unknown resource")
		return
	}
	s.post(func() { s.selectResource(resource) })
}

// CycleResource selects the resource delta steps away in display order.
func (s *Session) CycleResource(delta int) {
	s.SelectResource(cycle(s.View().Resource, delta))
}

// RequestTimer starts a timer on the selected resource. It blocks on the
// store, so interactive callers run it off their UI goroutine.
func (s *Session) RequestTimer(ctx context.Context, channelInput string, kind models.Kind) error {
	return s.coordinator.RequestTimer(ctx, s.View().Resource, channelInput, kind)
}

// SetAudioEnabled turns alert audio on or off and persists the choice.
func (s *Session) SetAudioEnabled(enabled bool) {
	s.post(func() { s.setAudio(enabled) })
}

// ToggleAudio flips alert audio based on the loop's current state, so quick
// repeated toggles never read a stale view.
func (s *Session) ToggleAudio() {
	s.post(func() { s.setAudio(!s.engine.AudioEnabled()) })
}

func (s *Session) setAudio(enabled bool) {
	s.engine.SetAudioEnabled(enabled)
	s.publish(s.engine.View())
	s.persist.enqueue("audio_enabled", func(ctx context.Context) error {
		return s.prefs.SetAudioEnabled(ctx, enabled)
	})
}

// SetVolume changes the alert volume and persists it.
func (s *Session) SetVolume(v float64) {
	v = prefs.ClampVolume(v)
	s.volume.Store(v)
	if vc, ok := s.player.(VolumeControl); ok {
		vc.SetVolume(v)
	}
	s.persist.enqueue("volume", func(ctx context.Context) error {
		return s.prefs.SetVolume(ctx, v)
	})
}

// post enqueues fn for the loop. It gives up once the session has stopped.
func (s *Session) post(fn func()) {
	select {
	case s.queue <- fn:
	case <-s.done:
	}
}

func (s *Session) publish(v reconcile.View) {
	s.snapshot.Store(&v)

	s.obsMu.Lock()
	observers := make([]Observer, len(s.observers))
	copy(observers, s.observers)
	s.obsMu.Unlock()

	for _, fn := range observers {
		fn(v)
	}
}

func (s *Session) loadPreferences(ctx context.Context) {
	audio, err := s.prefs.AudioEnabled(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to load audio preference")
	}
	s.engine.SetAudioEnabled(audio)

	volume, err := s.prefs.Volume(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to load volume preference")
		volume = prefs.DefaultVolume
	}
	s.volume.Store(volume)
	if vc, ok := s.player.(VolumeControl); ok {
		vc.SetVolume(volume)
	}
}

func (s *Session) initialResource(ctx context.Context) models.Resource {
	resource, err := s.prefs.SelectedResource(ctx)
	if err != nil || !resource.Valid() {
		if err != nil {
			log.Error().Err(err).Msg("failed to load selected resource")
		}
		return models.DefaultResource
	}
	return resource
}

func cycle(current models.Resource, delta int) models.Resource {
	all := models.Resources()
	idx := 0
	for i, r := range all {
		if r == current {
			idx = i
			break
		}
	}
	n := len(all)
	return all[((idx+delta)%n+n)%n]
}
