package reconcile

import (
	"io"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// AlertPlayer plays the looping alert cue. Start and Stop must be idempotent.
type AlertPlayer interface {
	Start()
	Stop()
}

// NopPlayer is an AlertPlayer that does nothing.
type NopPlayer struct{}

func (NopPlayer) Start() {}
func (NopPlayer) Stop()  {}

// bell is the ASCII BEL character.
const bell = "\a"

// BellPlayer loops a terminal bell while started.
type BellPlayer struct {
	out      io.Writer
	clock    clockwork.Clock
	interval time.Duration

	mu     sync.Mutex
	volume float64
	stopCh chan struct{}
	done   chan struct{}
}

// NewBellPlayer creates a player writing to out once per interval.
func NewBellPlayer(out io.Writer, clock clockwork.Clock, interval time.Duration, volume float64) *BellPlayer {
	if interval <= 0 {
		interval = time.Second
	}
	return &BellPlayer{
		out:      out,
		clock:    clock,
		interval: interval,
		volume:   clampVolume(volume),
	}
}

// SetVolume adjusts the volume in [0,1]; 0 mutes the bell without stopping the loop.
func (p *BellPlayer) SetVolume(v float64) {
	p.mu.Lock()
	p.volume = clampVolume(v)
	p.mu.Unlock()
}

// Volume returns the current volume.
func (p *BellPlayer) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// Playing reports whether the loop is running.
func (p *BellPlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopCh != nil
}

// Start begins the loop. Calling Start while playing does nothing.
func (p *BellPlayer) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopCh != nil {
		return
	}
	p.stopCh = make(chan struct{})
	p.done = make(chan struct{})
	ticker := p.clock.NewTicker(p.interval)
	go p.loop(ticker, p.stopCh, p.done)
}

// Stop ends the loop and waits for it to exit. Calling Stop while idle does nothing.
func (p *BellPlayer) Stop() {
	p.mu.Lock()
	stopCh, done := p.stopCh, p.done
	p.stopCh, p.done = nil, nil
	p.mu.Unlock()
	if stopCh == nil {
		return
	}
	close(stopCh)
	<-done
}

func (p *BellPlayer) loop(ticker clockwork.Ticker, stopCh, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	p.ring()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.Chan():
			p.ring()
		}
	}
}

func (p *BellPlayer) ring() {
	if p.Volume() == 0 {
		return
	}
	if _, err := io.WriteString(p.out, bell); err != nil {
		log.Error().Err(err).Msg("failed to ring alert bell")
	}
}

func clampVolume(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
