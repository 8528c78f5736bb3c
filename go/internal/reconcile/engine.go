package reconcile

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/fieldboss/go/internal/models"
	"github.com/rs/zerolog/log"
)

// entry is an active timer plus the order in which it arrived, used to keep
// sorting stable across Tick calls.
type entry struct {
	timer models.Timer
	seq   uint64
}

// Engine owns the active set of timers for the selected resource.
//
// Seed, ApplyChangeEvent and Tick are the only writers. The engine is not safe
// for concurrent use; the session runs every call on its event loop.
type Engine struct {
	resource     models.Resource
	active       map[uuid.UUID]*entry
	sorted       []*entry
	nextSeq      uint64
	audioEnabled bool
	alerting     bool
	player       AlertPlayer
	summary      string
}

// NewEngine creates an engine for resource. A nil player disables audio output.
func NewEngine(resource models.Resource, player AlertPlayer) *Engine {
	if player == nil {
		player = NopPlayer{}
	}
	return &Engine{
		resource: resource,
		active:   make(map[uuid.UUID]*entry),
		player:   player,
		summary:  models.IdleLabel,
	}
}

// Resource returns the currently selected resource.
func (e *Engine) Resource() models.Resource {
	return e.resource
}

// SetAudioEnabled toggles the audio preference. The alert follows on the next tick.
func (e *Engine) SetAudioEnabled(enabled bool) {
	e.audioEnabled = enabled
}

// AudioEnabled reports the audio preference.
func (e *Engine) AudioEnabled() bool {
	return e.audioEnabled
}

// Reset switches the engine to resource and drops every active timer.
func (e *Engine) Reset(resource models.Resource) {
	e.resource = resource
	e.active = make(map[uuid.UUID]*entry)
	e.sorted = nil
	e.summary = models.IdleLabel
}

// Seed replaces the active set with rows fetched for resource. Rows already
// expired at now are skipped.
func (e *Engine) Seed(resource models.Resource, rows []models.TimerRow, now time.Time) {
	e.Reset(resource)
	for _, row := range rows {
		if row.Resource != resource {
			continue
		}
		remaining := models.RemainingSeconds(row.ExpiresAt, now)
		if remaining == 0 {
			continue
		}
		e.insert(row, remaining)
	}
	e.resort()
	e.summary = e.summaryLabel()

	log.Debug().
		Str("resource", string(resource)).
		Int("fetched", len(rows)).
		Int("active", len(e.sorted)).
		Msg("seeded active timers")
}

// ApplyChangeEvent merges a feed event into the active set. Every timer on the
// event's channel is replaced by the event's timer, so applying the same event
// twice yields the same set. It reports whether the set changed shape.
func (e *Engine) ApplyChangeEvent(ev models.ChangeEvent, now time.Time) bool {
	if !ev.IsUpsert() {
		return false
	}
	if ev.Resource != e.resource {
		return false
	}
	remaining := models.RemainingSeconds(ev.ExpiresAt, now)
	if remaining == 0 {
		// An expired row never supersedes a live one.
		log.Debug().
			Str("row_id", ev.RowID.String()).
			Int("channel", ev.Channel).
			Msg("ignoring expired change event")
		return false
	}

	for id, en := range e.active {
		if en.timer.Channel == ev.Channel {
			delete(e.active, id)
		}
	}
	e.insert(ev.Row(), remaining)
	e.resort()
	e.summary = e.summaryLabel()
	return true
}

// Tick recomputes remaining time for every active timer, drops expired ones and
// derives the alert and summary state.
func (e *Engine) Tick(now time.Time) View {
	shouldAlert := false
	for id, en := range e.active {
		remaining := models.RemainingSeconds(en.timer.ExpiresAt, now)
		if remaining == 0 {
			delete(e.active, id)
			continue
		}
		en.timer.RemainingSec = remaining
		if remaining <= models.AlertThresholdSec && e.audioEnabled {
			shouldAlert = true
		}
	}
	e.resort()
	e.summary = e.summaryLabel()

	switch {
	case shouldAlert && !e.alerting:
		e.alerting = true
		e.player.Start()
		log.Debug().Str("resource", string(e.resource)).Msg("alert started")
	case !shouldAlert && e.alerting:
		e.alerting = false
		e.player.Stop()
		log.Debug().Str("resource", string(e.resource)).Msg("alert stopped")
	}

	return e.View()
}

// Contains reports whether a timer of kind on channel is active for resource.
func (e *Engine) Contains(resource models.Resource, channel int, kind models.Kind) bool {
	if resource != e.resource {
		return false
	}
	for _, en := range e.sorted {
		if en.timer.Channel == channel && en.timer.Kind == kind {
			return true
		}
	}
	return false
}

// Len returns the number of active timers.
func (e *Engine) Len() int {
	return len(e.sorted)
}

// View returns a snapshot of the current state.
func (e *Engine) View() View {
	timers := make([]models.Timer, len(e.sorted))
	for i, en := range e.sorted {
		timers[i] = en.timer
	}
	return View{
		Resource:     e.resource,
		Timers:       timers,
		Summary:      e.summary,
		Alerting:     e.alerting,
		AudioEnabled: e.audioEnabled,
	}
}

func (e *Engine) insert(row models.TimerRow, remaining int) {
	e.nextSeq++
	e.active[row.ID] = &entry{
		timer: models.Timer{TimerRow: row, RemainingSec: remaining},
		seq:   e.nextSeq,
	}
}

// resort rebuilds the sorted slice: ascending expiry, ties by arrival order.
func (e *Engine) resort() {
	sorted := make([]*entry, 0, len(e.active))
	for _, en := range e.active {
		sorted = append(sorted, en)
	}
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.timer.ExpiresAt.Equal(b.timer.ExpiresAt) {
			return a.timer.ExpiresAt.Before(b.timer.ExpiresAt)
		}
		return a.seq < b.seq
	})
	e.sorted = sorted
}

func (e *Engine) summaryLabel() string {
	if len(e.sorted) == 0 {
		return models.IdleLabel
	}
	next := e.sorted[0].timer
	return fmt.Sprintf("%s - %d - %s left", e.resource, next.Channel, models.FormatRemaining(next.RemainingSec))
}
