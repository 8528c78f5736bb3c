package reconcile

import "github.com/mcdev12/fieldboss/go/internal/models"

// View is an immutable snapshot of the engine handed to the presentation layer.
type View struct {
	Resource     models.Resource `json:"resource"`
	Timers       []models.Timer  `json:"timers"`
	Summary      string          `json:"summary"`
	Alerting     bool            `json:"alerting"`
	AudioEnabled bool            `json:"audio_enabled"`
}

// Contains reports whether the snapshot holds a timer of kind on channel for resource.
func (v View) Contains(resource models.Resource, channel int, kind models.Kind) bool {
	if v.Resource != resource {
		return false
	}
	for _, t := range v.Timers {
		if t.Channel == channel && t.Kind == kind {
			return true
		}
	}
	return false
}

// Next returns the earliest expiring timer, if any.
func (v View) Next() (models.Timer, bool) {
	if len(v.Timers) == 0 {
		return models.Timer{}, false
	}
	return v.Timers[0], true
}
