package prefs

import (
	"context"
	"sync"

	"github.com/mcdev12/fieldboss/go/internal/models"
)

// Preference keys.
const (
	KeySelectedResource = "selected_resource"
	KeyAudioEnabled     = "audio_enabled"
	KeyVolume           = "volume"
)

// DefaultVolume is used until the viewer changes it.
const DefaultVolume = 0.5

// Store persists viewer preferences across restarts.
type Store interface {
	SelectedResource(ctx context.Context) (models.Resource, error)
	SetSelectedResource(ctx context.Context, r models.Resource) error
	AudioEnabled(ctx context.Context) (bool, error)
	SetAudioEnabled(ctx context.Context, enabled bool) error
	Volume(ctx context.Context) (float64, error)
	SetVolume(ctx context.Context, v float64) error
}

// ClampVolume limits v to [0, 1].
func ClampVolume(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Memory is a Store that forgets everything on exit.
type Memory struct {
	mu       sync.Mutex
	resource models.Resource
	audio    bool
	volume   float64
}

func NewMemory() *Memory {
	return &Memory{resource: models.DefaultResource, volume: DefaultVolume}
}

var _ Store = (*Memory)(nil)

func (m *Memory) SelectedResource(context.Context) (models.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resource, nil
}

func (m *Memory) SetSelectedResource(_ context.Context, r models.Resource) error {
	if _, err := models.ParseResource(string(r)); err != nil {
		return err
	}
	m.mu.Lock()
	m.resource = r
	m.mu.Unlock()
	return nil
}

func (m *Memory) AudioEnabled(context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.audio, nil
}

func (m *Memory) SetAudioEnabled(_ context.Context, enabled bool) error {
	m.mu.Lock()
	m.audio = enabled
	m.mu.Unlock()
	return nil
}

func (m *Memory) Volume(context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume, nil
}

func (m *Memory) SetVolume(_ context.Context, v float64) error {
	m.mu.Lock()
	m.volume = ClampVolume(v)
	m.mu.Unlock()
	return nil
}
