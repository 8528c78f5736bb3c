package prefs

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mcdev12/fieldboss/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) (*SQLite, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prefs.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestSQLiteDefaults(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()

	r, err := s.SelectedResource(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultResource, r)

	audio, err := s.AudioEnabled(ctx)
	require.NoError(t, err)
	assert.False(t, audio)

	v, err := s.Volume(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultVolume, v)
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	s, path := openTemp(t)
	ctx := context.Background()

	require.NoError(t, s.SetSelectedResource(ctx, models.ResourcePinchy))
	require.NoError(t, s.SetAudioEnabled(ctx, true))
	require.NoError(t, s.SetVolume(ctx, 0.8))
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	r, err := reopened.SelectedResource(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ResourcePinchy, r)

	audio, err := reopened.AudioEnabled(ctx)
	require.NoError(t, err)
	assert.True(t, audio)

	v, err := reopened.Volume(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, v, 1e-9)
}

func TestSQLiteClampsVolume(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()

	require.NoError(t, s.SetVolume(ctx, 3))
	v, err := s.Volume(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)

	require.NoError(t, s.SetVolume(ctx, -1))
	v, err = s.Volume(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
}

func TestSQLiteRejectsUnknownResource(t *testing.T) {
	s, _ := openTemp(t)
	assert.Error(t, s.SetSelectedResource(context.Background(), models.Resource("Dragon")))
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.SetSelectedResource(ctx, models.ResourceBulbari))
	require.NoError(t, m.SetVolume(ctx, 2))

	r, _ := m.SelectedResource(ctx)
	v, _ := m.Volume(ctx)
	assert.Equal(t, models.ResourceBulbari, r)
	assert.Equal(t, 1.0, v)
}
