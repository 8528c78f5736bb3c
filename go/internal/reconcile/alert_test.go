package reconcile

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestBellPlayerLoops(t *testing.T) {
	out := &syncBuffer{}
	clock := clockwork.NewFakeClock()
	p := NewBellPlayer(out, clock, time.Second, 1)

	p.Start()
	p.Start()
	require.True(t, p.Playing())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	require.Eventually(t, func() bool { return out.String() == "\a" }, time.Second, 5*time.Millisecond)
	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return out.String() == "\a\a" }, time.Second, 5*time.Millisecond)

	p.Stop()
	p.Stop()
	assert.False(t, p.Playing())

	clock.Advance(5 * time.Second)
	assert.Equal(t, "\a\a", out.String())
}

func TestBellPlayerMutedAtZeroVolume(t *testing.T) {
	out := &syncBuffer{}
	clock := clockwork.NewFakeClock()
	p := NewBellPlayer(out, clock, time.Second, 0)

	p.Start()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Second)
	p.Stop()

	assert.Empty(t, out.String())
}

func TestBellPlayerClampsVolume(t *testing.T) {
	p := NewBellPlayer(&syncBuffer{}, clockwork.NewFakeClock(), 0, 4)
	assert.Equal(t, 1.0, p.Volume())
	p.SetVolume(-2)
	assert.Equal(t, 0.0, p.Volume())
}
