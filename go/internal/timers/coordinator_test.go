package timers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/fieldboss/go/internal/feed"
	"github.com/mcdev12/fieldboss/go/internal/models"
	"github.com/mcdev12/fieldboss/go/internal/reconcile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

type insertCall struct {
	resource  models.Resource
	channel   int
	kind      models.Kind
	expiresAt time.Time
}

// fakeStore records calls. When block is set, Insert waits on it.
type fakeStore struct {
	mu        sync.Mutex
	purges    int
	inserts   []insertCall
	purgeErr  error
	insertErr error
	block     chan struct{}
	entered   chan struct{}
}

func (f *fakeStore) FetchActive(context.Context, models.Resource) ([]models.TimerRow, error) {
	return nil, nil
}

func (f *fakeStore) PurgeExpiredOrConflicting(context.Context, models.Resource, int, time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purges++
	return f.purgeErr
}

func (f *fakeStore) Insert(_ context.Context, resource models.Resource, channel int, kind models.Kind, expiresAt time.Time) (uuid.UUID, error) {
	if f.block != nil {
		close(f.entered)
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts = append(f.inserts, insertCall{resource, channel, kind, expiresAt})
	if f.insertErr != nil {
		return uuid.Nil, f.insertErr
	}
	return uuid.New(), nil
}

func (f *fakeStore) DeleteExpired(context.Context, time.Time) error { return nil }

func (f *fakeStore) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.purges, len(f.inserts)
}

type fixedSet map[string]bool

func (s fixedSet) Contains(resource models.Resource, channel int, kind models.Kind) bool {
	return s[key(resource, channel, kind)]
}

func key(resource models.Resource, channel int, kind models.Kind) string {
	return fmt.Sprintf("%s/%d/%s", resource, channel, kind)
}

func TestRequestTimerInsertsWithDuration(t *testing.T) {
	store := &fakeStore{}
	c := NewCoordinator(store, nil, clockwork.NewFakeClockAt(t0))

	require.NoError(t, c.RequestTimer(context.Background(), models.ResourceJiangshi, "7", models.KindBossDead))

	require.Len(t, store.inserts, 1)
	got := store.inserts[0]
	assert.Equal(t, models.ResourceJiangshi, got.resource)
	assert.Equal(t, 7, got.channel)
	assert.Equal(t, models.KindBossDead, got.kind)
	assert.Equal(t, t0.Add(300*time.Second), got.expiresAt)
	assert.Equal(t, 1, store.purges)
	assert.False(t, c.InFlight())
}

func TestRequestTimerValidation(t *testing.T) {
	store := &fakeStore{}
	c := NewCoordinator(store, nil, clockwork.NewFakeClockAt(t0))
	ctx := context.Background()

	for _, input := range []string{"0", "51", "abc", ""} {
		err := c.RequestTimer(ctx, models.ResourceJiangshi, input, models.KindBossDead)
		assert.True(t, IsValidation(err), input)
	}

	err := c.RequestTimer(ctx, models.ResourceJiangshi, "5", models.Kind("Boss Alive"))
	assert.ErrorIs(t, err, ErrUnknownKind)

	err = c.RequestTimer(ctx, models.Resource("Dragon"), "5", models.KindBossDead)
	assert.ErrorIs(t, err, ErrUnknownResource)

	purges, inserts := store.calls()
	assert.Zero(t, purges)
	assert.Zero(t, inserts)
	assert.False(t, c.InFlight())
}

func TestRequestTimerSingleFlight(t *testing.T) {
	store := &fakeStore{block: make(chan struct{}), entered: make(chan struct{})}
	c := NewCoordinator(store, nil, clockwork.NewFakeClockAt(t0))
	ctx := context.Background()

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- c.RequestTimer(ctx, models.ResourceJiangshi, "7", models.KindBossDead)
	}()
	<-store.entered
	assert.True(t, c.InFlight())

	err := c.RequestTimer(ctx, models.ResourceJiangshi, "8", models.KindBossDead)
	assert.ErrorIs(t, err, ErrBusy)

	close(store.block)
	require.NoError(t, <-firstDone)
	assert.False(t, c.InFlight())

	_, inserts := store.calls()
	assert.Equal(t, 1, inserts)
}

func TestRequestTimerDuplicateIsNoop(t *testing.T) {
	store := &fakeStore{}
	active := fixedSet{key(models.ResourceJiangshi, 7, models.KindBossDead): true}
	c := NewCoordinator(store, active, clockwork.NewFakeClockAt(t0))

	err := c.RequestTimer(context.Background(), models.ResourceJiangshi, "7", models.KindBossDead)
	assert.ErrorIs(t, err, ErrDuplicate)

	purges, inserts := store.calls()
	assert.Zero(t, purges)
	assert.Zero(t, inserts)

	// Another kind on the same channel is not a duplicate.
	require.NoError(t, c.RequestTimer(context.Background(), models.ResourceJiangshi, "7", models.KindVariantSpawning))
}

func TestRequestTimerPurgeFailureStillInserts(t *testing.T) {
	store := &fakeStore{purgeErr: errors.New("connection reset")}
	c := NewCoordinator(store, nil, clockwork.NewFakeClockAt(t0))

	require.NoError(t, c.RequestTimer(context.Background(), models.ResourceJiangshi, "3", models.KindVariantDead))
	_, inserts := store.calls()
	assert.Equal(t, 1, inserts)
}

func TestRequestTimerInsertFailureClearsFlag(t *testing.T) {
	boom := errors.New("boom")
	store := &fakeStore{insertErr: boom}
	c := NewCoordinator(store, nil, clockwork.NewFakeClockAt(t0))

	err := c.RequestTimer(context.Background(), models.ResourceJiangshi, "3", models.KindVariantDead)
	assert.ErrorIs(t, err, boom)
	assert.False(t, c.InFlight())

	store.insertErr = nil
	require.NoError(t, c.RequestTimer(context.Background(), models.ResourceJiangshi, "3", models.KindVariantDead))
}

// A viewer starting a new kind on an occupied channel replaces the old timer
// for everyone following the feed.
func TestChannelSupersession(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(t0)
	store := NewMemoryStore()
	engine := reconcile.NewEngine(models.ResourceJiangshi, nil)

	sub, err := store.Subscribe(ctx, feed.TimersTable)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	c := NewCoordinator(store, engine, clock)
	drain := func() {
		for {
			select {
			case ev := <-sub.Events():
				engine.ApplyChangeEvent(ev, clock.Now())
			default:
				return
			}
		}
	}

	require.NoError(t, c.RequestTimer(ctx, models.ResourceJiangshi, "12", models.KindBossDead))
	drain()
	require.Equal(t, 1, engine.Len())

	clock.Advance(30 * time.Second)
	require.NoError(t, c.RequestTimer(ctx, models.ResourceJiangshi, "12", models.KindVariantSpawning))
	drain()

	v := engine.Tick(clock.Now())
	require.Len(t, v.Timers, 1)
	assert.Equal(t, models.KindVariantSpawning, v.Timers[0].Kind)
	assert.Equal(t, 120, v.Timers[0].RemainingSec)
	assert.Equal(t, 1, store.Len())
}
