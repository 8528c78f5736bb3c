package reconcile

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/fieldboss/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

type recordingPlayer struct {
	starts int
	stops  int
}

func (p *recordingPlayer) Start() { p.starts++ }
func (p *recordingPlayer) Stop()  { p.stops++ }

func row(resource models.Resource, channel int, kind models.Kind, expiresAt time.Time) models.TimerRow {
	return models.TimerRow{
		ID:        uuid.New(),
		Resource:  resource,
		Channel:   channel,
		Kind:      kind,
		ExpiresAt: expiresAt,
	}
}

func insertEvent(r models.TimerRow) models.ChangeEvent {
	return models.EventFromRow(models.ChangeOpInsert, r)
}

func channels(v View) []int {
	out := make([]int, len(v.Timers))
	for i, t := range v.Timers {
		out[i] = t.Channel
	}
	return out
}

func TestSeedFiltersExpiredAndForeignRows(t *testing.T) {
	e := NewEngine(models.ResourceJiangshi, nil)
	e.Seed(models.ResourceJiangshi, []models.TimerRow{
		row(models.ResourceJiangshi, 3, models.KindBossDead, t0.Add(200*time.Second)),
		row(models.ResourceJiangshi, 4, models.KindBossDead, t0.Add(-time.Second)),
		row(models.ResourcePinchy, 5, models.KindBossDead, t0.Add(100*time.Second)),
		row(models.ResourceJiangshi, 1, models.KindVariantSpawning, t0.Add(50*time.Second)),
	}, t0)

	v := e.View()
	assert.Equal(t, []int{1, 3}, channels(v))
	assert.Equal(t, "Jiangshi - 1 - 0:50 left", v.Summary)
}

func TestApplyChangeEventIsIdempotent(t *testing.T) {
	e := NewEngine(models.ResourceJiangshi, nil)
	ev := insertEvent(row(models.ResourceJiangshi, 7, models.KindBossDead, t0.Add(300*time.Second)))

	assert.True(t, e.ApplyChangeEvent(ev, t0))
	first := e.View()
	e.ApplyChangeEvent(ev, t0)
	assert.Equal(t, first, e.View())
	assert.Equal(t, 1, e.Len())
}

func TestApplyChangeEventReplacesChannel(t *testing.T) {
	e := NewEngine(models.ResourceJiangshi, nil)
	e.ApplyChangeEvent(insertEvent(row(models.ResourceJiangshi, 7, models.KindBossDead, t0.Add(300*time.Second))), t0)
	e.ApplyChangeEvent(insertEvent(row(models.ResourceJiangshi, 8, models.KindBossDead, t0.Add(100*time.Second))), t0)

	replacement := row(models.ResourceJiangshi, 7, models.KindVariantSpawning, t0.Add(120*time.Second))
	e.ApplyChangeEvent(insertEvent(replacement), t0)

	v := e.View()
	require.Len(t, v.Timers, 2)
	assert.Equal(t, []int{8, 7}, channels(v))
	assert.Equal(t, replacement.ID, v.Timers[1].ID)
	assert.False(t, v.Contains(models.ResourceJiangshi, 7, models.KindBossDead))
	assert.True(t, v.Contains(models.ResourceJiangshi, 7, models.KindVariantSpawning))
}

func TestApplyChangeEventIgnoresOtherResourceDeleteAndExpired(t *testing.T) {
	e := NewEngine(models.ResourceJiangshi, nil)
	live := row(models.ResourceJiangshi, 7, models.KindBossDead, t0.Add(300*time.Second))
	e.ApplyChangeEvent(insertEvent(live), t0)

	assert.False(t, e.ApplyChangeEvent(insertEvent(row(models.ResourceWuFu, 9, models.KindBossDead, t0.Add(300*time.Second))), t0))
	assert.False(t, e.ApplyChangeEvent(models.EventFromRow(models.ChangeOpDelete, live), t0))
	assert.False(t, e.ApplyChangeEvent(insertEvent(row(models.ResourceJiangshi, 7, models.KindVariantDead, t0.Add(-time.Second))), t0))

	v := e.View()
	require.Len(t, v.Timers, 1)
	assert.Equal(t, live.ID, v.Timers[0].ID)
}

func TestSortedByExpiryThenArrival(t *testing.T) {
	e := NewEngine(models.ResourceJiangshi, nil)
	same := t0.Add(120 * time.Second)
	e.ApplyChangeEvent(insertEvent(row(models.ResourceJiangshi, 20, models.KindBossDead, t0.Add(300*time.Second))), t0)
	e.ApplyChangeEvent(insertEvent(row(models.ResourceJiangshi, 11, models.KindVariantSpawning, same)), t0)
	e.ApplyChangeEvent(insertEvent(row(models.ResourceJiangshi, 2, models.KindVariantSpawning, same)), t0)

	for i := 0; i < 5; i++ {
		v := e.Tick(t0.Add(time.Duration(i) * time.Second))
		assert.Equal(t, []int{11, 2, 20}, channels(v))
	}
}

func TestTickDecaysAndDropsExpired(t *testing.T) {
	e := NewEngine(models.ResourceJiangshi, nil)
	e.ApplyChangeEvent(insertEvent(row(models.ResourceJiangshi, 7, models.KindBossDead, t0.Add(300*time.Second))), t0)

	v := e.Tick(t0.Add(299 * time.Second))
	require.Len(t, v.Timers, 1)
	assert.Equal(t, 1, v.Timers[0].RemainingSec)
	assert.Equal(t, "Jiangshi - 7 - 0:01 left", v.Summary)

	v = e.Tick(t0.Add(300 * time.Second))
	assert.Empty(t, v.Timers)
	assert.Equal(t, models.IdleLabel, v.Summary)
}

func TestAlertIsEdgeTriggered(t *testing.T) {
	player := &recordingPlayer{}
	e := NewEngine(models.ResourceJiangshi, player)
	e.SetAudioEnabled(true)
	e.ApplyChangeEvent(insertEvent(row(models.ResourceJiangshi, 7, models.KindVariantSpawning, t0.Add(120*time.Second))), t0)

	e.Tick(t0.Add(100 * time.Second))
	assert.Equal(t, 0, player.starts)

	for s := 110; s < 120; s++ {
		v := e.Tick(t0.Add(time.Duration(s) * time.Second))
		assert.True(t, v.Alerting)
	}
	assert.Equal(t, 1, player.starts)
	assert.Equal(t, 0, player.stops)

	v := e.Tick(t0.Add(120 * time.Second))
	assert.False(t, v.Alerting)
	assert.Equal(t, 1, player.stops)

	e.Tick(t0.Add(121 * time.Second))
	assert.Equal(t, 1, player.stops)
}

func TestAlertRequiresAudioEnabled(t *testing.T) {
	player := &recordingPlayer{}
	e := NewEngine(models.ResourceJiangshi, player)
	e.ApplyChangeEvent(insertEvent(row(models.ResourceJiangshi, 7, models.KindBossDead, t0.Add(5*time.Second))), t0)

	v := e.Tick(t0)
	assert.False(t, v.Alerting)
	assert.Equal(t, 0, player.starts)

	e.SetAudioEnabled(true)
	v = e.Tick(t0.Add(time.Second))
	assert.True(t, v.Alerting)

	e.SetAudioEnabled(false)
	v = e.Tick(t0.Add(2 * time.Second))
	assert.False(t, v.Alerting)
	assert.Equal(t, 1, player.starts)
	assert.Equal(t, 1, player.stops)
}

func TestContainsIsScopedToResource(t *testing.T) {
	e := NewEngine(models.ResourceJiangshi, nil)
	e.ApplyChangeEvent(insertEvent(row(models.ResourceJiangshi, 7, models.KindBossDead, t0.Add(300*time.Second))), t0)

	assert.True(t, e.Contains(models.ResourceJiangshi, 7, models.KindBossDead))
	assert.False(t, e.Contains(models.ResourceJiangshi, 7, models.KindVariantDead))
	assert.False(t, e.Contains(models.ResourcePinchy, 7, models.KindBossDead))

	e.Reset(models.ResourcePinchy)
	assert.Zero(t, e.Len())
	assert.Equal(t, models.IdleLabel, e.View().Summary)
}
