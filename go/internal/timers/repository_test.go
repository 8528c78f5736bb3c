package timers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/fieldboss/go/internal/models"
	"github.com/mcdev12/fieldboss/go/internal/timers/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuerier struct {
	rows        []db.Timer
	purgeArgs   []db.DeleteExpiredOrConflictingParams
	insertArgs  []db.InsertTimerParams
	sweptBefore []int64
	err         error
}

func (f *fakeQuerier) ListTimersByBoss(_ context.Context, boss string) ([]db.Timer, error) {
	var out []db.Timer
	for _, r := range f.rows {
		if r.Boss == boss {
			out = append(out, r)
		}
	}
	return out, f.err
}

func (f *fakeQuerier) InsertTimer(_ context.Context, arg db.InsertTimerParams) (uuid.UUID, error) {
	f.insertArgs = append(f.insertArgs, arg)
	return arg.ID, f.err
}

func (f *fakeQuerier) DeleteExpiredOrConflicting(_ context.Context, arg db.DeleteExpiredOrConflictingParams) (int64, error) {
	f.purgeArgs = append(f.purgeArgs, arg)
	return 1, f.err
}

func (f *fakeQuerier) DeleteExpiredTimers(_ context.Context, endTime int64) (int64, error) {
	f.sweptBefore = append(f.sweptBefore, endTime)
	return 0, f.err
}

func TestRepositoryConvertsMillis(t *testing.T) {
	id := uuid.New()
	expiresAt := t0.Add(480 * time.Second)
	q := &fakeQuerier{rows: []db.Timer{{
		ID:      id,
		Boss:    "WuFu",
		Channel: 17,
		Type:    "Variant Dead",
		EndTime: expiresAt.UnixMilli(),
	}}}
	repo := NewRepository(q)
	ctx := context.Background()

	rows, err := repo.FetchActive(ctx, models.ResourceWuFu)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, id, rows[0].ID)
	assert.Equal(t, 17, rows[0].Channel)
	assert.Equal(t, models.KindVariantDead, rows[0].Kind)
	assert.True(t, expiresAt.Equal(rows[0].ExpiresAt))

	newID, err := repo.Insert(ctx, models.ResourceWuFu, 3, models.KindBossDead, expiresAt)
	require.NoError(t, err)
	require.Len(t, q.insertArgs, 1)
	assert.Equal(t, newID, q.insertArgs[0].ID)
	assert.Equal(t, int32(3), q.insertArgs[0].Channel)
	assert.Equal(t, expiresAt.UnixMilli(), q.insertArgs[0].EndTime)

	require.NoError(t, repo.PurgeExpiredOrConflicting(ctx, models.ResourceWuFu, 3, t0))
	assert.Equal(t, db.DeleteExpiredOrConflictingParams{EndTime: t0.UnixMilli(), Boss: "WuFu", Channel: 3}, q.purgeArgs[0])

	require.NoError(t, repo.DeleteExpired(ctx, t0))
	assert.Equal(t, []int64{t0.UnixMilli()}, q.sweptBefore)
}

func TestRepositoryWrapsErrors(t *testing.T) {
	boom := errors.New("boom")
	repo := NewRepository(&fakeQuerier{err: boom})

	_, err := repo.FetchActive(context.Background(), models.ResourceWuFu)
	assert.ErrorIs(t, err, boom)
	_, err = repo.Insert(context.Background(), models.ResourceWuFu, 1, models.KindBossDead, t0)
	assert.ErrorIs(t, err, boom)
}
