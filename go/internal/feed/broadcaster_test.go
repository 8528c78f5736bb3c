package feed

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/fieldboss/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(channel int) models.ChangeEvent {
	return models.ChangeEvent{
		Op:        models.ChangeOpInsert,
		RowID:     uuid.New(),
		Resource:  models.ResourceJiangshi,
		Channel:   channel,
		Kind:      models.KindBossDead,
		ExpiresAt: t0.Add(300 * time.Second),
	}
}

func TestBroadcasterFansOut(t *testing.T) {
	b := NewBroadcaster()
	ctx := context.Background()

	a, err := b.Subscribe(ctx, TimersTable)
	require.NoError(t, err)
	c, err := b.Subscribe(ctx, TimersTable)
	require.NoError(t, err)
	assert.Equal(t, 2, b.Subscribers())

	b.Publish(event(1))
	assert.Equal(t, 1, (<-a.Events()).Channel)
	assert.Equal(t, 1, (<-c.Events()).Channel)

	require.NoError(t, a.Unsubscribe())
	require.NoError(t, a.Unsubscribe())
	assert.Equal(t, 1, b.Subscribers())

	_, open := <-a.Events()
	assert.False(t, open)
}

func TestBroadcasterRejectsUnknownTable(t *testing.T) {
	_, err := NewBroadcaster().Subscribe(context.Background(), "players")
	assert.Error(t, err)
}

func TestBroadcasterUnsubscribesOnContextDone(t *testing.T) {
	b := NewBroadcaster()
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := b.Subscribe(ctx, TimersTable)
	require.NoError(t, err)
	cancel()

	require.Eventually(t, func() bool { return b.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
	_, open := <-sub.Events()
	assert.False(t, open)
}

func TestBroadcasterDropsForSlowSubscriber(t *testing.T) {
	b := NewBroadcaster()
	sub, err := b.Subscribe(context.Background(), TimersTable)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	for i := 0; i < subscriberBuffer+10; i++ {
		b.Publish(event(1 + i%50))
	}
	assert.Len(t, sub.Events(), subscriberBuffer)
}
