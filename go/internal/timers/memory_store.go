package timers

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/fieldboss/go/internal/feed"
	"github.com/mcdev12/fieldboss/go/internal/models"
)

// MemoryStore is an in-process Store that also serves as the change feed for
// its own mutations. It backs tests and single-machine runs.
type MemoryStore struct {
	*feed.Broadcaster

	mu   sync.Mutex
	rows map[uuid.UUID]models.TimerRow
	seq  map[uuid.UUID]uint64
	next uint64
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Broadcaster: feed.NewBroadcaster(),
		rows:        make(map[uuid.UUID]models.TimerRow),
		seq:         make(map[uuid.UUID]uint64),
	}
}

var (
	_ Store     = (*MemoryStore)(nil)
	_ feed.Feed = (*MemoryStore)(nil)
)

// FetchActive returns the rows for resource in insertion order.
func (m *MemoryStore) FetchActive(ctx context.Context, resource models.Resource) ([]models.TimerRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.TimerRow
	for _, row := range m.rows {
		if row.Resource == resource {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return m.seq[out[i].ID] < m.seq[out[j].ID] })
	return out, nil
}

// PurgeExpiredOrConflicting deletes expired rows and rows on resource's channel.
func (m *MemoryStore) PurgeExpiredOrConflicting(ctx context.Context, resource models.Resource, channel int, now time.Time) error {
	return m.deleteWhere(ctx, func(row models.TimerRow) bool {
		return row.ExpiresAt.Before(now) || (row.Resource == resource && row.Channel == channel)
	})
}

// Insert adds a row and publishes an INSERT event.
func (m *MemoryStore) Insert(ctx context.Context, resource models.Resource, channel int, kind models.Kind, expiresAt time.Time) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}
	row := models.TimerRow{
		ID:        uuid.New(),
		Resource:  resource,
		Channel:   channel,
		Kind:      kind,
		ExpiresAt: expiresAt.Truncate(time.Millisecond),
	}

	m.mu.Lock()
	m.next++
	m.rows[row.ID] = row
	m.seq[row.ID] = m.next
	m.mu.Unlock()

	m.Publish(models.EventFromRow(models.ChangeOpInsert, row))
	return row.ID, nil
}

// DeleteExpired deletes rows of every resource expired before now.
func (m *MemoryStore) DeleteExpired(ctx context.Context, now time.Time) error {
	return m.deleteWhere(ctx, func(row models.TimerRow) bool {
		return row.ExpiresAt.Before(now)
	})
}

// Len returns the number of stored rows.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *MemoryStore) deleteWhere(ctx context.Context, match func(models.TimerRow) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	var deleted []models.TimerRow
	for id, row := range m.rows {
		if match(row) {
			deleted = append(deleted, row)
			delete(m.rows, id)
			delete(m.seq, id)
		}
	}
	m.mu.Unlock()

	for _, row := range deleted {
		m.Publish(models.EventFromRow(models.ChangeOpDelete, row))
	}
	return nil
}
