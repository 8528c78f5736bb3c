package timers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/fieldboss/go/internal/models"
	"github.com/mcdev12/fieldboss/go/internal/timers/db"
	"github.com/rs/zerolog/log"
)

// Querier defines what the repository needs from the database layer
type Querier interface {
	ListTimersByBoss(ctx context.Context, boss string) ([]db.Timer, error)
	InsertTimer(ctx context.Context, arg db.InsertTimerParams) (uuid.UUID, error)
	DeleteExpiredOrConflicting(ctx context.Context, arg db.DeleteExpiredOrConflictingParams) (int64, error)
	DeleteExpiredTimers(ctx context.Context, endTime int64) (int64, error)
}

// Repository implements Store on Postgres.
type Repository struct {
	queries Querier
}

// NewRepository creates a new timers repository
func NewRepository(querier Querier) *Repository {
	return &Repository{
		queries: querier,
	}
}

var _ Store = (*Repository)(nil)

// FetchActive lists every row for resource.
func (r *Repository) FetchActive(ctx context.Context, resource models.Resource) ([]models.TimerRow, error) {
	rows, err := r.queries.ListTimersByBoss(ctx, string(resource))
	if err != nil {
		return nil, fmt.Errorf("failed to list timers: %w", err)
	}

	out := make([]models.TimerRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, r.dbTimerToModel(row))
	}
	return out, nil
}

// PurgeExpiredOrConflicting deletes expired rows and whatever occupies channel.
func (r *Repository) PurgeExpiredOrConflicting(ctx context.Context, resource models.Resource, channel int, now time.Time) error {
	n, err := r.queries.DeleteExpiredOrConflicting(ctx, db.DeleteExpiredOrConflictingParams{
		EndTime: models.ToMillis(now),
		Boss:    string(resource),
		Channel: int32(channel),
	})
	if err != nil {
		return fmt.Errorf("failed to purge timers: %w", err)
	}

	log.Debug().
		Str("resource", string(resource)).
		Int("channel", channel).
		Int64("deleted", n).
		Msg("purged expired or conflicting timers")
	return nil
}

// Insert persists a new timer row.
func (r *Repository) Insert(ctx context.Context, resource models.Resource, channel int, kind models.Kind, expiresAt time.Time) (uuid.UUID, error) {
	id, err := r.queries.InsertTimer(ctx, db.InsertTimerParams{
		ID:      uuid.New(),
		Boss:    string(resource),
		Channel: int32(channel),
		Type:    string(kind),
		EndTime: models.ToMillis(expiresAt),
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert timer: %w", err)
	}
	return id, nil
}

// DeleteExpired removes expired rows of every resource.
func (r *Repository) DeleteExpired(ctx context.Context, now time.Time) error {
	n, err := r.queries.DeleteExpiredTimers(ctx, models.ToMillis(now))
	if err != nil {
		return fmt.Errorf("failed to delete expired timers: %w", err)
	}
	if n > 0 {
		log.Debug().Int64("deleted", n).Msg("swept expired timers")
	}
	return nil
}

// dbTimerToModel converts a database timer to domain model
func (r *Repository) dbTimerToModel(row db.Timer) models.TimerRow {
	return models.TimerRow{
		ID:        row.ID,
		Resource:  models.Resource(row.Boss),
		Channel:   int(row.Channel),
		Kind:      models.Kind(row.Type),
		ExpiresAt: models.FromMillis(row.EndTime),
	}
}
