package timers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/fieldboss/go/internal/models"
)

// Store is the gateway to the shared timer table.
type Store interface {
	// FetchActive returns every row for resource, including expired ones.
	FetchActive(ctx context.Context, resource models.Resource) ([]models.TimerRow, error)
	// PurgeExpiredOrConflicting deletes rows expired before now, and rows on
	// channel for resource regardless of kind or expiry.
	PurgeExpiredOrConflicting(ctx context.Context, resource models.Resource, channel int, now time.Time) error
	// Insert persists a new row and returns its id.
	Insert(ctx context.Context, resource models.Resource, channel int, kind models.Kind, expiresAt time.Time) (uuid.UUID, error)
	// DeleteExpired deletes rows of any resource expired before now.
	DeleteExpired(ctx context.Context, now time.Time) error
}
