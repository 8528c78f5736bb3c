package feed

import (
	"context"

	"github.com/mcdev12/fieldboss/go/internal/models"
)

// TimersTable is the only collection the feed carries.
const TimersTable = "timers"

// Feed delivers change notifications for a table.
//
// Delivery is at-least-once and roughly in commit order; consumers must
// tolerate duplicates.
type Feed interface {
	Subscribe(ctx context.Context, table string) (Subscription, error)
}

// Subscription is a live stream of change events. The events channel is
// closed after Unsubscribe or when the underlying transport gives up.
type Subscription interface {
	Events() <-chan models.ChangeEvent
	Unsubscribe() error
}
