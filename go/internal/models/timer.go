package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// IdleLabel is the summary shown when no timer is active.
const IdleLabel = "Field Boss Timer"

// AlertThresholdSec is the remaining time at or below which a timer alerts.
const AlertThresholdSec = 10

// TimerRow is a timer record as persisted in the store.
type TimerRow struct {
	ID        uuid.UUID `json:"id"`
	Resource  Resource  `json:"boss"`
	Channel   int       `json:"channel"`
	Kind      Kind      `json:"type"`
	ExpiresAt time.Time `json:"end_time"`
}

// ChangeOp is the store mutation a change event describes.
type ChangeOp string

const (
	ChangeOpInsert ChangeOp = "INSERT"
	ChangeOpUpdate ChangeOp = "UPDATE"
	ChangeOpDelete ChangeOp = "DELETE"
)

// ChangeEvent is a notification from the change feed.
type ChangeEvent struct {
	Op        ChangeOp  `json:"op"`
	RowID     uuid.UUID `json:"row_id"`
	Resource  Resource  `json:"resource"`
	Channel   int       `json:"channel"`
	Kind      Kind      `json:"kind"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsUpsert reports whether the event carries a new row.
func (e ChangeEvent) IsUpsert() bool {
	return e.Op == ChangeOpInsert || e.Op == ChangeOpUpdate || e.Op == ""
}

// Row returns the timer row carried by an upsert event.
func (e ChangeEvent) Row() TimerRow {
	return TimerRow{
		ID:        e.RowID,
		Resource:  e.Resource,
		Channel:   e.Channel,
		Kind:      e.Kind,
		ExpiresAt: e.ExpiresAt,
	}
}

// EventFromRow builds the change event for a mutation of row.
func EventFromRow(op ChangeOp, row TimerRow) ChangeEvent {
	return ChangeEvent{
		Op:        op,
		RowID:     row.ID,
		Resource:  row.Resource,
		Channel:   row.Channel,
		Kind:      row.Kind,
		ExpiresAt: row.ExpiresAt,
	}
}

// Timer is a row being displayed, with its derived remaining time.
type Timer struct {
	TimerRow
	RemainingSec int `json:"remaining_sec"`
}

// RemainingSeconds returns max(0, ceil((expiresAt-now) / 1s)).
func RemainingSeconds(expiresAt, now time.Time) int {
	d := expiresAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

// FormatRemaining renders seconds as M:SS.
func FormatRemaining(sec int) string {
	if sec < 0 {
		sec = 0
	}
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}

// FromMillis converts an epoch-millisecond timestamp into a time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// ToMillis converts t into epoch milliseconds.
func ToMillis(t time.Time) int64 {
	return t.UnixMilli()
}
