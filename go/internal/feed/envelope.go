package feed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/fieldboss/go/internal/models"
)

// Envelope is the wire form of a change event on the bus and on websockets.
type Envelope struct {
	EventID   string             `json:"eventId"`
	EventType models.ChangeOp    `json:"eventType"`
	Resource  models.Resource    `json:"resource"`
	Timestamp time.Time          `json:"timestamp"`
	Payload   models.ChangeEvent `json:"payload"`
}

// EventID identifies one mutation of one row; redeliveries share it.
func EventID(ev models.ChangeEvent) string {
	return fmt.Sprintf("%s:%s:%d", ev.RowID, ev.Op, models.ToMillis(ev.ExpiresAt))
}

// EncodeEnvelope wraps ev for transport.
func EncodeEnvelope(ev models.ChangeEvent, at time.Time) ([]byte, error) {
	data, err := json.Marshal(Envelope{
		EventID:   EventID(ev),
		EventType: ev.Op,
		Resource:  ev.Resource,
		Timestamp: at,
		Payload:   ev,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return data, nil
}

// DecodeEnvelope unwraps a transported change event.
func DecodeEnvelope(data []byte) (models.ChangeEvent, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return models.ChangeEvent{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Payload.RowID == uuid.Nil {
		return models.ChangeEvent{}, fmt.Errorf("envelope %q has no row id", env.EventID)
	}
	return env.Payload, nil
}

// notification is the JSON the timers_notify trigger sends with pg_notify.
type notification struct {
	Op  models.ChangeOp `json:"op"`
	Row *struct {
		ID      uuid.UUID `json:"id"`
		Boss    string    `json:"boss"`
		Channel int       `json:"channel"`
		Type    string    `json:"type"`
		EndTime int64     `json:"end_time"`
	} `json:"row"`
}

// DecodeNotification parses a pg_notify payload from the timers trigger.
func DecodeNotification(payload string) (models.ChangeEvent, error) {
	var n notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return models.ChangeEvent{}, fmt.Errorf("unmarshal notification: %w", err)
	}
	if n.Row == nil {
		return models.ChangeEvent{}, fmt.Errorf("notification %s has no row", n.Op)
	}
	switch n.Op {
	case models.ChangeOpInsert, models.ChangeOpUpdate, models.ChangeOpDelete:
	default:
		return models.ChangeEvent{}, fmt.Errorf("unknown notification op %q", n.Op)
	}
	return models.ChangeEvent{
		Op:        n.Op,
		RowID:     n.Row.ID,
		Resource:  models.Resource(n.Row.Boss),
		Channel:   n.Row.Channel,
		Kind:      models.Kind(n.Row.Type),
		ExpiresAt: models.FromMillis(n.Row.EndTime),
	}, nil
}
