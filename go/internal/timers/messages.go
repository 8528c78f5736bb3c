package timers

import (
	"github.com/google/uuid"
	"github.com/mcdev12/fieldboss/go/internal/models"
)

const (
	// TimerStoreName is the fully-qualified name of the store RPC service.
	TimerStoreName = "fieldboss.timers.v1.TimerStore"

	FetchActiveProcedure               = "/" + TimerStoreName + "/FetchActive"
	PurgeExpiredOrConflictingProcedure = "/" + TimerStoreName + "/PurgeExpiredOrConflicting"
	InsertProcedure                    = "/" + TimerStoreName + "/Insert"
	DeleteExpiredProcedure             = "/" + TimerStoreName + "/DeleteExpired"
)

type FetchActiveRequest struct {
	Resource models.Resource `json:"resource"`
}

type FetchActiveResponse struct {
	Timers []models.TimerRow `json:"timers"`
}

type PurgeExpiredOrConflictingRequest struct {
	Resource models.Resource `json:"resource"`
	Channel  int             `json:"channel"`
	NowMs    int64           `json:"now_ms"`
}

type PurgeExpiredOrConflictingResponse struct{}

type InsertRequest struct {
	Resource    models.Resource `json:"resource"`
	Channel     int             `json:"channel"`
	Kind        models.Kind     `json:"kind"`
	ExpiresAtMs int64           `json:"expires_at_ms"`
}

type InsertResponse struct {
	ID uuid.UUID `json:"id"`
}

type DeleteExpiredRequest struct {
	NowMs int64 `json:"now_ms"`
}

type DeleteExpiredResponse struct{}
