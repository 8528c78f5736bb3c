package db

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Timer struct {
	ID        uuid.UUID          `json:"id"`
	Boss      string             `json:"boss"`
	Channel   int32              `json:"channel"`
	Type      string             `json:"type"`
	EndTime   int64              `json:"end_time"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}
