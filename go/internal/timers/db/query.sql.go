// Queries mirror query.sql, in the shape sqlc emits for sql_package pgx/v5.

package db

import (
	"context"

	"github.com/google/uuid"
)

const deleteExpiredOrConflicting = `-- name: DeleteExpiredOrConflicting :execrows
DELETE FROM timers
WHERE end_time < $1
   OR (boss = $2 AND channel = $3)
`

type DeleteExpiredOrConflictingParams struct {
	EndTime int64  `json:"end_time"`
	Boss    string `json:"boss"`
	Channel int32  `json:"channel"`
}

func (q *Queries) DeleteExpiredOrConflicting(ctx context.Context, arg DeleteExpiredOrConflictingParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteExpiredOrConflicting, arg.EndTime, arg.Boss, arg.Channel)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const deleteExpiredTimers = `-- name: DeleteExpiredTimers :execrows
DELETE FROM timers
WHERE end_time < $1
`

func (q *Queries) DeleteExpiredTimers(ctx context.Context, endTime int64) (int64, error) {
	result, err := q.db.Exec(ctx, deleteExpiredTimers, endTime)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const insertTimer = `-- name: InsertTimer :one
INSERT INTO timers (id, boss, channel, type, end_time)
VALUES ($1, $2, $3, $4, $5)
RETURNING id
`

type InsertTimerParams struct {
	ID      uuid.UUID `json:"id"`
	Boss    string    `json:"boss"`
	Channel int32     `json:"channel"`
	Type    string    `json:"type"`
	EndTime int64     `json:"end_time"`
}

func (q *Queries) InsertTimer(ctx context.Context, arg InsertTimerParams) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, insertTimer,
		arg.ID,
		arg.Boss,
		arg.Channel,
		arg.Type,
		arg.EndTime,
	)
	var id uuid.UUID
	err := row.Scan(&id)
	return id, err
}

const listTimersByBoss = `-- name: ListTimersByBoss :many
SELECT id, boss, channel, type, end_time, created_at
FROM timers
WHERE boss = $1
`

func (q *Queries) ListTimersByBoss(ctx context.Context, boss string) ([]Timer, error) {
	rows, err := q.db.Query(ctx, listTimersByBoss, boss)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Timer
	for rows.Next() {
		var i Timer
		if err := rows.Scan(
			&i.ID,
			&i.Boss,
			&i.Channel,
			&i.Type,
			&i.EndTime,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
