package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/mcdev12/fieldboss/go/internal/models"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLite keeps preferences in a local key/value table.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the preferences database at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open preferences database: %w", err)
	}

	// SQLite limitation
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping preferences database: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create preferences table: %w", err)
	}
	return s, nil
}

func (s *SQLite) init() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS preferences (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)
	`)
	return err
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLite)(nil)

func (s *SQLite) get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM preferences WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read preference %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLite) set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("write preference %s: %w", key, err)
	}
	return nil
}

// SelectedResource falls back to the default when the stored name is unknown.
func (s *SQLite) SelectedResource(ctx context.Context) (models.Resource, error) {
	value, ok, err := s.get(ctx, KeySelectedResource)
	if err != nil || !ok {
		return models.DefaultResource, err
	}
	r, err := models.ParseResource(value)
	if err != nil {
		log.Warn().Str("value", value).Msg("ignoring stored resource")
		return models.DefaultResource, nil
	}
	return r, nil
}

func (s *SQLite) SetSelectedResource(ctx context.Context, r models.Resource) error {
	if _, err := models.ParseResource(string(r)); err != nil {
		return err
	}
	return s.set(ctx, KeySelectedResource, string(r))
}

func (s *SQLite) AudioEnabled(ctx context.Context) (bool, error) {
	value, ok, err := s.get(ctx, KeyAudioEnabled)
	if err != nil || !ok {
		return false, err
	}
	enabled, err := strconv.ParseBool(value)
	if err != nil {
		return false, nil
	}
	return enabled, nil
}

func (s *SQLite) SetAudioEnabled(ctx context.Context, enabled bool) error {
	return s.set(ctx, KeyAudioEnabled, strconv.FormatBool(enabled))
}

func (s *SQLite) Volume(ctx context.Context) (float64, error) {
	value, ok, err := s.get(ctx, KeyVolume)
	if err != nil || !ok {
		return DefaultVolume, err
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return DefaultVolume, nil
	}
	return ClampVolume(v), nil
}

func (s *SQLite) SetVolume(ctx context.Context, v float64) error {
	return s.set(ctx, KeyVolume, strconv.FormatFloat(ClampVolume(v), 'f', -1, 64))
}
