package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ARedaUni/teloshousemeet/internal/db"
)

// Setting is a single named configuration value stored as JSON
type Setting struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Well-known setting keys. The summary and transcript folders are optional;
// when unset, documents land next to the audio in the recordings folder.
const (
	SettingRecordingsFolder = "recordings_folder_id"
	SettingSummaryFolder    = "summary_folder_id"
	SettingTranscriptFolder = "transcript_folder_id"
	SettingCalendarID       = "calendar_id"
	SettingAutoRename       = "auto_rename"
)

// SettingsRepository handles persistence of user-tunable settings
type SettingsRepository struct {
	pool DBTX
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(pool DBTX) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// Get retrieves a setting by key
func (r *SettingsRepository) Get(ctx context.Context, key string) (*Setting, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT key, value, updated_at FROM settings WHERE key = $1`, key)

	var s Setting
	if err := row.Scan(&s.Key, &s.Value, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("get setting %q: %w", key, err)
	}

	return &s, nil
}

// Set creates or replaces a setting
func (r *SettingsRepository) Set(ctx context.Context, key string, value json.RawMessage) (*Setting, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
		RETURNING key, value, updated_at`,
		key, value)

	var s Setting
	if err := row.Scan(&s.Key, &s.Value, &s.UpdatedAt); err != nil {
		return nil, fmt.Errorf("set setting %q: %w", key, err)
	}

	return &s, nil
}

// List returns every stored setting ordered by key
func (r *SettingsRepository) List(ctx context.Context) ([]Setting, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT key, value, updated_at FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var settings []Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings = append(settings, s)
	}

	return settings, rows.Err()
}

// Delete removes a setting by key
func (r *SettingsRepository) Delete(ctx context.Context, key string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM settings WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("delete setting %q: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}
