package climate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Settings is the persisted part of the thermostat: setpoint and mode.
type Settings struct {
	TargetTemperature float64
	Mode              Mode
	UpdatedAt         time.Time
}

// SettingsRepository persists thermostat settings.
type SettingsRepository interface {
	// Load returns the stored settings, or ErrSettingsNotFound.
	Load(ctx context.Context) (Settings, error)

	// Save replaces the stored settings.
	Save(ctx context.Context, s Settings) error
}

// settingsRowID is the id of the single settings row.
const settingsRowID = 1

// SQLiteSettingsRepository implements SettingsRepository using SQLite.
type SQLiteSettingsRepository struct {
	db *sql.DB
}

// NewSQLiteSettingsRepository creates a new SQLite-backed settings repository.
// The thermostat_settings table must already exist (see migrations).
func NewSQLiteSettingsRepository(db *sql.DB) *SQLiteSettingsRepository {
	return &SQLiteSettingsRepository{db: db}
}

// Load retrieves the stored settings.
func (r *SQLiteSettingsRepository) Load(ctx context.Context) (Settings, error) {
	var (
		s         Settings
		mode      string
		updatedAt string
	)

	err := r.db.QueryRowContext(ctx,
		`SELECT target_temperature, mode, updated_at FROM thermostat_settings WHERE id = ?`,
		settingsRowID,
	).Scan(&s.TargetTemperature, &mode, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Settings{}, ErrSettingsNotFound
		}
		return Settings{}, fmt.Errorf("querying thermostat settings: %w", err)
	}

	s.Mode, err = ParseMode(mode)
	if err != nil {
		return Settings{}, fmt.Errorf("stored thermostat settings: %w", err)
	}
	s.TargetTemperature = ClampTarget(s.TargetTemperature)
	s.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt) //nolint:errcheck // Written by Save

	return s, nil
}

// Save upserts the settings row.
func (r *SQLiteSettingsRepository) Save(ctx context.Context, s Settings) error {
	if !s.Mode.Valid() {
		return ErrInvalidMode
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO thermostat_settings (id, target_temperature, mode, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			target_temperature = excluded.target_temperature,
			mode = excluded.mode,
			updated_at = excluded.updated_at`,
		settingsRowID,
		ClampTarget(s.TargetTemperature),
		string(s.Mode),
		s.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving thermostat settings: %w", err)
	}
	return nil
}
