package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/store"
)

// GetSettings implements store.SettingsStore. The settings table holds a
// single row; ErrNotFound means nothing has been configured yet and the
// caller should fall back to its built-in defaults.
func (r *Repository) GetSettings(ctx context.Context) (*store.Settings, error) {
	var s store.Settings
	err := r.pool.QueryRow(ctx, `
		SELECT timezone, login_time, logout_time
		FROM settings
		WHERE id = 1
	`).Scan(&s.Timezone, &s.OfficeTiming.LoginTime, &s.OfficeTiming.LogoutTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return &s, nil
}

// SaveSettings upserts the single settings row (administrative).
func (r *Repository) SaveSettings(ctx context.Context, s *store.Settings) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO settings (id, timezone, login_time, logout_time)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			timezone = EXCLUDED.timezone,
			login_time = EXCLUDED.login_time,
			logout_time = EXCLUDED.logout_time,
			updated_at = NOW()
	`, s.Timezone, s.OfficeTiming.LoginTime, s.OfficeTiming.LogoutTime)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
