package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/store"
)

// GetShift implements store.ShiftStore.
func (r *Repository) GetShift(ctx context.Context, id int64) (*store.Shift, error) {
	var shift store.Shift
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, login_time, logout_time, grace_period, created_at
		FROM shifts
		WHERE id = $1
	`, id).Scan(&shift.ID, &shift.Name, &shift.LoginTime, &shift.LogoutTime, &shift.GracePeriod, &shift.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get shift %d: %w", id, err)
	}
	return &shift, nil
}

// ListShifts implements store.ShiftStore.
func (r *Repository) ListShifts(ctx context.Context) ([]store.Shift, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, login_time, logout_time, grace_period, created_at
		FROM shifts
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query shifts: %w", err)
	}
	defer rows.Close()

	var shifts []store.Shift
	for rows.Next() {
		var shift store.Shift
		if err := rows.Scan(
			&shift.ID, &shift.Name, &shift.LoginTime, &shift.LogoutTime,
			&shift.GracePeriod, &shift.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan shift: %w", err)
		}
		shifts = append(shifts, shift)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shifts: %w", err)
	}
	return shifts, nil
}

// CreateShift stores a new shift definition (administrative).
func (r *Repository) CreateShift(ctx context.Context, shift *store.Shift) (*store.Shift, error) {
	created := *shift
	err := r.pool.QueryRow(ctx, `
		INSERT INTO shifts (name, login_time, logout_time, grace_period)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, shift.Name, shift.LoginTime, shift.LogoutTime, shift.GracePeriod).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert shift: %w", err)
	}
	return &created, nil
}
