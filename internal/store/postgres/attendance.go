package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/store"
)

const attendanceColumns = `id, employee_id, timestamp, exit_time, confidence,
	is_late, is_early_exit, late_message, late_hours, late_minutes, late_seconds,
	early_exit_message, created_at`

// GetForDay implements store.AttendanceStore.
func (r *Repository) GetForDay(
	ctx context.Context, employeeID int64, dayStart, dayEnd time.Time,
) (*store.AttendanceRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM attendance_records
		WHERE employee_id = $1 AND timestamp >= $2 AND timestamp < $3
		ORDER BY timestamp
		LIMIT 1
	`, attendanceColumns)

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, employeeID, dayStart, dayEnd))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get attendance for employee %d: %w", employeeID, err)
	}
	return rec, nil
}

// CreateRecord implements store.AttendanceStore.
func (r *Repository) CreateRecord(ctx context.Context, rec *store.AttendanceRecord) (*store.AttendanceRecord, error) {
	created := *rec
	err := r.pool.QueryRow(ctx, `
		INSERT INTO attendance_records
			(employee_id, timestamp, confidence, is_late, late_message,
			 late_hours, late_minutes, late_seconds)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`,
		rec.EmployeeID,
		rec.Timestamp,
		rec.Confidence,
		rec.IsLate,
		rec.LateMessage,
		rec.LateBy.Hours,
		rec.LateBy.Minutes,
		rec.LateBy.Seconds,
	).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert attendance record: %w", err)
	}
	return &created, nil
}

// SetExit implements store.AttendanceStore. The exit is written only if the
// record is still open so a replayed close cannot move the exit time.
func (r *Repository) SetExit(ctx context.Context, id int64, exitTime time.Time, isEarly bool, earlyMsg string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE attendance_records
		SET exit_time = $2, is_early_exit = $3, early_exit_message = $4
		WHERE id = $1 AND exit_time IS NULL
	`, id, exitTime, isEarly, earlyMsg)
	if err != nil {
		return fmt.Errorf("set exit on record %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set exit on record %d: %w", id, err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// UpdateConfidence implements store.AttendanceStore. The stored value only
// ever goes up.
func (r *Repository) UpdateConfidence(ctx context.Context, id int64, confidence float64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE attendance_records
		SET confidence = GREATEST(confidence, $2)
		WHERE id = $1
	`, id, confidence)
	if err != nil {
		return fmt.Errorf("update confidence on record %d: %w", id, err)
	}
	return nil
}

// ListRange implements store.AttendanceStore.
func (r *Repository) ListRange(ctx context.Context, from, to time.Time) ([]store.AttendanceRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM attendance_records
		WHERE timestamp >= $1 AND timestamp < $2
		ORDER BY timestamp
	`, attendanceColumns)

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("query attendance range: %w", err)
	}
	defer rows.Close()

	var records []store.AttendanceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attendance record: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance records: %w", err)
	}
	return records, nil
}

// DeleteRecord implements store.AttendanceStore.
func (r *Repository) DeleteRecord(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, "DELETE FROM attendance_records WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete attendance record %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete attendance record %d: %w", id, err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// CreateEarlyExitReason implements store.AttendanceStore.
func (r *Repository) CreateEarlyExitReason(ctx context.Context, reason *store.EarlyExitReason) (*store.EarlyExitReason, error) {
	created := *reason
	err := r.pool.QueryRow(ctx, `
		INSERT INTO early_exit_reasons (attendance_id, reason)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, reason.AttendanceID, reason.Reason).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert early exit reason: %w", err)
	}
	return &created, nil
}

// scanRecord scans a single attendance row.
func scanRecord(scanner interface{ Scan(...any) error }) (*store.AttendanceRecord, error) {
	var rec store.AttendanceRecord
	var exitTime sql.NullTime

	err := scanner.Scan(
		&rec.ID,
		&rec.EmployeeID,
		&rec.Timestamp,
		&exitTime,
		&rec.Confidence,
		&rec.IsLate,
		&rec.IsEarlyExit,
		&rec.LateMessage,
		&rec.LateBy.Hours,
		&rec.LateBy.Minutes,
		&rec.LateBy.Seconds,
		&rec.EarlyExitMessage,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if exitTime.Valid {
		t := exitTime.Time
		rec.ExitTime = &t
	}
	return &rec, nil
}
