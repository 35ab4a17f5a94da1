package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// EmployeeStore handles employee records. Employees are created and
// removed by administrative operations; the matching pipeline only reads.
type EmployeeStore interface {
	// ListActive returns all active employees with their embeddings.
	ListActive(ctx context.Context) ([]Employee, error)
	// Get retrieves an employee by internal ID.
	Get(ctx context.Context, id int64) (*Employee, error)
	// GetByEmployeeID retrieves an employee by external identity.
	GetByEmployeeID(ctx context.Context, employeeID string) (*Employee, error)
	// Create stores a new employee with its embedding.
	Create(ctx context.Context, emp *Employee) (*Employee, error)
	// Delete removes an employee.
	Delete(ctx context.Context, id int64) error
}

// ShiftStore handles shift definitions.
type ShiftStore interface {
	GetShift(ctx context.Context, id int64) (*Shift, error)
	ListShifts(ctx context.Context) ([]Shift, error)
}

// AttendanceStore handles per-day attendance records.
type AttendanceStore interface {
	// GetForDay returns the record for one employee within [dayStart, dayEnd),
	// or ErrNotFound when the day has no record yet.
	GetForDay(ctx context.Context, employeeID int64, dayStart, dayEnd time.Time) (*AttendanceRecord, error)
	// CreateRecord stores a new entry record.
	CreateRecord(ctx context.Context, rec *AttendanceRecord) (*AttendanceRecord, error)
	// SetExit closes a record exactly once with the given exit time.
	SetExit(ctx context.Context, id int64, exitTime time.Time, isEarly bool, earlyMsg string) error
	// UpdateConfidence raises the stored confidence to the given value.
	UpdateConfidence(ctx context.Context, id int64, confidence float64) error
	// ListRange returns records for all employees within [from, to).
	ListRange(ctx context.Context, from, to time.Time) ([]AttendanceRecord, error)
	// DeleteRecord removes one record (administrative).
	DeleteRecord(ctx context.Context, id int64) error
	// CreateEarlyExitReason annotates a record with a free-text reason.
	CreateEarlyExitReason(ctx context.Context, r *EarlyExitReason) (*EarlyExitReason, error)
}

// SettingsStore handles the global timezone and office-timing fallback.
type SettingsStore interface {
	GetSettings(ctx context.Context) (*Settings, error)
}

// Store composes all repositories backed by one database.
type Store interface {
	EmployeeStore
	ShiftStore
	AttendanceStore
	SettingsStore
}
