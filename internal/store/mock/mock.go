// Package mock provides in-memory implementations of the store interfaces
// for testing.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/store"
)

// Store is an in-memory store.Store implementation with error injection.
type Store struct {
	mu          sync.RWMutex
	employees   map[int64]store.Employee
	shifts      map[int64]store.Shift
	records     map[int64]store.AttendanceRecord
	reasons     map[int64]store.EarlyExitReason
	settings    store.Settings
	hasSettings bool
	nextID      int64

	// Error injection
	ListActiveError       error
	CreateError           error
	GetForDayError        error
	CreateRecordError     error
	SetExitError          error
	UpdateConfidenceError error
	GetShiftError         error
	GetSettingsError      error
}

// New creates an empty mock store.
func New() *Store {
	return &Store{
		employees: make(map[int64]store.Employee),
		shifts:    make(map[int64]store.Shift),
		records:   make(map[int64]store.AttendanceRecord),
		reasons:   make(map[int64]store.EarlyExitReason),
		nextID:    1,
	}
}

func (s *Store) nextIDLocked() int64 {
	id := s.nextID
	s.nextID++
	return id
}

// AddEmployee seeds an employee and returns its assigned ID.
func (s *Store) AddEmployee(emp store.Employee) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if emp.ID == 0 {
		emp.ID = s.nextIDLocked()
	}
	s.employees[emp.ID] = emp
	return emp.ID
}

// AddShift seeds a shift and returns its assigned ID.
func (s *Store) AddShift(shift store.Shift) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if shift.ID == 0 {
		shift.ID = s.nextIDLocked()
	}
	s.shifts[shift.ID] = shift
	return shift.ID
}

// SetSettings seeds the global settings.
func (s *Store) SetSettings(settings store.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	s.hasSettings = true
}

// ListActive implements store.EmployeeStore.
func (s *Store) ListActive(ctx context.Context) ([]store.Employee, error) {
	if s.ListActiveError != nil {
		return nil, s.ListActiveError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.Employee
	for _, emp := range s.employees {
		if emp.Active {
			out = append(out, emp)
		}
	}
	return out, nil
}

// Get implements store.EmployeeStore.
func (s *Store) Get(ctx context.Context, id int64) (*store.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	emp, ok := s.employees[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &emp, nil
}

// GetByEmployeeID implements store.EmployeeStore.
func (s *Store) GetByEmployeeID(ctx context.Context, employeeID string) (*store.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, emp := range s.employees {
		if emp.EmployeeID == employeeID {
			e := emp
			return &e, nil
		}
	}
	return nil, store.ErrNotFound
}

// Create implements store.EmployeeStore.
func (s *Store) Create(ctx context.Context, emp *store.Employee) (*store.Employee, error) {
	if s.CreateError != nil {
		return nil, s.CreateError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	created := *emp
	created.ID = s.nextIDLocked()
	created.CreatedAt = time.Now()
	s.employees[created.ID] = created
	return &created, nil
}

// Delete implements store.EmployeeStore.
func (s *Store) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.employees[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.employees, id)
	return nil
}

// GetShift implements store.ShiftStore.
func (s *Store) GetShift(ctx context.Context, id int64) (*store.Shift, error) {
	if s.GetShiftError != nil {
		return nil, s.GetShiftError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	shift, ok := s.shifts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &shift, nil
}

// ListShifts implements store.ShiftStore.
func (s *Store) ListShifts(ctx context.Context) ([]store.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.Shift
	for _, shift := range s.shifts {
		out = append(out, shift)
	}
	return out, nil
}

// GetForDay implements store.AttendanceStore.
func (s *Store) GetForDay(ctx context.Context, employeeID int64, dayStart, dayEnd time.Time) (*store.AttendanceRecord, error) {
	if s.GetForDayError != nil {
		return nil, s.GetForDayError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records {
		if rec.EmployeeID == employeeID && !rec.Timestamp.Before(dayStart) && rec.Timestamp.Before(dayEnd) {
			r := rec
			return &r, nil
		}
	}
	return nil, store.ErrNotFound
}

// CreateRecord implements store.AttendanceStore.
func (s *Store) CreateRecord(ctx context.Context, rec *store.AttendanceRecord) (*store.AttendanceRecord, error) {
	if s.CreateRecordError != nil {
		return nil, s.CreateRecordError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	created := *rec
	created.ID = s.nextIDLocked()
	created.CreatedAt = time.Now()
	s.records[created.ID] = created
	return &created, nil
}

// SetExit implements store.AttendanceStore.
func (s *Store) SetExit(ctx context.Context, id int64, exitTime time.Time, isEarly bool, earlyMsg string) error {
	if s.SetExitError != nil {
		return s.SetExitError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return store.ErrNotFound
	}
	rec.ExitTime = &exitTime
	rec.IsEarlyExit = isEarly
	rec.EarlyExitMessage = earlyMsg
	s.records[id] = rec
	return nil
}

// UpdateConfidence implements store.AttendanceStore.
func (s *Store) UpdateConfidence(ctx context.Context, id int64, confidence float64) error {
	if s.UpdateConfidenceError != nil {
		return s.UpdateConfidenceError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return store.ErrNotFound
	}
	rec.Confidence = confidence
	s.records[id] = rec
	return nil
}

// ListRange implements store.AttendanceStore.
func (s *Store) ListRange(ctx context.Context, from, to time.Time) ([]store.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.AttendanceRecord
	for _, rec := range s.records {
		if !rec.Timestamp.Before(from) && rec.Timestamp.Before(to) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// DeleteRecord implements store.AttendanceStore.
func (s *Store) DeleteRecord(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.records, id)
	return nil
}

// CreateEarlyExitReason implements store.AttendanceStore.
func (s *Store) CreateEarlyExitReason(ctx context.Context, r *store.EarlyExitReason) (*store.EarlyExitReason, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	created := *r
	created.ID = s.nextIDLocked()
	created.CreatedAt = time.Now()
	s.reasons[created.ID] = created
	return &created, nil
}

// GetSettings implements store.SettingsStore.
func (s *Store) GetSettings(ctx context.Context) (*store.Settings, error) {
	if s.GetSettingsError != nil {
		return nil, s.GetSettingsError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasSettings {
		return nil, store.ErrNotFound
	}
	settings := s.settings
	return &settings, nil
}

// RecordCount returns the number of attendance records stored.
func (s *Store) RecordCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// GetRecord returns a record by ID for assertions.
func (s *Store) GetRecord(id int64) (store.AttendanceRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	return rec, ok
}
