// Package attendance turns accepted face matches into per-employee,
// per-day attendance decisions: entries, auto-exits, lateness and
// early-exit flags.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/cache"
	"github.com/kozaktomas/face-attendance/internal/store"
)

// Action classifies the outcome of processing one match event.
type Action string

const (
	// ActionEntry opened a new attendance record for the day.
	ActionEntry Action = "entry"
	// ActionExit closed the day's record with an exit time.
	ActionExit Action = "exit"
	// ActionUpdate bumped the stored confidence inside the dedup window.
	ActionUpdate Action = "update"
	// ActionInfo is a detection after the day was already closed.
	ActionInfo Action = "info"
)

// Decision is the outcome of one match event.
type Decision struct {
	Action   Action
	Employee *store.Employee
	Record   *store.AttendanceRecord
	Message  string
}

// StateChanged reports whether the decision mutated attendance state in a
// way other connections should hear about. Confidence updates and
// informational results are personalized-only.
func (d *Decision) StateChanged() bool {
	return d.Action == ActionEntry || d.Action == ActionExit
}

// Engine is the per-employee-per-day attendance state machine.
// States: none -> entry open -> exit closed; both transitions are terminal
// for the day.
type Engine struct {
	records       store.AttendanceStore
	shifts        *cache.Map[int64, *store.Shift]
	settings      *cache.Value[store.Settings]
	autoExit      time.Duration
	defaultOffice store.OfficeTiming

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewEngine creates a decision engine. shiftStore and settingsStore are read
// through TTL caches so a burst of detections does not translate into a
// burst of store round-trips. defaultOffice applies when the settings store
// has no office timing either.
func NewEngine(
	records store.AttendanceStore,
	shifts store.ShiftStore,
	settings store.SettingsStore,
	autoExit time.Duration,
	shiftTTL, settingsTTL time.Duration,
	fallbackTimezone string,
	defaultOffice store.OfficeTiming,
) *Engine {
	shiftCache := cache.NewMap(shiftTTL, func(ctx context.Context, id int64) (*store.Shift, error) {
		return shifts.GetShift(ctx, id)
	})
	settingsCache := cache.NewValue(settingsTTL,
		store.Settings{Timezone: fallbackTimezone, OfficeTiming: defaultOffice},
		func(ctx context.Context) (store.Settings, error) {
			s, err := settings.GetSettings(ctx)
			if err != nil {
				return store.Settings{}, err
			}
			return *s, nil
		})

	return &Engine{
		records:       records,
		shifts:        shiftCache,
		settings:      settingsCache,
		autoExit:      autoExit,
		defaultOffice: defaultOffice,
		locks:         make(map[int64]*sync.Mutex),
	}
}

// employeeLock returns the mutex serializing decisions for one employee.
// Workers call Process concurrently; the record lookup and the transition
// that follows must run as one atomic step per employee, otherwise two
// simultaneous detections could both see an empty day and open two records.
func (e *Engine) employeeLock(id int64) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[id]
	if !ok {
		l = &sync.Mutex{}
		e.locks[id] = l
	}
	return l
}

// AutoExitThreshold returns the configured dedup/auto-exit window.
func (e *Engine) AutoExitThreshold() time.Duration {
	return e.autoExit
}

// Process runs one match event through the state machine. Store failures on
// the record itself propagate; shift/timing lookup failures fail open so a
// malformed shift never blocks attendance recording.
func (e *Engine) Process(ctx context.Context, emp *store.Employee, similarity float64, t time.Time) (*Decision, error) {
	l := e.employeeLock(emp.ID)
	l.Lock()
	defer l.Unlock()

	settings := e.settings.Get(ctx)
	loc := e.location(settings.Timezone)
	dayStart, dayEnd := dayBounds(t, loc)

	rec, err := e.records.GetForDay(ctx, emp.ID, dayStart, dayEnd)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return e.openEntry(ctx, emp, similarity, t, settings, loc)
	case err != nil:
		return nil, fmt.Errorf("looking up attendance record: %w", err)
	}

	if rec.ExitTime != nil {
		// Day already closed: no mutation, no event.
		return &Decision{Action: ActionInfo, Employee: emp, Record: rec, Message: "attendance already closed for today"}, nil
	}

	if t.Sub(rec.Timestamp) <= e.autoExit {
		// Streaming re-detection inside the dedup window: keep the best
		// confidence, emit no state-change event.
		if similarity > rec.Confidence {
			if err := e.records.UpdateConfidence(ctx, rec.ID, similarity); err != nil {
				return nil, fmt.Errorf("updating confidence: %w", err)
			}
			rec.Confidence = similarity
		}
		return &Decision{Action: ActionUpdate, Employee: emp, Record: rec, Message: "already checked in"}, nil
	}

	return e.closeExit(ctx, emp, rec, t, settings, loc)
}

func (e *Engine) openEntry(ctx context.Context, emp *store.Employee, similarity float64, t time.Time, settings store.Settings, loc *time.Location) (*Decision, error) {
	login, grace := e.resolveLogin(ctx, emp, settings)

	var late lateResult
	if login != "" {
		late = evaluateLateness(t, login, grace, loc)
	}

	rec := &store.AttendanceRecord{
		EmployeeID:  emp.ID,
		Timestamp:   t,
		Confidence:  similarity,
		IsLate:      late.Late,
		LateMessage: late.Message,
		LateBy:      late.Breakdown,
	}
	created, err := e.records.CreateRecord(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("creating attendance record: %w", err)
	}

	msg := "entry recorded"
	if late.Late {
		msg = late.Message
	}
	return &Decision{Action: ActionEntry, Employee: emp, Record: created, Message: msg}, nil
}

func (e *Engine) closeExit(ctx context.Context, emp *store.Employee, rec *store.AttendanceRecord, t time.Time, settings store.Settings, loc *time.Location) (*Decision, error) {
	logout := e.resolveLogout(ctx, emp, settings)

	var early earlyResult
	if logout != "" {
		early = evaluateEarlyExit(t, logout, loc)
	}

	if err := e.records.SetExit(ctx, rec.ID, t, early.Early, early.Message); err != nil {
		return nil, fmt.Errorf("closing attendance record: %w", err)
	}

	exitAt := t
	rec.ExitTime = &exitAt
	rec.IsEarlyExit = early.Early
	rec.EarlyExitMessage = early.Message

	msg := "exit recorded"
	if early.Early {
		msg = early.Message
	}
	return &Decision{Action: ActionExit, Employee: emp, Record: rec, Message: msg}, nil
}

// resolveLogin returns the login time and grace period for an employee:
// the assigned shift when present, otherwise the office timing. An empty
// login time means "treat as not late".
func (e *Engine) resolveLogin(ctx context.Context, emp *store.Employee, settings store.Settings) (string, int) {
	if emp.ShiftID != nil {
		shift, err := e.shifts.Get(ctx, *emp.ShiftID)
		if err != nil {
			log.Printf("shift lookup failed for employee %s: %v", emp.EmployeeID, err)
		} else if shift != nil {
			return shift.LoginTime, shift.GracePeriod
		}
	}
	if settings.OfficeTiming.LoginTime != "" {
		return settings.OfficeTiming.LoginTime, 0
	}
	return e.defaultOffice.LoginTime, 0
}

// resolveLogout mirrors resolveLogin for the logout side.
func (e *Engine) resolveLogout(ctx context.Context, emp *store.Employee, settings store.Settings) string {
	if emp.ShiftID != nil {
		shift, err := e.shifts.Get(ctx, *emp.ShiftID)
		if err != nil {
			log.Printf("shift lookup failed for employee %s: %v", emp.EmployeeID, err)
		} else if shift != nil {
			return shift.LogoutTime
		}
	}
	if settings.OfficeTiming.LogoutTime != "" {
		return settings.OfficeTiming.LogoutTime
	}
	return e.defaultOffice.LogoutTime
}

// location resolves a timezone name, falling back to UTC on failure.
func (e *Engine) location(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("invalid timezone %q, falling back to UTC: %v", name, err)
		return time.UTC
	}
	return loc
}
