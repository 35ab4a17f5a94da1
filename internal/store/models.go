// Package store defines the persistent data model and the repository
// interfaces the rest of the system depends on.
package store

import "time"

// Employee is an enrolled person with exactly one face embedding,
// captured once at registration.
type Employee struct {
	ID         int64
	EmployeeID string // external identity, unique
	Name       string
	Embedding  []float32
	ShiftID    *int64
	Active     bool
	CreatedAt  time.Time
}

// Shift is an expected login/logout window. Times are wall-clock "HH:MM"
// strings with no date; the grace period applies to login only.
type Shift struct {
	ID          int64
	Name        string
	LoginTime   string
	LogoutTime  string
	GracePeriod int // minutes
	CreatedAt   time.Time
}

// OfficeTiming is the fallback login/logout pair for employees without a shift.
type OfficeTiming struct {
	LoginTime  string
	LogoutTime string
}

// AttendanceRecord is one employee's attendance for one local calendar day.
// At most one record exists per employee per day; ExitTime is set at most once.
type AttendanceRecord struct {
	ID               int64
	EmployeeID       int64
	Timestamp        time.Time  // entry time
	ExitTime         *time.Time // nil while the day is open
	Confidence       float64    // max similarity observed over the day
	IsLate           bool
	IsEarlyExit      bool
	LateMessage      string
	LateBy           LateBreakdown
	EarlyExitMessage string
	CreatedAt        time.Time
}

// LateBreakdown decomposes lateness for display.
type LateBreakdown struct {
	Hours   int
	Minutes int
	Seconds int
}

// EarlyExitReason annotates one attendance record with a free-text reason.
// At most one reason per record (business rule, not enforced by the schema).
type EarlyExitReason struct {
	ID           int64
	AttendanceID int64
	Reason       string
	CreatedAt    time.Time
}

// Settings holds the global mutable configuration stored alongside the data.
type Settings struct {
	Timezone     string
	OfficeTiming OfficeTiming
}

// DayStats aggregates one day's attendance for reporting.
type DayStats struct {
	Present    int
	Late       int
	EarlyExits int
}
