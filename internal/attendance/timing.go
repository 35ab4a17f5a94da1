package attendance

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/store"
)

// parseClock parses a wall-clock "HH:MM" string.
func parseClock(s string) (hour, minute int, err error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid clock time %q", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("clock time %q out of range", s)
	}
	return hour, minute, nil
}

// lateResult describes a lateness evaluation.
type lateResult struct {
	Late      bool
	Message   string
	Breakdown store.LateBreakdown
}

// evaluateLateness decides whether a punch at t is late against the given
// login time and grace period. The scheduled start is built on t's local
// day; a scheduled start more than OvernightShiftWindow ahead of the punch
// is assumed to have been yesterday's (overnight shifts crossing midnight).
// Minutes late are measured from the un-graced scheduled start. Any parse
// failure fails open to "not late".
func evaluateLateness(t time.Time, loginTime string, graceMinutes int, loc *time.Location) lateResult {
	hour, minute, err := parseClock(loginTime)
	if err != nil {
		return lateResult{}
	}

	local := t.In(loc)
	scheduled := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)

	// Heuristic: strictly greater than the window shifts the schedule back a
	// day; exactly at the boundary stays on the same day.
	if scheduled.Sub(local) > constants.OvernightShiftWindow {
		scheduled = scheduled.AddDate(0, 0, -1)
	}

	withGrace := scheduled.Add(time.Duration(graceMinutes) * time.Minute)
	if !local.After(withGrace) {
		return lateResult{}
	}

	lateBy := local.Sub(scheduled)
	breakdown := store.LateBreakdown{
		Hours:   int(lateBy.Hours()),
		Minutes: int(lateBy.Minutes()) % 60,
		Seconds: int(lateBy.Seconds()) % 60,
	}
	return lateResult{
		Late:      true,
		Message:   fmt.Sprintf("Late by %dh %dm %ds", breakdown.Hours, breakdown.Minutes, breakdown.Seconds),
		Breakdown: breakdown,
	}
}

// earlyResult describes an early-exit evaluation.
type earlyResult struct {
	Early        bool
	MinutesEarly int
	Message      string
}

// evaluateEarlyExit decides whether leaving at t is earlier than the given
// logout time on the same local day. No overnight adjustment applies here.
// Any parse failure fails open to "not early".
func evaluateEarlyExit(t time.Time, logoutTime string, loc *time.Location) earlyResult {
	hour, minute, err := parseClock(logoutTime)
	if err != nil {
		return earlyResult{}
	}

	local := t.In(loc)
	scheduled := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !local.Before(scheduled) {
		return earlyResult{}
	}

	minutes := int(scheduled.Sub(local).Minutes())
	return earlyResult{
		Early:        true,
		MinutesEarly: minutes,
		Message:      fmt.Sprintf("Left %d minutes early", minutes),
	}
}

// dayBounds returns [midnight, next midnight) around t in the given location.
func dayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
