package attendance

import (
	"testing"
	"time"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04:05", value)
	if err != nil {
		t.Fatalf("bad test time %q: %v", value, err)
	}
	return ts
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		input   string
		hour    int
		minute  int
		wantErr bool
	}{
		{"09:00", 9, 0, false},
		{"23:59", 23, 59, false},
		{"0:5", 0, 5, false},
		{" 18:30 ", 18, 30, false},
		{"24:00", 0, 0, true},
		{"12:60", 0, 0, true},
		{"garbage", 0, 0, true},
		{"", 0, 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			h, m, err := parseClock(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Errorf("parseClock(%q) expected error", tc.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseClock(%q) failed: %v", tc.input, err)
			}
			if h != tc.hour || m != tc.minute {
				t.Errorf("parseClock(%q) = %d:%d; want %d:%d", tc.input, h, m, tc.hour, tc.minute)
			}
		})
	}
}

func TestEvaluateLateness(t *testing.T) {
	tests := []struct {
		name        string
		punch       string
		login       string
		grace       int
		late        bool
		wantMinutes int // total minutes late, from the un-graced start
	}{
		{"within grace", "2024-03-12 09:08:00", "09:00", 10, false, 0},
		{"exactly at grace", "2024-03-12 09:10:00", "09:00", 10, false, 0},
		{"past grace measured from start", "2024-03-12 09:25:00", "09:00", 10, true, 25},
		{"no grace", "2024-03-12 09:01:00", "09:00", 0, true, 1},
		{"on time", "2024-03-12 08:59:00", "09:00", 0, false, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := evaluateLateness(mustTime(t, tc.punch), tc.login, tc.grace, time.UTC)
			if got.Late != tc.late {
				t.Fatalf("late = %v; want %v", got.Late, tc.late)
			}
			if tc.late {
				total := got.Breakdown.Hours*60 + got.Breakdown.Minutes
				if total != tc.wantMinutes {
					t.Errorf("minutes late = %d; want %d", total, tc.wantMinutes)
				}
			}
		})
	}
}

func TestEvaluateLatenessOvernight(t *testing.T) {
	// Night shift starting 22:00; the punch comes in at 02:30 the next
	// morning. The same-day scheduled start (22:00) is more than 12h ahead
	// of the punch, so it is treated as yesterday's start.
	got := evaluateLateness(mustTime(t, "2024-03-13 02:30:00"), "22:00", 0, time.UTC)
	if !got.Late {
		t.Fatal("expected late for overnight shift punch")
	}
	total := got.Breakdown.Hours*60 + got.Breakdown.Minutes
	if total != 270 { // 4h30m after yesterday's 22:00
		t.Errorf("minutes late = %d; want 270", total)
	}

	// Exactly at the 12h boundary the schedule stays on the same day.
	boundary := evaluateLateness(mustTime(t, "2024-03-13 10:00:00"), "22:00", 0, time.UTC)
	if boundary.Late {
		t.Error("punch exactly 12h before schedule must not shift to yesterday")
	}
}

func TestEvaluateLatenessFailOpen(t *testing.T) {
	got := evaluateLateness(mustTime(t, "2024-03-12 12:00:00"), "not-a-time", 0, time.UTC)
	if got.Late {
		t.Error("malformed login time must fail open to not-late")
	}
}

func TestEvaluateEarlyExit(t *testing.T) {
	tests := []struct {
		name        string
		punch       string
		logout      string
		early       bool
		wantMinutes int
	}{
		{"fifteen early", "2024-03-12 17:45:00", "18:00", true, 15},
		{"after logout", "2024-03-12 18:05:00", "18:00", false, 0},
		{"exactly at logout", "2024-03-12 18:00:00", "18:00", false, 0},
		{"malformed fails open", "2024-03-12 12:00:00", "xx:yy", false, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := evaluateEarlyExit(mustTime(t, tc.punch), tc.logout, time.UTC)
			if got.Early != tc.early {
				t.Fatalf("early = %v; want %v", got.Early, tc.early)
			}
			if got.MinutesEarly != tc.wantMinutes {
				t.Errorf("minutes early = %d; want %d", got.MinutesEarly, tc.wantMinutes)
			}
		})
	}
}

func TestDayBounds(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Prague")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	punch := time.Date(2024, 3, 12, 23, 30, 0, 0, loc)
	start, end := dayBounds(punch, loc)
	if start.Hour() != 0 || start.Day() != 12 {
		t.Errorf("unexpected day start %v", start)
	}
	if end.Sub(start) != 24*time.Hour {
		t.Errorf("unexpected day length %v", end.Sub(start))
	}
}
