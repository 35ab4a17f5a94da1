package handlers

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/store"
)

func TestDecodeImage(t *testing.T) {
	raw := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	encoded := base64.StdEncoding.EncodeToString(raw)

	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"PlainBase64", encoded, false},
		{"DataURL", "data:image/jpeg;base64," + encoded, false},
		{"Empty", "", true},
		{"Garbage", "not-base64!!!", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := decodeImage(tc.payload)
			if tc.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeImage failed: %v", err)
			}
			if len(got) != len(raw) {
				t.Errorf("decoded %d bytes, want %d", len(got), len(raw))
			}
		})
	}
}

func TestParseDay(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatalf("loading location: %v", err)
	}

	start, end, err := parseDay("2024-03-12", loc)
	if err != nil {
		t.Fatalf("parseDay failed: %v", err)
	}
	if start.Hour() != 0 || start.Location() != loc {
		t.Errorf("unexpected day start %v", start)
	}
	if end.Sub(start) != 24*time.Hour {
		t.Errorf("day span = %v; want 24h", end.Sub(start))
	}

	// Empty date means today.
	start, end, err = parseDay("", loc)
	if err != nil {
		t.Fatalf("parseDay with empty date failed: %v", err)
	}
	now := time.Now().In(loc)
	if start.Day() != now.Day() || !end.After(now) {
		t.Errorf("today bounds [%v, %v) do not contain %v", start, end, now)
	}

	if _, _, err := parseDay("12/03/2024", loc); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestAttendanceEntries(t *testing.T) {
	exit := time.Date(2024, 3, 12, 18, 0, 0, 0, time.UTC)
	records := []store.AttendanceRecord{
		{ID: 1, EmployeeID: 10, Timestamp: exit.Add(-9 * time.Hour), ExitTime: &exit, Confidence: 0.9},
		{ID: 2, EmployeeID: 99, Timestamp: exit.Add(-8 * time.Hour), IsLate: true, LateMessage: "Late by 1h 0m 0s"},
	}
	employees := []store.Employee{
		{ID: 10, EmployeeID: "E010", Name: "Ada"},
	}

	entries := attendanceEntries(records, employees)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Name != "Ada" || entries[0].ExitTime == "" {
		t.Errorf("unexpected first entry %+v", entries[0])
	}
	// A record whose employee is gone still appears, just without identity.
	if entries[1].Name != "" || entries[1].LateMessage != "Late by 1h 0m 0s" {
		t.Errorf("unexpected second entry %+v", entries[1])
	}
}
