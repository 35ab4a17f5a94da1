// Package handlers implements the HTTP and WebSocket endpoints.
package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/hub"
	"github.com/kozaktomas/face-attendance/internal/store"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// decodeImage decodes a base64 image payload, tolerating data-URL prefixes
// ("data:image/jpeg;base64,...") that browser clients send.
func decodeImage(payload string) ([]byte, error) {
	if payload == "" {
		return nil, errors.New("empty image payload")
	}
	if idx := strings.Index(payload, ","); idx != -1 && strings.HasPrefix(payload, "data:") {
		payload = payload[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, errors.New("invalid base64 image")
	}
	return data, nil
}

// parseDay resolves a YYYY-MM-DD string (or today when empty) to the local
// day bounds [start, end) in the given location.
func parseDay(date string, loc *time.Location) (start, end time.Time, err error) {
	var day time.Time
	if date == "" {
		now := time.Now().In(loc)
		day = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	} else {
		day, err = time.ParseInLocation("2006-01-02", date, loc)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid date, expected YYYY-MM-DD")
		}
	}
	return day, day.AddDate(0, 0, 1), nil
}

// attendanceEntries joins attendance records with employee identities.
func attendanceEntries(records []store.AttendanceRecord, employees []store.Employee) []hub.AttendanceEntry {
	byID := make(map[int64]store.Employee, len(employees))
	for _, emp := range employees {
		byID[emp.ID] = emp
	}

	entries := make([]hub.AttendanceEntry, 0, len(records))
	for _, rec := range records {
		entry := hub.AttendanceEntry{
			ID:          rec.ID,
			EntryTime:   rec.Timestamp.Format(time.RFC3339),
			Confidence:  rec.Confidence,
			IsLate:      rec.IsLate,
			IsEarlyExit: rec.IsEarlyExit,
			LateMessage: rec.LateMessage,
		}
		if rec.ExitTime != nil {
			entry.ExitTime = rec.ExitTime.Format(time.RFC3339)
		}
		if emp, ok := byID[rec.EmployeeID]; ok {
			entry.EmployeeID = emp.EmployeeID
			entry.Name = emp.Name
		}
		entries = append(entries, entry)
	}
	return entries
}

// employeeEntries maps employees to their wire representation.
func employeeEntries(employees []store.Employee) []hub.EmployeeEntry {
	entries := make([]hub.EmployeeEntry, 0, len(employees))
	for _, emp := range employees {
		entries = append(entries, hub.EmployeeEntry{
			EmployeeID: emp.EmployeeID,
			Name:       emp.Name,
			ShiftID:    emp.ShiftID,
			CreatedAt:  emp.CreatedAt.Format(time.RFC3339),
		})
	}
	return entries
}
