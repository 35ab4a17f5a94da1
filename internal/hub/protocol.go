// Package hub manages live WebSocket connections: the JSON message
// protocol, per-connection write loops with keepalives, and broadcast
// fan-out of attendance events.
package hub

import "time"

// Kind is a closed set of inbound message kinds.
type Kind string

const (
	KindFrame            Kind = "frame"
	KindPing             Kind = "ping"
	KindGetAttendance    Kind = "get_attendance"
	KindGetEmployees     Kind = "get_employees"
	KindDeleteAttendance Kind = "delete_attendance"
	KindDeleteEmployee   Kind = "delete_employee"
	KindRegisterEmployee Kind = "register_employee"
	KindEarlyExitReason  Kind = "early_exit_reason"
	KindUnknown          Kind = "unknown"
)

// Inbound is one JSON-framed client message.
type Inbound struct {
	Type  Kind   `json:"type,omitempty"`
	Image string `json:"image,omitempty"` // base64-encoded frame
	// EntryType is accepted on bare frames for wire compatibility with
	// kiosk clients; entry/exit is decided by the attendance state machine,
	// not by the client's hint.
	EntryType    string `json:"entry_type,omitempty"`
	EmployeeID   string `json:"employee_id,omitempty"`
	Name         string `json:"name,omitempty"`
	AttendanceID int64  `json:"attendance_id,omitempty"`
	Date         string `json:"date,omitempty"` // YYYY-MM-DD for queries
	Reason       string `json:"reason,omitempty"`
}

// MessageKind resolves the effective kind of a message. Frame submissions
// may arrive bare (no type field, just image + entry_type).
func (m *Inbound) MessageKind() Kind {
	switch m.Type {
	case KindFrame, KindPing, KindGetAttendance, KindGetEmployees,
		KindDeleteAttendance, KindDeleteEmployee, KindRegisterEmployee,
		KindEarlyExitReason:
		return m.Type
	case "":
		if m.Image != "" {
			return KindFrame
		}
	}
	return KindUnknown
}

// Status classifies per-connection outcomes so callers can distinguish
// "no face found" from "server too busy" from "internal error".
type Status string

const (
	StatusOK             Status = "ok"
	StatusNoFace         Status = "no_face"
	StatusNoMatch        Status = "no_match"
	StatusTooManyPending Status = "too_many_pending"
	StatusOverloaded     Status = "overloaded"
	StatusError          Status = "error"
)

// AttendanceUpdate is the broadcast event for attendance state changes.
type AttendanceUpdate struct {
	Type       string  `json:"type"` // always "attendance_update"
	Action     string  `json:"action"`
	EmployeeID string  `json:"employee_id,omitempty"`
	Name       string  `json:"name,omitempty"`
	Time       string  `json:"time,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	IsLate     bool    `json:"is_late,omitempty"`
	IsEarly    bool    `json:"is_early_exit,omitempty"`
	Message    string  `json:"message,omitempty"`
}

// NewAttendanceUpdate builds a broadcast event.
func NewAttendanceUpdate(action, employeeID, name string, at time.Time, confidence float64) AttendanceUpdate {
	return AttendanceUpdate{
		Type:       "attendance_update",
		Action:     action,
		EmployeeID: employeeID,
		Name:       name,
		Time:       at.Format(time.RFC3339),
		Confidence: confidence,
	}
}

// MatchInfo is one accepted match inside a detection result.
type MatchInfo struct {
	EmployeeID string  `json:"employee_id"`
	Name       string  `json:"name"`
	Similarity float64 `json:"similarity"`
	Action     string  `json:"action"`
}

// DetectionResult is the personalized acknowledgment for one frame.
type DetectionResult struct {
	Type    string      `json:"type"` // always "detection_result"
	Status  Status      `json:"status"`
	Matches []MatchInfo `json:"matches,omitempty"`
	Message string      `json:"message,omitempty"`
}

// NewDetectionResult builds a personalized frame acknowledgment.
func NewDetectionResult(status Status, matches []MatchInfo, message string) DetectionResult {
	return DetectionResult{Type: "detection_result", Status: status, Matches: matches, Message: message}
}

// AttendanceEntry is one attendance row in a query reply.
type AttendanceEntry struct {
	ID          int64   `json:"id"`
	EmployeeID  string  `json:"employee_id"`
	Name        string  `json:"name"`
	EntryTime   string  `json:"entry_time"`
	ExitTime    string  `json:"exit_time,omitempty"`
	Confidence  float64 `json:"confidence"`
	IsLate      bool    `json:"is_late"`
	IsEarlyExit bool    `json:"is_early_exit"`
	LateMessage string  `json:"late_message,omitempty"`
}

// AttendanceData replies to a get_attendance query.
type AttendanceData struct {
	Type    string            `json:"type"` // always "attendance_data"
	Date    string            `json:"date"`
	Records []AttendanceEntry `json:"records"`
}

// NewAttendanceData builds an attendance query reply.
func NewAttendanceData(date string, records []AttendanceEntry) AttendanceData {
	return AttendanceData{Type: "attendance_data", Date: date, Records: records}
}

// EmployeeEntry is one employee row in a query reply. Embeddings never
// leave the server.
type EmployeeEntry struct {
	EmployeeID string `json:"employee_id"`
	Name       string `json:"name"`
	ShiftID    *int64 `json:"shift_id,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// EmployeeData replies to a get_employees query.
type EmployeeData struct {
	Type      string          `json:"type"` // always "employee_data"
	Employees []EmployeeEntry `json:"employees"`
}

// NewEmployeeData builds an employee query reply.
func NewEmployeeData(employees []EmployeeEntry) EmployeeData {
	return EmployeeData{Type: "employee_data", Employees: employees}
}

// Notification is a per-connection informational message. It accompanies a
// detection result whose decision changed attendance state, carrying the
// human-readable entry/exit/late/early-exit line for kiosk displays.
type Notification struct {
	Type    string `json:"type"` // always "notification"
	Message string `json:"message"`
}

// NewNotification builds a per-connection informational message.
func NewNotification(message string) Notification {
	return Notification{Type: "notification", Message: message}
}

// ErrorMessage is a per-connection error status.
type ErrorMessage struct {
	Type    string `json:"type"` // always "error"
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// NewError builds an error message.
func NewError(status Status, message string) ErrorMessage {
	return ErrorMessage{Type: "error", Status: status, Message: message}
}

// Pong replies to a ping.
type Pong struct {
	Type string `json:"type"` // always "pong"
}

// NewPong builds a pong reply.
func NewPong() Pong {
	return Pong{Type: "pong"}
}
