package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kozaktomas/face-attendance/internal/facecap"
	"github.com/kozaktomas/face-attendance/internal/store"
)

// dialWS spins up the handler behind an httptest server and dials it.
func dialWS(t *testing.T, h *WSHandler) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(h.Serve))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing websocket: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readReply(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("reading reply: %v", err)
	}
	var msg map[string]any
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("invalid JSON reply %q: %v", payload, err)
	}
	return msg
}

func sendJSON(t *testing.T, ws *websocket.Conn, v string) {
	t.Helper()
	if err := ws.WriteMessage(websocket.TextMessage, []byte(v)); err != nil {
		t.Fatalf("sending message: %v", err)
	}
}

func TestWSPingPong(t *testing.T) {
	st, pipe, h := newTestStack(&stubDetector{})
	_ = st
	ws := dialWS(t, NewWSHandler(h, pipe, st, time.UTC))

	sendJSON(t, ws, `{"type":"ping"}`)
	reply := readReply(t, ws)
	if reply["type"] != "pong" {
		t.Errorf("reply type = %v; want pong", reply["type"])
	}
}

func TestWSGetEmployees(t *testing.T) {
	st, pipe, h := newTestStack(&stubDetector{})
	st.AddEmployee(store.Employee{EmployeeID: "E001", Name: "Ada", Embedding: []float32{1, 0, 0}, Active: true})

	ws := dialWS(t, NewWSHandler(h, pipe, st, time.UTC))

	sendJSON(t, ws, `{"type":"get_employees"}`)
	reply := readReply(t, ws)
	if reply["type"] != "employee_data" {
		t.Fatalf("reply type = %v; want employee_data", reply["type"])
	}
	employees, ok := reply["employees"].([]any)
	if !ok || len(employees) != 1 {
		t.Errorf("unexpected employees payload %v", reply["employees"])
	}
}

func TestWSGetAttendance(t *testing.T) {
	st, pipe, h := newTestStack(&stubDetector{})
	empID := st.AddEmployee(store.Employee{EmployeeID: "E001", Name: "Ada", Embedding: []float32{1, 0, 0}, Active: true})
	if _, err := st.CreateRecord(t.Context(), &store.AttendanceRecord{
		EmployeeID: empID,
		Timestamp:  time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("seeding record: %v", err)
	}

	ws := dialWS(t, NewWSHandler(h, pipe, st, time.UTC))

	sendJSON(t, ws, `{"type":"get_attendance","date":"2024-03-12"}`)
	reply := readReply(t, ws)
	if reply["type"] != "attendance_data" || reply["date"] != "2024-03-12" {
		t.Fatalf("unexpected reply %v", reply)
	}
	records, ok := reply["records"].([]any)
	if !ok || len(records) != 1 {
		t.Errorf("unexpected records payload %v", reply["records"])
	}
}

func TestWSUnknownType(t *testing.T) {
	st, pipe, h := newTestStack(&stubDetector{})
	ws := dialWS(t, NewWSHandler(h, pipe, st, time.UTC))

	sendJSON(t, ws, `{"type":"frobnicate"}`)
	reply := readReply(t, ws)
	if reply["type"] != "error" {
		t.Errorf("reply type = %v; want error", reply["type"])
	}
}

func TestWSFrameBadImage(t *testing.T) {
	st, pipe, h := newTestStack(&stubDetector{})
	ws := dialWS(t, NewWSHandler(h, pipe, st, time.UTC))

	sendJSON(t, ws, `{"image":"not-base64!!!","entry_type":"entry"}`)
	reply := readReply(t, ws)
	if reply["type"] != "error" {
		t.Errorf("reply type = %v; want error", reply["type"])
	}
}

func TestWSFrameDeliversResultAndNotification(t *testing.T) {
	det := &stubDetector{detections: []facecap.Detection{
		{FaceIndex: 0, Dim: 3, Embedding: []float32{1, 0, 0}, DetScore: 0.99},
	}}
	st, pipe, h := newTestStack(det)
	st.AddEmployee(store.Employee{EmployeeID: "E001", Name: "Ada", Embedding: []float32{1, 0, 0}, Active: true})

	pipe.Start(context.Background())
	t.Cleanup(pipe.Stop)

	ws := dialWS(t, NewWSHandler(h, pipe, st, time.UTC))

	sendJSON(t, ws, `{"image":"`+testImageBase64(t)+`"}`)

	// An accepted entry produces three frames on this connection: the
	// personalized detection_result and notification, plus the broadcast
	// attendance_update. The broadcast loop runs independently, so only the
	// result-before-notification order is guaranteed.
	got := map[string]map[string]any{}
	for i := 0; i < 3; i++ {
		reply := readReply(t, ws)
		kind, _ := reply["type"].(string)
		got[kind] = reply
	}

	if _, ok := got["detection_result"]; !ok {
		t.Fatalf("no detection_result among replies: %v", got)
	}
	note, ok := got["notification"]
	if !ok {
		t.Fatalf("no notification among replies: %v", got)
	}
	if msg, _ := note["message"].(string); !strings.Contains(msg, "Ada") {
		t.Errorf("notification message = %q; want the employee name in it", msg)
	}
	if _, ok := got["attendance_update"]; !ok {
		t.Errorf("no attendance_update broadcast among replies: %v", got)
	}
	if st.RecordCount() != 1 {
		t.Errorf("record count = %d; want 1", st.RecordCount())
	}
}

func TestWSRegisterEmployeeValidation(t *testing.T) {
	st, pipe, h := newTestStack(&stubDetector{})
	ws := dialWS(t, NewWSHandler(h, pipe, st, time.UTC))

	sendJSON(t, ws, `{"type":"register_employee","employee_id":"E001"}`)
	reply := readReply(t, ws)
	if reply["type"] != "error" {
		t.Errorf("reply type = %v; want error", reply["type"])
	}
}
