package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kozaktomas/face-attendance/internal/hub"
	"github.com/kozaktomas/face-attendance/internal/pipeline"
	"github.com/kozaktomas/face-attendance/internal/store"
)

// WSHandler owns the WebSocket endpoint: it upgrades connections, registers
// them with the hub and dispatches inbound messages. Camera frames go through
// the pipeline; queries and administrative commands hit the store directly.
type WSHandler struct {
	hub      *hub.Hub
	pipe     *pipeline.Pipeline
	store    store.Store
	loc      *time.Location
	upgrader websocket.Upgrader
}

// NewWSHandler creates the WebSocket handler. loc scopes date queries to the
// attendance timezone.
func NewWSHandler(h *hub.Hub, pipe *pipeline.Pipeline, st store.Store, loc *time.Location) *WSHandler {
	return &WSHandler{
		hub:   h,
		pipe:  pipe,
		store: st,
		loc:   loc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Origin filtering happens in the CORS middleware; cameras and
			// kiosk clients connect without browser origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Serve handles GET /ws.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	conn := hub.NewConn(ws)
	h.hub.Add(conn)
	go conn.WriteLoop()

	conn.ReadLoop(h.dispatch)
	h.hub.Remove(conn.ID())
}

// dispatch routes one inbound message. Replies always go back through the
// connection's send queue; handler errors never close the connection.
func (h *WSHandler) dispatch(conn *hub.Conn, msg hub.Inbound) {
	ctx := context.Background()

	switch msg.MessageKind() {
	case hub.KindFrame:
		h.handleFrame(conn, msg)
	case hub.KindPing:
		_ = conn.Send(hub.NewPong())
	case hub.KindGetAttendance:
		h.handleGetAttendance(ctx, conn, msg)
	case hub.KindGetEmployees:
		h.handleGetEmployees(ctx, conn)
	case hub.KindDeleteAttendance:
		h.handleDeleteAttendance(ctx, conn, msg)
	case hub.KindDeleteEmployee:
		h.handleDeleteEmployee(ctx, conn, msg)
	case hub.KindRegisterEmployee:
		h.handleRegisterEmployee(ctx, conn, msg)
	case hub.KindEarlyExitReason:
		h.handleEarlyExitReason(ctx, conn, msg)
	default:
		_ = conn.Send(hub.NewError(hub.StatusError, "unknown message type"))
	}
}

// handleFrame submits a camera frame to the pipeline. Backpressure comes
// back as an explicit status instead of queuing.
func (h *WSHandler) handleFrame(conn *hub.Conn, msg hub.Inbound) {
	image, err := decodeImage(msg.Image)
	if err != nil {
		_ = conn.Send(hub.NewError(hub.StatusError, err.Error()))
		return
	}

	switch err := h.pipe.Submit(conn.ID(), image); {
	case errors.Is(err, pipeline.ErrTooManyPending):
		_ = conn.Send(hub.NewError(hub.StatusTooManyPending, "previous frames still processing"))
	case errors.Is(err, pipeline.ErrOverloaded):
		_ = conn.Send(hub.NewError(hub.StatusOverloaded, "system overloaded, retry later"))
	case errors.Is(err, pipeline.ErrStopped):
		_ = conn.Send(hub.NewError(hub.StatusError, "server shutting down"))
	case err != nil:
		_ = conn.Send(hub.NewError(hub.StatusError, "frame submission failed"))
	}
	// The detection result arrives asynchronously through the result queue.
}

func (h *WSHandler) handleGetAttendance(ctx context.Context, conn *hub.Conn, msg hub.Inbound) {
	start, end, err := parseDay(msg.Date, h.loc)
	if err != nil {
		_ = conn.Send(hub.NewError(hub.StatusError, err.Error()))
		return
	}

	records, err := h.store.ListRange(ctx, start, end)
	if err != nil {
		log.Printf("attendance query failed: %v", err)
		_ = conn.Send(hub.NewError(hub.StatusError, "attendance query failed"))
		return
	}
	employees, err := h.store.ListActive(ctx)
	if err != nil {
		log.Printf("employee lookup for attendance query failed: %v", err)
		employees = nil
	}

	_ = conn.Send(hub.NewAttendanceData(start.Format("2006-01-02"), attendanceEntries(records, employees)))
}

func (h *WSHandler) handleGetEmployees(ctx context.Context, conn *hub.Conn) {
	employees, err := h.store.ListActive(ctx)
	if err != nil {
		log.Printf("employee query failed: %v", err)
		_ = conn.Send(hub.NewError(hub.StatusError, "employee query failed"))
		return
	}
	_ = conn.Send(hub.NewEmployeeData(employeeEntries(employees)))
}

func (h *WSHandler) handleDeleteAttendance(ctx context.Context, conn *hub.Conn, msg hub.Inbound) {
	if msg.AttendanceID == 0 {
		_ = conn.Send(hub.NewError(hub.StatusError, "attendance_id is required"))
		return
	}
	if err := h.store.DeleteRecord(ctx, msg.AttendanceID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = conn.Send(hub.NewError(hub.StatusError, "attendance record not found"))
			return
		}
		log.Printf("delete attendance %d failed: %v", msg.AttendanceID, err)
		_ = conn.Send(hub.NewError(hub.StatusError, "delete failed"))
		return
	}

	ev := hub.NewAttendanceUpdate("delete", "", "", time.Now(), 0)
	ev.Message = "attendance record deleted"
	h.pipe.EnqueueBroadcast(ev)
}

func (h *WSHandler) handleDeleteEmployee(ctx context.Context, conn *hub.Conn, msg hub.Inbound) {
	if msg.EmployeeID == "" {
		_ = conn.Send(hub.NewError(hub.StatusError, "employee_id is required"))
		return
	}
	if err := h.pipe.DeleteEmployee(ctx, msg.EmployeeID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = conn.Send(hub.NewError(hub.StatusError, "employee not found"))
			return
		}
		log.Printf("delete employee %s failed: %v", msg.EmployeeID, err)
		_ = conn.Send(hub.NewError(hub.StatusError, "delete failed"))
	}
}

func (h *WSHandler) handleRegisterEmployee(ctx context.Context, conn *hub.Conn, msg hub.Inbound) {
	if msg.EmployeeID == "" || msg.Name == "" {
		_ = conn.Send(hub.NewError(hub.StatusError, "employee_id and name are required"))
		return
	}
	image, err := decodeImage(msg.Image)
	if err != nil {
		_ = conn.Send(hub.NewError(hub.StatusError, err.Error()))
		return
	}

	created, err := h.pipe.RegisterEmployee(ctx, msg.EmployeeID, msg.Name, image, nil)
	if err != nil {
		var dup *pipeline.DuplicateFaceError
		switch {
		case errors.As(err, &dup):
			_ = conn.Send(hub.NewError(hub.StatusError, dup.Error()))
		case errors.Is(err, pipeline.ErrNoFaceDetected),
			errors.Is(err, pipeline.ErrEmployeeExists):
			_ = conn.Send(hub.NewError(hub.StatusError, err.Error()))
		default:
			log.Printf("register employee %s failed: %v", msg.EmployeeID, err)
			_ = conn.Send(hub.NewError(hub.StatusError, "registration failed"))
		}
		return
	}

	ack := hub.NewAttendanceUpdate("register_employee", created.EmployeeID, created.Name, time.Now(), 0)
	ack.Message = "employee registered"
	_ = conn.Send(ack)
}

func (h *WSHandler) handleEarlyExitReason(ctx context.Context, conn *hub.Conn, msg hub.Inbound) {
	if msg.AttendanceID == 0 || msg.Reason == "" {
		_ = conn.Send(hub.NewError(hub.StatusError, "attendance_id and reason are required"))
		return
	}
	if _, err := h.store.CreateEarlyExitReason(ctx, &store.EarlyExitReason{
		AttendanceID: msg.AttendanceID,
		Reason:       msg.Reason,
	}); err != nil {
		log.Printf("early exit reason for record %d failed: %v", msg.AttendanceID, err)
		_ = conn.Send(hub.NewError(hub.StatusError, "saving reason failed"))
		return
	}

	ev := hub.NewAttendanceUpdate("early_exit_reason", "", "", time.Now(), 0)
	ev.Message = msg.Reason
	h.pipe.EnqueueBroadcast(ev)
}
