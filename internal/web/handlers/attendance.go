package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/hub"
	"github.com/kozaktomas/face-attendance/internal/store"
)

// AttendanceHandler serves the REST attendance endpoints. The WebSocket
// protocol remains the primary surface; these exist for dashboards and
// scripting.
type AttendanceHandler struct {
	store store.Store
	loc   *time.Location
}

// NewAttendanceHandler creates the attendance handler.
func NewAttendanceHandler(st store.Store, loc *time.Location) *AttendanceHandler {
	return &AttendanceHandler{store: st, loc: loc}
}

// List handles GET /attendance?date=YYYY-MM-DD.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDay(r.URL.Query().Get("date"), h.loc)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := h.store.ListRange(r.Context(), start, end)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "attendance query failed")
		return
	}
	employees, err := h.store.ListActive(r.Context())
	if err != nil {
		employees = nil
	}

	respondJSON(w, http.StatusOK, hub.NewAttendanceData(start.Format("2006-01-02"), attendanceEntries(records, employees)))
}

// Delete handles DELETE /attendance/{id}.
func (h *AttendanceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid attendance ID")
		return
	}

	if err := h.store.DeleteRecord(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "attendance record not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// EarlyExitReason handles POST /attendance/{id}/early-exit-reason.
func (h *AttendanceHandler) EarlyExitReason(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid attendance ID")
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Reason == "" {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	reason, err := h.store.CreateEarlyExitReason(r.Context(), &store.EarlyExitReason{
		AttendanceID: id,
		Reason:       body.Reason,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "saving reason failed")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"id": reason.ID})
}
