package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/hub"
	"github.com/kozaktomas/face-attendance/internal/pipeline"
	"github.com/kozaktomas/face-attendance/internal/store"
)

// EmployeesHandler serves the REST employee endpoints. Enrollment goes
// through the pipeline so the duplicate-identity guard applies everywhere.
type EmployeesHandler struct {
	store store.Store
	pipe  *pipeline.Pipeline
}

// NewEmployeesHandler creates the employees handler.
func NewEmployeesHandler(st store.Store, pipe *pipeline.Pipeline) *EmployeesHandler {
	return &EmployeesHandler{store: st, pipe: pipe}
}

// List handles GET /employees.
func (h *EmployeesHandler) List(w http.ResponseWriter, r *http.Request) {
	employees, err := h.store.ListActive(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "employee query failed")
		return
	}
	respondJSON(w, http.StatusOK, hub.NewEmployeeData(employeeEntries(employees)))
}

// Register handles POST /employees.
func (h *EmployeesHandler) Register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		EmployeeID string `json:"employee_id"`
		Name       string `json:"name"`
		Image      string `json:"image"` // base64-encoded photo
		ShiftID    *int64 `json:"shift_id,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if body.EmployeeID == "" || body.Name == "" {
		respondError(w, http.StatusBadRequest, "employee_id and name are required")
		return
	}

	image, err := decodeImage(body.Image)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.pipe.RegisterEmployee(r.Context(), body.EmployeeID, body.Name, image, body.ShiftID)
	if err != nil {
		var dup *pipeline.DuplicateFaceError
		switch {
		case errors.As(err, &dup):
			respondError(w, http.StatusConflict, dup.Error())
		case errors.Is(err, pipeline.ErrEmployeeExists):
			respondError(w, http.StatusConflict, err.Error())
		case errors.Is(err, pipeline.ErrNoFaceDetected):
			respondError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "registration failed")
		}
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"id":          created.ID,
		"employee_id": created.EmployeeID,
		"name":        created.Name,
	})
}

// Delete handles DELETE /employees/{employeeID}.
func (h *EmployeesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")
	if employeeID == "" {
		respondError(w, http.StatusBadRequest, "employee ID is required")
		return
	}

	if err := h.pipe.DeleteEmployee(r.Context(), employeeID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "employee not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
