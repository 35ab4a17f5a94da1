package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/facecap"
	"github.com/kozaktomas/face-attendance/internal/store"
)

func employeesRouter(h *EmployeesHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/employees", h.List)
	r.Post("/employees", h.Register)
	r.Delete("/employees/{employeeID}", h.Delete)
	return r
}

func TestEmployeesList(t *testing.T) {
	st, pipe, _ := newTestStack(&stubDetector{})
	st.AddEmployee(store.Employee{EmployeeID: "E001", Name: "Ada", Embedding: []float32{1, 0, 0}, Active: true})

	r := employeesRouter(NewEmployeesHandler(st, pipe))

	req := httptest.NewRequest(http.MethodGet, "/employees", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}

	var body struct {
		Type      string `json:"type"`
		Employees []struct {
			EmployeeID string `json:"employee_id"`
			Name       string `json:"name"`
		} `json:"employees"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if body.Type != "employee_data" || len(body.Employees) != 1 || body.Employees[0].Name != "Ada" {
		t.Errorf("unexpected response %+v", body)
	}
}

func TestEmployeesRegister(t *testing.T) {
	det := &stubDetector{detections: []facecap.Detection{
		{FaceIndex: 0, Dim: 3, Embedding: []float32{1, 0, 0}, DetScore: 0.99},
	}}
	st, pipe, _ := newTestStack(det)
	r := employeesRouter(NewEmployeesHandler(st, pipe))

	payload := `{"employee_id":"E001","name":"Ada Lovelace","image":"` + testImageBase64(t) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/employees", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d; want 201: %s", rec.Code, rec.Body.String())
	}
	if _, err := st.GetByEmployeeID(context.Background(), "E001"); err != nil {
		t.Errorf("employee not created: %v", err)
	}

	// Same face again under a new ID hits the duplicate guard.
	payload = `{"employee_id":"E002","name":"Impostor","image":"` + testImageBase64(t) + `"}`
	req = httptest.NewRequest(http.MethodPost, "/employees", strings.NewReader(payload))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate face status = %d; want 409: %s", rec.Code, rec.Body.String())
	}
}

func TestEmployeesRegisterValidation(t *testing.T) {
	st, pipe, _ := newTestStack(&stubDetector{})
	r := employeesRouter(NewEmployeesHandler(st, pipe))

	tests := []struct {
		name    string
		payload string
		want    int
	}{
		{"MissingName", `{"employee_id":"E001","image":"aGk="}`, http.StatusBadRequest},
		{"BadJSON", `{`, http.StatusBadRequest},
		{"BadImage", `{"employee_id":"E001","name":"Ada","image":"!!!"}`, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/employees", strings.NewReader(tc.payload))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Errorf("status = %d; want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestEmployeesDelete(t *testing.T) {
	st, pipe, _ := newTestStack(&stubDetector{})
	st.AddEmployee(store.Employee{EmployeeID: "E001", Name: "Ada", Embedding: []float32{1, 0, 0}, Active: true})

	r := employeesRouter(NewEmployeesHandler(st, pipe))

	req := httptest.NewRequest(http.MethodDelete, "/employees/E001", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/employees/E001", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d; want 404", rec.Code)
	}
}
