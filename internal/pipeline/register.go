package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/facecap"
	"github.com/kozaktomas/face-attendance/internal/hub"
	"github.com/kozaktomas/face-attendance/internal/store"
)

// ErrNoFaceDetected rejects an enrollment image without a detectable face.
var ErrNoFaceDetected = errors.New("no face detected in enrollment image")

// ErrEmployeeExists rejects enrollment under an already-used employee ID.
var ErrEmployeeExists = errors.New("employee ID already registered")

// DuplicateFaceError rejects an embedding that matches an already-enrolled
// face above the match threshold (duplicate-identity guard).
type DuplicateFaceError struct {
	EmployeeID string
	Similarity float64
}

func (e *DuplicateFaceError) Error() string {
	return fmt.Sprintf("face already enrolled as %s (similarity %.2f)", e.EmployeeID, e.Similarity)
}

// RegisterEmployee enrolls a new employee from an image. The embedding is
// captured once here; registration fails when the best similarity against
// any existing employee exceeds the match threshold.
func (p *Pipeline) RegisterEmployee(ctx context.Context, employeeID, name string, image []byte, shiftID *int64) (*store.Employee, error) {
	if existing, err := p.employees.GetByEmployeeID(ctx, employeeID); err == nil && existing != nil {
		return nil, ErrEmployeeExists
	} else if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("checking employee ID: %w", err)
	}

	resized, err := facecap.ResizeImage(image, constants.MaxImageSize)
	if err != nil {
		return nil, fmt.Errorf("decoding enrollment image: %w", err)
	}

	faces, err := p.faces.DetectAndEmbed(ctx, resized)
	if err != nil {
		return nil, fmt.Errorf("face detection: %w", err)
	}
	if len(faces) == 0 {
		return nil, ErrNoFaceDetected
	}

	// With several faces in the enrollment shot, take the strongest detection.
	best := faces[0]
	for _, f := range faces[1:] {
		if f.DetScore > best.DetScore {
			best = f
		}
	}

	// Duplicate-identity guard reads the store directly, not the TTL cache:
	// a stale roster here could let the same face enroll twice.
	r, err := p.fetchRoster(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading enrolled faces: %w", err)
	}
	matches := p.matcher.FindMatches([][]float32{best.Embedding}, r.candidates, p.threshold)
	if len(matches) > 0 {
		return nil, &DuplicateFaceError{EmployeeID: matches[0].EmployeeID, Similarity: matches[0].Similarity}
	}

	created, err := p.employees.Create(ctx, &store.Employee{
		EmployeeID: employeeID,
		Name:       name,
		Embedding:  best.Embedding,
		ShiftID:    shiftID,
		Active:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating employee: %w", err)
	}

	if err := p.RebuildIndex(ctx); err != nil {
		return nil, fmt.Errorf("rebuilding candidate index: %w", err)
	}

	p.EnqueueBroadcast(hub.NewAttendanceUpdate("register_employee", created.EmployeeID, created.Name, time.Now(), 0))
	return created, nil
}

// DeleteEmployee removes an enrolled employee and announces the change.
func (p *Pipeline) DeleteEmployee(ctx context.Context, employeeID string) error {
	emp, err := p.employees.GetByEmployeeID(ctx, employeeID)
	if err != nil {
		return err
	}
	if err := p.employees.Delete(ctx, emp.ID); err != nil {
		return fmt.Errorf("deleting employee: %w", err)
	}

	if err := p.RebuildIndex(ctx); err != nil {
		return fmt.Errorf("rebuilding candidate index: %w", err)
	}

	p.EnqueueBroadcast(hub.NewAttendanceUpdate("delete_employee", emp.EmployeeID, emp.Name, time.Now(), 0))
	return nil
}
