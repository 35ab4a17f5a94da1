package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/facecap"
	"github.com/kozaktomas/face-attendance/internal/hub"
	"github.com/kozaktomas/face-attendance/internal/match"
	"github.com/kozaktomas/face-attendance/internal/store"
	"github.com/kozaktomas/face-attendance/internal/store/mock"
)

// fakeDetector is a controllable FaceDetector. With block set, calls wait
// until the channel is closed, which keeps tasks in flight for the
// admission-control tests.
type fakeDetector struct {
	mu         sync.Mutex
	detections []facecap.Detection
	err        error
	block      chan struct{}
	calls      int
}

func (f *fakeDetector) DetectAndEmbed(ctx context.Context, imageData []byte) ([]facecap.Detection, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.detections, nil
}

func (f *fakeDetector) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testImage(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 16, 16))); err != nil {
		t.Fatalf("encoding test image: %v", err)
	}
	return buf.Bytes()
}

func unitDetection(embedding []float32) facecap.Detection {
	return facecap.Detection{FaceIndex: 0, Dim: len(embedding), Embedding: embedding, DetScore: 0.99}
}

func newTestEngine(st *mock.Store) *attendance.Engine {
	return attendance.NewEngine(st, st, st,
		2*time.Hour, time.Minute, time.Minute,
		"UTC", store.OfficeTiming{LoginTime: "09:00", LogoutTime: "18:00"})
}

func newTestPipeline(st *mock.Store, faces FaceDetector, opts Options) *Pipeline {
	if opts.MatchThreshold == 0 {
		opts.MatchThreshold = 0.6
	}
	return New(st, newTestEngine(st), match.New(2), nil, faces, hub.New(), nil, opts)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSubmitRespectsInFlightBound(t *testing.T) {
	st := mock.New()
	det := &fakeDetector{block: make(chan struct{})}
	p := newTestPipeline(st, det, Options{Workers: 4, MaxPending: 2})

	p.Start(context.Background())
	defer p.Stop()

	img := testImage(t)
	if err := p.Submit("cam-1", img); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if err := p.Submit("cam-1", img); err != nil {
		t.Fatalf("second submit: %v", err)
	}

	// The third frame must be rejected, not queued.
	if err := p.Submit("cam-1", img); !errors.Is(err, ErrTooManyPending) {
		t.Fatalf("third submit = %v; want ErrTooManyPending", err)
	}

	// The bound is per connection, so another connection still gets in.
	if err := p.Submit("cam-2", img); err != nil {
		t.Fatalf("submit from second connection: %v", err)
	}

	close(det.block)
	waitFor(t, "in-flight tasks to drain", func() bool {
		return p.PendingCount("cam-1") == 0 && p.PendingCount("cam-2") == 0
	})

	// Slots freed on completion; the connection can submit again.
	if err := p.Submit("cam-1", img); err != nil {
		t.Fatalf("submit after drain: %v", err)
	}
}

func TestFailedTaskReleasesSlot(t *testing.T) {
	st := mock.New()
	det := &fakeDetector{err: errors.New("detector down")}
	p := newTestPipeline(st, det, Options{Workers: 1, MaxPending: 1})

	p.Start(context.Background())
	defer p.Stop()

	img := testImage(t)
	if err := p.Submit("cam-1", img); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// A failing task must still run the completion path and free the slot.
	waitFor(t, "failed task to release its slot", func() bool {
		return p.PendingCount("cam-1") == 0
	})
	if err := p.Submit("cam-1", img); err != nil {
		t.Fatalf("submit after failure: %v", err)
	}
}

func TestSubmitAfterStop(t *testing.T) {
	st := mock.New()
	p := newTestPipeline(st, &fakeDetector{}, Options{Workers: 1})

	p.Start(context.Background())
	p.Stop()

	if err := p.Submit("cam-1", testImage(t)); !errors.Is(err, ErrStopped) {
		t.Errorf("Submit after Stop = %v; want ErrStopped", err)
	}
}

func TestFrameRecordsAttendance(t *testing.T) {
	st := mock.New()
	st.AddEmployee(store.Employee{EmployeeID: "E001", Name: "Ada", Embedding: []float32{1, 0, 0}, Active: true})

	det := &fakeDetector{detections: []facecap.Detection{unitDetection([]float32{1, 0, 0})}}
	p := newTestPipeline(st, det, Options{Workers: 1})

	p.Start(context.Background())
	defer p.Stop()

	if err := p.Submit("cam-1", testImage(t)); err != nil {
		t.Fatalf("submit: %v", err)
	}

	waitFor(t, "attendance record", func() bool {
		return st.RecordCount() == 1
	})
	if det.callCount() != 1 {
		t.Errorf("detector called %d times; want 1", det.callCount())
	}
}

func TestRegisterEmployee(t *testing.T) {
	st := mock.New()
	det := &fakeDetector{detections: []facecap.Detection{unitDetection([]float32{1, 0, 0})}}
	p := newTestPipeline(st, det, Options{})

	created, err := p.RegisterEmployee(context.Background(), "E001", "Ada Lovelace", testImage(t), nil)
	if err != nil {
		t.Fatalf("RegisterEmployee failed: %v", err)
	}
	if created.ID == 0 || created.EmployeeID != "E001" {
		t.Errorf("unexpected created employee %+v", created)
	}

	got, err := st.GetByEmployeeID(context.Background(), "E001")
	if err != nil {
		t.Fatalf("created employee not in store: %v", err)
	}
	if !got.Active || len(got.Embedding) != 3 {
		t.Errorf("stored employee %+v", got)
	}
}

func TestRegisterEmployeeDuplicateFace(t *testing.T) {
	st := mock.New()
	st.AddEmployee(store.Employee{EmployeeID: "E001", Name: "Ada", Embedding: []float32{1, 0, 0}, Active: true})

	det := &fakeDetector{detections: []facecap.Detection{unitDetection([]float32{1, 0, 0})}}
	p := newTestPipeline(st, det, Options{})

	_, err := p.RegisterEmployee(context.Background(), "E002", "Impostor", testImage(t), nil)
	var dup *DuplicateFaceError
	if !errors.As(err, &dup) {
		t.Fatalf("RegisterEmployee = %v; want DuplicateFaceError", err)
	}
	if dup.EmployeeID != "E001" {
		t.Errorf("duplicate matched %q; want E001", dup.EmployeeID)
	}
	if _, err := st.GetByEmployeeID(context.Background(), "E002"); !errors.Is(err, store.ErrNotFound) {
		t.Error("rejected enrollment must not create an employee")
	}
}

func TestRegisterEmployeeNoFace(t *testing.T) {
	st := mock.New()
	p := newTestPipeline(st, &fakeDetector{}, Options{})

	if _, err := p.RegisterEmployee(context.Background(), "E001", "Ada", testImage(t), nil); !errors.Is(err, ErrNoFaceDetected) {
		t.Errorf("RegisterEmployee = %v; want ErrNoFaceDetected", err)
	}
}

func TestRegisterEmployeeExistingID(t *testing.T) {
	st := mock.New()
	st.AddEmployee(store.Employee{EmployeeID: "E001", Name: "Ada", Embedding: []float32{1, 0, 0}, Active: true})

	det := &fakeDetector{detections: []facecap.Detection{unitDetection([]float32{0, 1, 0})}}
	p := newTestPipeline(st, det, Options{})

	if _, err := p.RegisterEmployee(context.Background(), "E001", "Ada Again", testImage(t), nil); !errors.Is(err, ErrEmployeeExists) {
		t.Errorf("RegisterEmployee = %v; want ErrEmployeeExists", err)
	}
}

func TestDeleteEmployee(t *testing.T) {
	st := mock.New()
	st.AddEmployee(store.Employee{EmployeeID: "E001", Name: "Ada", Embedding: []float32{1, 0, 0}, Active: true})

	p := newTestPipeline(st, &fakeDetector{}, Options{})
	if err := p.DeleteEmployee(context.Background(), "E001"); err != nil {
		t.Fatalf("DeleteEmployee failed: %v", err)
	}
	if _, err := st.GetByEmployeeID(context.Background(), "E001"); !errors.Is(err, store.ErrNotFound) {
		t.Error("employee still present after delete")
	}

	if err := p.DeleteEmployee(context.Background(), "E001"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("DeleteEmployee on missing = %v; want ErrNotFound", err)
	}
}
