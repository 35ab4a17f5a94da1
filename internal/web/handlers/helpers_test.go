package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/facecap"
	"github.com/kozaktomas/face-attendance/internal/hub"
	"github.com/kozaktomas/face-attendance/internal/match"
	"github.com/kozaktomas/face-attendance/internal/pipeline"
	"github.com/kozaktomas/face-attendance/internal/store"
	"github.com/kozaktomas/face-attendance/internal/store/mock"
)

// stubDetector returns a fixed detection set.
type stubDetector struct {
	detections []facecap.Detection
	err        error
}

func (s *stubDetector) DetectAndEmbed(ctx context.Context, imageData []byte) ([]facecap.Detection, error) {
	return s.detections, s.err
}

func testImageBase64(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 16, 16))); err != nil {
		t.Fatalf("encoding test image: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// newTestStack wires a mock store and a pipeline with the given detector.
func newTestStack(det pipeline.FaceDetector) (*mock.Store, *pipeline.Pipeline, *hub.Hub) {
	st := mock.New()
	engine := attendance.NewEngine(st, st, st,
		2*time.Hour, time.Minute, time.Minute,
		"UTC", store.OfficeTiming{LoginTime: "09:00", LogoutTime: "18:00"})
	h := hub.New()
	pipe := pipeline.New(st, engine, match.New(2), nil, det, h, nil, pipeline.Options{
		Workers:        1,
		MatchThreshold: 0.6,
	})
	return st, pipe, h
}
