// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Face matching constants
const (
	// DefaultMatchThreshold is the minimum cosine similarity required to
	// accept a candidate as a match for a detected face
	DefaultMatchThreshold = 0.6

	// DefaultEmbeddingDim is the expected dimension of face embeddings
	DefaultEmbeddingDim = 512

	// HNSWCandidateLimit is how many nearest neighbors the HNSW index returns
	// as a candidate prefilter before exact scoring
	HNSWCandidateLimit = 16
)

// Attendance decision constants
const (
	// DefaultAutoExitThreshold is the minimum gap between an open entry and a
	// re-detection before the re-detection closes the day as an exit.
	// Re-detections inside the window only bump the stored confidence.
	DefaultAutoExitThreshold = 2 * time.Hour

	// OvernightShiftWindow decides when a scheduled login far ahead of the
	// punch is treated as belonging to the previous day. Strictly greater
	// than the window shifts the schedule back; exactly at the boundary it
	// stays on the same day.
	OvernightShiftWindow = 12 * time.Hour
)

// Pipeline constants
const (
	// MaxPendingPerConnection bounds in-flight frame tasks per connection.
	// Frames beyond the bound are rejected, never queued.
	MaxPendingPerConnection = 2

	// ResultQueueBuffer is the buffer size of the result delivery queue
	ResultQueueBuffer = 64

	// BroadcastQueueBuffer is the buffer size of the broadcast event queue
	BroadcastQueueBuffer = 64

	// MemoryHeadroomBytes is the heap size above which new frame work is
	// rejected with an overloaded status
	MemoryHeadroomBytes = 1 << 30
)

// Cache constants
const (
	// EmployeeCacheTTL bounds staleness of the employee roster cache
	EmployeeCacheTTL = 30 * time.Second

	// ShiftCacheTTL bounds staleness of the per-employee shift lookup cache.
	// Shorter than the settings TTL: shift assignments change during the day,
	// the global office timing rarely does.
	ShiftCacheTTL = 30 * time.Second

	// SettingsCacheTTL bounds staleness of the timezone/office-timing cache
	SettingsCacheTTL = 5 * time.Minute
)

// Connection constants
const (
	// KeepaliveInterval is how often the write loop pings each connection
	KeepaliveInterval = 30 * time.Second

	// WriteTimeout is the per-message write deadline on a connection
	WriteTimeout = 10 * time.Second

	// SendBuffer is the per-connection outbound channel buffer
	SendBuffer = 32

	// MaxFrameBytes is the maximum accepted inbound message size (base64
	// frames from cameras can be large)
	MaxFrameBytes = 8 << 20
)

// Image constants
const (
	// MaxImageSize is the maximum dimension (width or height) a frame is
	// downscaled to before it is sent to the face capability
	MaxImageSize = 1280
)
