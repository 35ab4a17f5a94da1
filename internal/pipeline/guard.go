package pipeline

import (
	"runtime"
)

// memoryGuard short-circuits frame processing when the process is low on
// headroom, so callers get a distinct "overloaded" status instead of slow
// failures. Checked at admission and again inside each work unit.
type memoryGuard struct {
	limitBytes uint64
}

func newMemoryGuard(limitBytes uint64) *memoryGuard {
	return &memoryGuard{limitBytes: limitBytes}
}

// exceeded reports whether the heap is past the configured limit.
func (g *memoryGuard) exceeded() bool {
	if g.limitBytes == 0 {
		return false
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc > g.limitBytes
}

// cleanup is the best-effort pass after each work unit: decoded buffers are
// released by the caller dropping references; when the heap is past half
// the limit a collection is forced to return memory sooner.
func (g *memoryGuard) cleanup() {
	if g.limitBytes == 0 {
		return
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	if ms.HeapAlloc > g.limitBytes/2 {
		runtime.GC()
	}
}
