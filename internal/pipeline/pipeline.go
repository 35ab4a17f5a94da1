// Package pipeline is the orchestration layer of the matching system:
// admission control, the CPU-bound worker pool, the result and broadcast
// queues, and per-connection bookkeeping.
package pipeline

import (
	"context"
	"errors"
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/cache"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/facecap"
	"github.com/kozaktomas/face-attendance/internal/hub"
	"github.com/kozaktomas/face-attendance/internal/match"
	"github.com/kozaktomas/face-attendance/internal/notify"
	"github.com/kozaktomas/face-attendance/internal/store"
)

// ErrTooManyPending rejects a frame when the connection's in-flight bound
// is reached. Work is never queued past the bound.
var ErrTooManyPending = errors.New("too many pending tasks")

// ErrOverloaded rejects a frame when the process is out of memory headroom.
var ErrOverloaded = errors.New("system overloaded")

// ErrStopped rejects work after shutdown.
var ErrStopped = errors.New("pipeline stopped")

// FaceDetector is the face capability consumed by the pipeline.
type FaceDetector interface {
	DetectAndEmbed(ctx context.Context, imageData []byte) ([]facecap.Detection, error)
}

// Options configures a Pipeline.
type Options struct {
	Workers        int           // worker pool size, 0 = NumCPU
	MaxPending     int           // per-connection in-flight bound, 0 = default
	MatchThreshold float64       // minimum similarity to accept a match
	MemoryLimit    uint64        // heap bytes before the overload guard trips, 0 = default
	RosterTTL      time.Duration // TTL of the cached candidate roster, 0 = default
}

// roster is the cached candidate set with an employee lookup side table.
type roster struct {
	candidates []match.Candidate
	byID       map[string]store.Employee
}

// Pipeline ties the matcher, the decision engine and the hub together.
type Pipeline struct {
	employees store.EmployeeStore
	engine    *attendance.Engine
	matcher   *match.Matcher
	index     *match.Index
	faces     FaceDetector
	conns     *hub.Hub
	notifier  notify.Notifier
	guard     *memoryGuard

	threshold float64
	rosterVal *cache.Value[roster]

	pending    *pendingTasks
	tasks      chan *task
	results    chan *taskResult
	broadcasts chan hub.AttendanceUpdate

	workers int
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	stopped chan struct{}
}

// task is one unit of CPU-bound work: decode, detect, match, decide.
type task struct {
	id     string
	connID string
	image  []byte
}

// taskResult flows back through the result queue to the owning connection.
type taskResult struct {
	connID string
	ack    hub.DetectionResult
	notes  []hub.Notification
	events []hub.AttendanceUpdate
}

// New creates a pipeline. Call Start before submitting work.
func New(
	employees store.EmployeeStore,
	engine *attendance.Engine,
	matcher *match.Matcher,
	index *match.Index,
	faces FaceDetector,
	conns *hub.Hub,
	notifier notify.Notifier,
	opts Options,
) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.MaxPending <= 0 {
		opts.MaxPending = constants.MaxPendingPerConnection
	}
	if opts.MemoryLimit == 0 {
		opts.MemoryLimit = constants.MemoryHeadroomBytes
	}
	if opts.RosterTTL <= 0 {
		opts.RosterTTL = constants.EmployeeCacheTTL
	}

	p := &Pipeline{
		employees:  employees,
		engine:     engine,
		matcher:    matcher,
		index:      index,
		faces:      faces,
		conns:      conns,
		notifier:   notifier,
		guard:      newMemoryGuard(opts.MemoryLimit),
		threshold:  opts.MatchThreshold,
		pending:    newPendingTasks(opts.MaxPending),
		tasks:      make(chan *task, opts.Workers*2),
		results:    make(chan *taskResult, constants.ResultQueueBuffer),
		broadcasts: make(chan hub.AttendanceUpdate, constants.BroadcastQueueBuffer),
		workers:    opts.Workers,
		stopped:    make(chan struct{}),
	}

	p.rosterVal = cache.NewValue(opts.RosterTTL, roster{byID: map[string]store.Employee{}},
		func(ctx context.Context) (roster, error) {
			return p.fetchRoster(ctx)
		})

	return p
}

// Start launches the worker pool and the two consumer loops.
func (p *Pipeline) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}

	p.wg.Add(2)
	go p.resultLoop(ctx)
	go p.broadcastLoop(ctx)
}

// Stop shuts the pipeline down. Already-started work runs to completion;
// queued-but-unstarted tasks are dropped.
func (p *Pipeline) Stop() {
	close(p.stopped)
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// Submit runs admission control and dispatches a frame to the worker pool.
// Rejection is explicit: ErrTooManyPending when the connection's in-flight
// bound is reached, ErrOverloaded when memory headroom is gone.
func (p *Pipeline) Submit(connID string, image []byte) error {
	select {
	case <-p.stopped:
		return ErrStopped
	default:
	}

	if p.guard.exceeded() {
		return ErrOverloaded
	}

	t := &task{
		id:     uuid.NewString(),
		connID: connID,
		image:  image,
	}

	if !p.pending.tryAcquire(connID, t.id) {
		return ErrTooManyPending
	}

	select {
	case p.tasks <- t:
		return nil
	default:
		// The worker queue itself is saturated; release the slot we took.
		p.pending.release(t.id)
		return ErrOverloaded
	}
}

// PendingCount reports a connection's in-flight tasks (for tests and stats).
func (p *Pipeline) PendingCount(connID string) int {
	return p.pending.count(connID)
}

// worker drains the task queue. The completion path (counter decrement,
// bookkeeping removal, result enqueue, cleanup) runs unconditionally for
// success, business failure and infrastructure failure alike.
func (p *Pipeline) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-p.tasks:
			res := p.runTask(ctx, t)

			p.pending.release(t.id)
			t.image = nil
			p.guard.cleanup()

			select {
			case p.results <- res:
			default:
				log.Printf("result queue full, dropping result for connection %s", res.connID)
			}

			for _, ev := range res.events {
				select {
				case p.broadcasts <- ev:
				default:
					log.Printf("broadcast queue full, dropping %s event", ev.Action)
				}
			}
		}
	}
}

// resultLoop is the single consumer of the result queue. It resolves the
// owning connection and sends the personalized acknowledgment, or drops
// the result when the connection is gone. Results arrive in completion
// order, not submission order.
func (p *Pipeline) resultLoop(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case res := <-p.results:
			conn := p.conns.Get(res.connID)
			if conn == nil {
				continue
			}
			if err := conn.Send(res.ack); err != nil {
				log.Printf("failed to deliver result to connection %s: %v", res.connID, err)
				continue
			}
			for _, note := range res.notes {
				if err := conn.Send(note); err != nil {
					log.Printf("failed to deliver notification to connection %s: %v", res.connID, err)
					break
				}
			}
		}
	}
}

// broadcastLoop is the single consumer of the broadcast queue. Only
// state-changing events reach it; informational outcomes stay personalized.
func (p *Pipeline) broadcastLoop(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-p.broadcasts:
			p.conns.Broadcast(ev)
		}
	}
}

// EnqueueBroadcast puts an administrative event (delete, register) onto the
// broadcast queue so it shares ordering with pipeline events.
func (p *Pipeline) EnqueueBroadcast(ev hub.AttendanceUpdate) {
	select {
	case p.broadcasts <- ev:
	default:
		log.Printf("broadcast queue full, dropping %s event", ev.Action)
	}
}

// fetchRoster loads the active employee set from the store.
func (p *Pipeline) fetchRoster(ctx context.Context) (roster, error) {
	emps, err := p.employees.ListActive(ctx)
	if err != nil {
		return roster{}, err
	}
	r := roster{
		candidates: make([]match.Candidate, 0, len(emps)),
		byID:       make(map[string]store.Employee, len(emps)),
	}
	for _, emp := range emps {
		if len(emp.Embedding) == 0 {
			continue
		}
		r.candidates = append(r.candidates, match.Candidate{EmployeeID: emp.EmployeeID, Embedding: emp.Embedding})
		r.byID[emp.EmployeeID] = emp
	}
	return r, nil
}

// RebuildIndex refreshes the HNSW candidate index from the store. Called at
// startup and after enrollment changes.
func (p *Pipeline) RebuildIndex(ctx context.Context) error {
	if p.index == nil {
		return nil
	}
	r, err := p.fetchRoster(ctx)
	if err != nil {
		return err
	}
	return p.index.Build(r.candidates)
}

// pendingTasks is the cross-worker admission-control bookkeeping: one mutex
// guards the whole structure and every check-then-set holds it end to end.
type pendingTasks struct {
	bound  int
	mu     sync.Mutex
	counts map[string]int
	owners map[string]string // task ID -> connection ID
}

func newPendingTasks(bound int) *pendingTasks {
	return &pendingTasks{
		bound:  bound,
		counts: make(map[string]int),
		owners: make(map[string]string),
	}
}

// tryAcquire reserves an in-flight slot, or reports false at the bound.
func (p *pendingTasks) tryAcquire(connID, taskID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.counts[connID] >= p.bound {
		return false
	}
	p.counts[connID]++
	p.owners[taskID] = connID
	return true
}

// release frees a slot and removes the task's bookkeeping entry. It runs on
// every completion path so a failure can never lock a connection out.
func (p *pendingTasks) release(taskID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	connID, ok := p.owners[taskID]
	if !ok {
		return
	}
	delete(p.owners, taskID)
	if p.counts[connID] <= 1 {
		delete(p.counts, connID)
	} else {
		p.counts[connID]--
	}
}

func (p *pendingTasks) count(connID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[connID]
}
