// Package queue implements the classifier's bounded work queue and
// in-flight dedup set, spec.md §4.3: max depth 1000, drop silently
// (but logged) on overflow, one task per (name, domain) in flight at
// a time.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/cookiesolver/cookiesolver/internal/logger"
)

// Priority distinguishes passive auto-processor submissions from the
// manual bulk replay_history operation, spec.md §4.3.
type Priority string

const (
	PriorityAuto   Priority = "Auto"
	PriorityManual Priority = "Manual"
)

// DefaultCapacity is the queue's max depth, spec.md §4.3.
const DefaultCapacity = 1000

// PollTimeout bounds how long a worker's Dequeue blocks before
// checking for shutdown, spec.md §5.
const PollTimeout = 1 * time.Second

// Task is one classification request.
type Task struct {
	Name         string
	Domain       string
	Priority     Priority
	ForceRefresh bool
}

// Identity is the dedup key: two tasks for the same (name, domain)
// collapse to one in-flight entry, spec.md §5.
func (t Task) Identity() string { return t.Name + "|" + t.Domain }

// Queue is the bounded FIFO plus in-flight set. Safe for concurrent
// Submit/Dequeue/Done from multiple goroutines.
type Queue struct {
	ch  chan Task
	log logger.Logger

	mu       sync.Mutex
	inFlight map[string]bool

	dropped  int64
	enqueued int64
}

func New(capacity int, log logger.Logger) *Queue {
	if capacity <= 0 || capacity > DefaultCapacity {
		capacity = DefaultCapacity
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Queue{
		ch:       make(chan Task, capacity),
		log:      log,
		inFlight: make(map[string]bool),
	}
}

// Submit implements spec.md §4.3's two-step submit(t): dedup against
// in-flight, then a non-blocking enqueue attempt. Returns true if the
// task was accepted (either newly queued, or already in flight).
func (q *Queue) Submit(t Task) bool {
	identity := t.Identity()

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.inFlight[identity] {
		return true // already queued or processing; dedup
	}

	// The channel send stays under q.mu: it's non-blocking (select
	// default), so holding the lock here can't deadlock, and it closes
	// the TOCTOU window between the inFlight check and the enqueue.
	select {
	case q.ch <- t:
		q.inFlight[identity] = true
		q.enqueued++
		return true
	default:
		q.dropped++
		q.log.Warn("queue overflow, dropping task", "name", t.Name, "domain", t.Domain)
		return false
	}
}

// Dequeue waits up to PollTimeout for a task, returning (Task, true)
// on success or (Task{}, false) on timeout/ctx cancellation so the
// worker can check for shutdown, spec.md §4.3 and §5.
func (q *Queue) Dequeue(ctx context.Context) (Task, bool) {
	timer := time.NewTimer(PollTimeout)
	defer timer.Stop()

	select {
	case t := <-q.ch:
		return t, true
	case <-timer.C:
		return Task{}, false
	case <-ctx.Done():
		return Task{}, false
	}
}

// Done removes identity from the in-flight set once a worker finishes
// processing it (successfully or not).
func (q *Queue) Done(identity string) {
	q.mu.Lock()
	delete(q.inFlight, identity)
	q.mu.Unlock()
}

// Len reports the number of queued-but-not-dequeued tasks.
func (q *Queue) Len() int { return len(q.ch) }

// InFlightCount reports tasks currently queued or being processed.
func (q *Queue) InFlightCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.inFlight)
}

// Dropped reports how many submissions were rejected for overflow.
func (q *Queue) Dropped() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
