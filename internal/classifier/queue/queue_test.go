package queue

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cookiesolver/cookiesolver/internal/logger"
)

func newTestQueue(capacity int) *Queue {
	return New(capacity, logger.NewNop())
}

// S5 — submitting the same (name, domain) twice while the first is
// still in flight collapses to a single queued task.
func TestSubmitDedupsSameIdentityWhileInFlight(t *testing.T) {
	q := newTestQueue(10)
	t1 := Task{Name: "sid", Domain: "example.com", Priority: PriorityAuto}
	t2 := Task{Name: "sid", Domain: "example.com", Priority: PriorityAuto}

	assert.True(t, q.Submit(t1))
	assert.True(t, q.Submit(t2)) // deduped, not a second enqueue
	assert.Equal(t, 1, q.Len())
	assert.Equal(t, 1, q.InFlightCount())
}

// S5 — racing Submit calls for the same identity from many goroutines
// must still collapse to exactly one queued task: the inFlight check
// and the enqueue have to be one atomic critical section, not two.
func TestSubmitDedupsSameIdentityConcurrently(t *testing.T) {
	q := newTestQueue(64)
	task := Task{Name: "sid", Domain: "example.com", Priority: PriorityAuto}

	const racers = 32
	var wg sync.WaitGroup
	wg.Add(racers)
	for i := 0; i < racers; i++ {
		go func() {
			defer wg.Done()
			q.Submit(task)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, q.Len())
	assert.Equal(t, 1, q.InFlightCount())
	assert.Equal(t, int64(1), q.enqueued)
}

func TestSubmitDifferentDomainsNotDeduped(t *testing.T) {
	q := newTestQueue(10)
	assert.True(t, q.Submit(Task{Name: "sid", Domain: "a.com"}))
	assert.True(t, q.Submit(Task{Name: "sid", Domain: "b.com"}))
	assert.Equal(t, 2, q.Len())
}

func TestSubmitDropsOnOverflowAndCountsIt(t *testing.T) {
	q := newTestQueue(1)
	assert.True(t, q.Submit(Task{Name: "a", Domain: "x.com"}))
	assert.False(t, q.Submit(Task{Name: "b", Domain: "y.com"}))
	assert.Equal(t, int64(1), q.Dropped())
}

func TestDoneAllowsResubmissionOfSameIdentity(t *testing.T) {
	q := newTestQueue(10)
	task := Task{Name: "sid", Domain: "example.com"}
	require.True(t, q.Submit(task))

	got, ok := q.Dequeue(context.Background())
	require.True(t, ok)
	assert.Equal(t, task, got)

	q.Done(task.Identity())
	assert.Equal(t, 0, q.InFlightCount())
	assert.True(t, q.Submit(task)) // no longer deduped
	assert.Equal(t, 1, q.Len())
}

func TestDequeueReturnsFalseOnCancelledContext(t *testing.T) {
	q := newTestQueue(10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := q.Dequeue(ctx)
	assert.False(t, ok)
}
