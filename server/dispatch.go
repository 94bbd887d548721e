package server

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stats is a snapshot of the dispatch counters of the current (or last) run.
type Stats struct {
	InFlight  int64  // dispatches not finished yet, the accept loop included
	Completed uint64 // answered with a success status
	Faulted   uint64 // answered with a failure status
	Canceled  uint64 // client went away before the answer was written
	Rejected  uint64 // arrived after shutdown began, answered 503
}

type outcome int

const (
	outcomeCompleted outcome = iota
	outcomeFaulted
	outcomeCanceled
)

// tracker is the supervised set of in-flight dispatches. The WaitGroup replaces
// a pruned list: finished work simply drops out of the count. mu guards only the
// closed flag together with wg.Add, so Add can never race with wait.
type tracker struct {
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	inFlight  atomic.Int64
	completed atomic.Uint64
	faulted   atomic.Uint64
	canceled  atomic.Uint64
	rejected  atomic.Uint64
}

func newTracker() *tracker {
	return &tracker{}
}

// dispatch is one tracked unit of work; finish must be called exactly once, extra
// calls are ignored.
type dispatch struct {
	t    *tracker
	once sync.Once
}

// begin registers a new dispatch, or reports false once shutdown closed the set.
func (t *tracker) begin() (*dispatch, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		t.rejected.Add(1)
		return nil, false
	}
	t.wg.Add(1)
	t.inFlight.Add(1)
	return &dispatch{t: t}, true
}

func (d *dispatch) finish(o outcome) {
	d.once.Do(func() {
		switch o {
		case outcomeCompleted:
			d.t.completed.Add(1)
		case outcomeFaulted:
			d.t.faulted.Add(1)
		case outcomeCanceled:
			d.t.canceled.Add(1)
		}
		d.t.inFlight.Add(-1)
		d.t.wg.Done()
	})
}

// close stops admitting new dispatches.
func (t *tracker) close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

// wait blocks until every dispatch finished or timeout elapsed, and reports
// whether all finished.
func (t *tracker) wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (t *tracker) stats() Stats {
	return Stats{
		InFlight:  t.inFlight.Load(),
		Completed: t.completed.Load(),
		Faulted:   t.faulted.Load(),
		Canceled:  t.canceled.Load(),
		Rejected:  t.rejected.Load(),
	}
}
