package server

import (
	"sync"
	"testing"
	"time"
)

func TestTracker(t *testing.T) {
	tr := newTracker()

	a, ok := tr.begin()
	if !ok {
		t.Fatal("expect begin to succeed")
	}
	b, _ := tr.begin()
	c, _ := tr.begin()
	if got := tr.stats().InFlight; got != 3 {
		t.Fatalf("expect 3 in flight, got %d", got)
	}

	a.finish(outcomeCompleted)
	a.finish(outcomeFaulted) // ignored
	b.finish(outcomeFaulted)
	c.finish(outcomeCanceled)

	tr.close()
	if _, ok := tr.begin(); ok {
		t.Fatal("expect begin to fail after close")
	}

	want := Stats{Completed: 1, Faulted: 1, Canceled: 1, Rejected: 1}
	if got := tr.stats(); got != want {
		t.Fatalf("expect %+v, got %+v", want, got)
	}
	if !tr.wait(time.Second) {
		t.Fatal("expect wait to succeed with nothing in flight")
	}
}

func TestTrackerWaitTimeout(t *testing.T) {
	tr := newTracker()
	d, _ := tr.begin()

	if tr.wait(50 * time.Millisecond) {
		t.Fatal("expect wait to time out")
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		d.finish(outcomeCompleted)
	}()
	if !tr.wait(time.Second) {
		t.Fatal("expect wait to see the dispatch finish")
	}
}

func TestTrackerConcurrent(t *testing.T) {
	tr := newTracker()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d, ok := tr.begin(); ok {
				d.finish(outcomeCompleted)
			}
		}()
	}
	go tr.close()
	wg.Wait()

	s := tr.stats()
	if s.InFlight != 0 || s.Completed+s.Rejected != 100 {
		t.Fatalf("unexpected stats %+v", s)
	}
}
