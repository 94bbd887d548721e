package loadbalance

import (
	"fmt"
	"httprpc/rpcerr"
	"sync"
	"testing"

	"github.com/pkg/errors"
)

var testEndpoints = []Endpoint{
	{URL: "http://127.0.0.1:8001/svc", Weight: 10},
	{URL: "http://127.0.0.1:8002/svc", Weight: 5},
	{URL: "http://127.0.0.1:8003/svc", Weight: 10},
}

func TestRoundRobin(t *testing.T) {
	b := &RoundRobinBalancer{}

	// Pick 3 times, should cycle through all endpoints
	results := make([]string, 3)
	for i := 0; i < 3; i++ {
		e, err := b.Pick(testEndpoints, "add")
		if err != nil {
			t.Fatal(err)
		}
		results[i] = e.URL
	}
	if results[0] == results[1] || results[1] == results[2] || results[0] == results[2] {
		t.Fatalf("expect 3 distinct endpoints, got %v", results)
	}

	// Pick again, should wrap around to first
	e, _ := b.Pick(testEndpoints, "add")
	if e.URL != results[0] {
		t.Fatalf("expect wrap around to %s, got %s", results[0], e.URL)
	}
}

func TestEmptyEndpoints(t *testing.T) {
	for _, b := range []Balancer{&RoundRobinBalancer{}, &WeightedRandomBalancer{}, NewConsistentHashBalancer()} {
		_, err := b.Pick(nil, "add")
		if !errors.Is(err, rpcerr.ErrNoEndpoint) {
			t.Fatalf("%s: expect ErrNoEndpoint, got %v", b.Name(), err)
		}
	}
}

func TestRoundRobinConcurrent(t *testing.T) {
	b := &RoundRobinBalancer{}
	var mu sync.Mutex
	counts := map[string]int{}

	var wg sync.WaitGroup
	for i := 0; i < 300; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := b.Pick(testEndpoints, "add")
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			counts[e.URL]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	for _, e := range testEndpoints {
		if counts[e.URL] != 100 {
			t.Fatalf("expect 100 picks each, got %v", counts)
		}
	}
}

func TestWeightedRandom(t *testing.T) {
	b := &WeightedRandomBalancer{}

	counts := map[string]int{}
	n := 10000
	for i := 0; i < n; i++ {
		e, err := b.Pick(testEndpoints, "add")
		if err != nil {
			t.Fatal(err)
		}
		counts[e.URL]++
	}

	// Weight ratio is 10:5:10, so :8001 and :8003 should be ~2x of :8002
	ratio := float64(counts[testEndpoints[0].URL]) / float64(counts[testEndpoints[1].URL])
	if ratio < 1.5 || ratio > 2.5 {
		t.Fatalf("weight ratio :8001/:8002 = %.2f, expect ~2.0", ratio)
	}
}

func TestWeightedRandomZeroWeights(t *testing.T) {
	b := &WeightedRandomBalancer{}
	endpoints := []Endpoint{{URL: "a"}, {URL: "b"}}
	for i := 0; i < 100; i++ {
		if _, err := b.Pick(endpoints, "add"); err != nil {
			t.Fatal(err)
		}
	}
}

func TestConsistentHash(t *testing.T) {
	b := NewConsistentHashBalancer()

	// Same key should always map to the same endpoint
	e1, _ := b.Pick(testEndpoints, "getValue")
	e2, _ := b.Pick(testEndpoints, "getValue")
	if e1.URL != e2.URL {
		t.Fatalf("same key mapped to different endpoints: %s vs %s", e1.URL, e2.URL)
	}

	// Different keys should (likely) map to different endpoints
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		e, _ := b.Pick(testEndpoints, fmt.Sprintf("method-%d", i))
		seen[e.URL] = true
	}

	// With 100 different keys and 3 nodes, we should hit at least 2
	if len(seen) < 2 {
		t.Fatalf("expect at least 2 different endpoints, got %d", len(seen))
	}
}

func TestConsistentHashRebuildsOnChange(t *testing.T) {
	b := NewConsistentHashBalancer()
	if _, err := b.Pick(testEndpoints, "add"); err != nil {
		t.Fatal(err)
	}

	// Shrinking the set must never return an endpoint outside it
	only := testEndpoints[2:]
	for i := 0; i < 50; i++ {
		e, err := b.Pick(only, fmt.Sprintf("method-%d", i))
		if err != nil {
			t.Fatal(err)
		}
		if e.URL != only[0].URL {
			t.Fatalf("expect %s, got %s", only[0].URL, e.URL)
		}
	}
}
