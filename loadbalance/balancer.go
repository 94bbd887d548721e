// Package loadbalance provides strategies for spreading calls over a static set of
// endpoints serving the same service.
//
// Three strategies are implemented:
//   - RoundRobin:      Stateless services, equal-capacity endpoints
//   - WeightedRandom:  Heterogeneous endpoints (different CPU/memory)
//   - ConsistentHash:  Stateful services requiring affinity per method
package loadbalance

// Endpoint is one URL a call can be POSTed to.
type Endpoint struct {
	URL    string
	Weight int // Weight for WeightedRandom, ignored by the others
}

// Balancer is the interface for load balancing strategies.
// The client calls Pick() before each call to select a target endpoint.
type Balancer interface {
	// Pick selects one endpoint from the available list. key is the method name,
	// used by key-affine strategies.
	// Called on every call, must be goroutine-safe.
	Pick(endpoints []Endpoint, key string) (*Endpoint, error)

	// Name returns the strategy name (for logging/debugging).
	Name() string
}
