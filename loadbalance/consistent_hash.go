package loadbalance

import (
	"fmt"
	"hash/crc32"
	"httprpc/rpcerr"
	"sort"
	"strings"
	"sync"
)

// ConsistentHashBalancer maps keys to endpoints using a hash ring.
// The same key always maps to the same endpoint (until the endpoint set changes),
// which gives a method affinity to one server, useful for services holding state.
//
// Virtual nodes: each real endpoint is mapped to N virtual nodes on the ring.
// Without virtual nodes, 3 endpoints might cluster together on the ring,
// causing uneven load distribution. 100 virtual nodes per endpoint ensures
// statistical uniformity.
//
//	Hash Ring:
//	                  0
//	                ╱   ╲
//	              ╱       ╲
//	         B ●               ● A
//	           │    key ◆──►   │   (clockwise to nearest node → A)
//	         C ●               ● A' (virtual node of A)
//	              ╲       ╱
//	                ╲   ╱
type ConsistentHashBalancer struct {
	mu       sync.Mutex
	replicas int               // Virtual nodes per real endpoint
	ring     []uint32          // Sorted hash values on the ring
	nodes    map[uint32]string // Hash value → endpoint URL
	members  string            // Fingerprint of the endpoint set the ring was built from
}

// NewConsistentHashBalancer creates a hash ring with 100 virtual nodes per endpoint.
func NewConsistentHashBalancer() *ConsistentHashBalancer {
	return &ConsistentHashBalancer{
		replicas: 100,
		nodes:    make(map[uint32]string),
	}
}

// Pick finds the endpoint responsible for key. The ring is rebuilt whenever the
// endpoint set differs from the one it was last built from.
func (b *ConsistentHashBalancer) Pick(endpoints []Endpoint, key string) (*Endpoint, error) {
	if len(endpoints) == 0 {
		return nil, rpcerr.ErrNoEndpoint
	}

	b.mu.Lock()
	if fp := fingerprint(endpoints); fp != b.members {
		b.rebuild(endpoints)
		b.members = fp
	}
	hash := crc32.ChecksumIEEE([]byte(key))

	// Binary search: find first node with hash >= key's hash
	idx := sort.Search(len(b.ring), func(i int) bool {
		return b.ring[i] >= hash
	})
	// Wrap around: if key's hash > all nodes, go to the first node
	if idx == len(b.ring) {
		idx = 0
	}
	url := b.nodes[b.ring[idx]]
	b.mu.Unlock()

	for i := range endpoints {
		if endpoints[i].URL == url {
			return &endpoints[i], nil
		}
	}
	return nil, fmt.Errorf("consistent hash: endpoint %s vanished", url)
}

func (b *ConsistentHashBalancer) Name() string {
	return "ConsistentHash"
}

// rebuild places every endpoint onto a fresh ring with N virtual nodes each.
// Each virtual node is hashed from "{url}#{i}" to spread evenly across the ring.
func (b *ConsistentHashBalancer) rebuild(endpoints []Endpoint) {
	b.ring = b.ring[:0]
	b.nodes = make(map[uint32]string, len(endpoints)*b.replicas)
	for _, e := range endpoints {
		for i := 0; i < b.replicas; i++ {
			hash := crc32.ChecksumIEEE([]byte(fmt.Sprintf("%s#%d", e.URL, i)))
			b.ring = append(b.ring, hash)
			b.nodes[hash] = e.URL
		}
	}
	// Keep the ring sorted for binary search in Pick()
	sort.Slice(b.ring, func(i, j int) bool {
		return b.ring[i] < b.ring[j]
	})
}

func fingerprint(endpoints []Endpoint) string {
	urls := make([]string, len(endpoints))
	for i, e := range endpoints {
		urls[i] = e.URL
	}
	sort.Strings(urls)
	return strings.Join(urls, "\x00")
}
