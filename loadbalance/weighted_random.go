package loadbalance

import (
	"httprpc/rpcerr"
	"math/rand"
)

// WeightedRandomBalancer picks an endpoint with probability proportional to its
// weight. Endpoints with a weight <= 0 count as weight 1.
type WeightedRandomBalancer struct{}

func (b *WeightedRandomBalancer) Pick(endpoints []Endpoint, key string) (*Endpoint, error) {
	if len(endpoints) == 0 {
		return nil, rpcerr.ErrNoEndpoint
	}

	// Sum the weights
	totalWeight := 0
	for _, v := range endpoints {
		totalWeight += weightOf(v)
	}

	// Draw in [0, totalWeight) and walk the list until it drops below zero
	r := rand.Intn(totalWeight)
	for i := range endpoints {
		r -= weightOf(endpoints[i])
		if r < 0 {
			return &endpoints[i], nil
		}
	}

	return &endpoints[len(endpoints)-1], nil
}

func (b *WeightedRandomBalancer) Name() string {
	return "WeightedRandom"
}

func weightOf(e Endpoint) int {
	if e.Weight <= 0 {
		return 1
	}
	return e.Weight
}
