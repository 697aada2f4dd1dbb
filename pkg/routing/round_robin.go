package routing

import "sync/atomic"

// RoundRobinStrategy implements weighted round-robin selection across
// up servers. It realizes the RR kind of the proxy's LB algorithm
// descriptor (spec §3, §6 init_server_map collaborator) for the static
// (non-dynamic-propagation) case.
//
// The strategy is thread-safe and uses an atomic counter for concurrent
// access. The counter is reset on overflow to prevent unbounded growth.
type RoundRobinStrategy struct {
	counter atomic.Int64
}

// NewRoundRobinStrategy creates a new round-robin strategy.
func NewRoundRobinStrategy() *RoundRobinStrategy {
	return &RoundRobinStrategy{}
}

// SelectServer selects the next server using weighted round-robin.
//
// Algorithm:
//  1. Filter to up servers
//  2. Build a weighted list (each server appears Weight() times)
//  3. Use atomic counter % list length to pick the index
func (s *RoundRobinStrategy) SelectServer(servers []ServerView, _ string) (ServerView, error) {
	up := filterUp(servers)
	if len(up) == 0 {
		return nil, ErrNoServersAvailable
	}
	if len(up) == 1 {
		return up[0], nil
	}

	weighted := buildWeightedList(up)
	if len(weighted) == 0 {
		weighted = up
	}

	n := s.counter.Add(1)
	if n > 1<<40 {
		s.counter.Store(0)
	}

	idx := int(n-1) % len(weighted)
	return weighted[idx], nil
}

// Name returns the strategy name.
func (s *RoundRobinStrategy) Name() string { return "roundrobin" }

// Reset zeroes the round-robin counter.
func (s *RoundRobinStrategy) Reset() { s.counter.Store(0) }

func filterUp(servers []ServerView) []ServerView {
	up := make([]ServerView, 0, len(servers))
	for _, sv := range servers {
		if sv.IsUp() {
			up = append(up, sv)
		}
	}
	return up
}

func buildWeightedList(servers []ServerView) []ServerView {
	out := make([]ServerView, 0, len(servers))
	for _, sv := range servers {
		w := sv.Weight()
		if w <= 0 {
			w = 1
		}
		for i := 0; i < w; i++ {
			out = append(out, sv)
		}
	}
	return out
}
