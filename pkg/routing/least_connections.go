package routing

// LeastConnectionsStrategy selects the up server with the fewest active
// connections, weighted by effective weight (connections / weight is the
// comparison key). It realizes the LC kind of the proxy's LB algorithm
// descriptor (spec §3, §6 fwlc_init_server_tree collaborator).
type LeastConnectionsStrategy struct{}

// NewLeastConnectionsStrategy creates a new least-connections strategy.
func NewLeastConnectionsStrategy() *LeastConnectionsStrategy {
	return &LeastConnectionsStrategy{}
}

// SelectServer returns the up server with the lowest conns/weight ratio.
func (s *LeastConnectionsStrategy) SelectServer(servers []ServerView, _ string) (ServerView, error) {
	up := filterUp(servers)
	if len(up) == 0 {
		return nil, ErrNoServersAvailable
	}

	best := up[0]
	bestRatio := ratio(best)
	for _, sv := range up[1:] {
		r := ratio(sv)
		if r < bestRatio {
			best = sv
			bestRatio = r
		}
	}
	return best, nil
}

// Name returns the strategy name.
func (s *LeastConnectionsStrategy) Name() string { return "leastconn" }

// Reset is a no-op; the strategy holds no internal state.
func (s *LeastConnectionsStrategy) Reset() {}

func ratio(sv ServerView) float64 {
	w := sv.Weight()
	if w <= 0 {
		w = 1
	}
	return float64(sv.ActiveConns()) / float64(w)
}
