// Package routing implements the pluggable backend-server selection
// strategies that back a Proxy's load-balancing algorithm descriptor
// (spec §3: algo.kind ∈ {RR, LC, HI}). Strategies operate on anything
// satisfying ServerView so this package has no dependency on the
// backend package that owns the concrete Server type.
package routing

// ServerView is the minimal view of a backend server a selection strategy
// needs. The backend.Server type implements this interface.
type ServerView interface {
	// ID returns the server's unique string identifier.
	ID() string

	// Weight returns the server's effective weight (eweight).
	Weight() int

	// ActiveConns returns the server's current connection count.
	ActiveConns() int

	// IsUp reports whether the server is eligible to receive traffic
	// (RUNNING and not under maintenance).
	IsUp() bool
}

// Strategy selects one server from a candidate pool for a new session.
// Implementations must be safe for concurrent use.
type Strategy interface {
	// SelectServer picks a server from the given pool. cookie is the
	// persistence cookie value presented by the client, or "" if none;
	// strategies that do not implement persistence ignore it.
	//
	// Returns an error if the pool is empty or every candidate is down.
	SelectServer(servers []ServerView, cookie string) (ServerView, error)

	// Name returns the strategy's identifier (e.g. "roundrobin").
	Name() string

	// Reset clears any internal state (counters, affinity cache).
	Reset()
}
