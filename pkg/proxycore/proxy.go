package proxycore

import (
	"sync"
	"time"

	"proxycore/pkg/backend"
	"proxycore/pkg/clock"
	"proxycore/pkg/idset"
	"proxycore/pkg/listener"
	"proxycore/pkg/ratelimit"
	"proxycore/pkg/routing"
)

// Proxy is the central aggregate (spec §3 "Proxy"): capabilities, mode,
// timeouts, listener list, server list, switching table, counters, and
// state.
type Proxy struct {
	mu sync.Mutex

	id   string
	uuid int
	cap  Capability
	mode Mode

	state State

	timeouts Timeouts

	maxconn     int
	fullconn    int
	backlog     int
	connRetries int

	feSPSLim     int64
	feSessPerSec *ratelimit.Counter

	feconn     int
	beconn     int
	cumFeconn  int64
	cumBeconn  int64
	beconnMax  int

	algoKind LBAlgoKind
	strategy routing.Strategy

	cookie CookieConfig

	listeners      []listener.Listener
	servers        []*backend.Server
	serverIDs      *idset.Set
	switchingRules []SwitchingRule

	defsrv backend.Template
	defbe  *Proxy

	stopTime   clock.Tick
	lastChange time.Time
	grace      clock.Tick

	logging bool
}

// newProxy constructs a Proxy in state NEW with the runtime defaults
// addbackend applies (spec §4.6): mode HTTP, insert+indirect cookie
// named SERVERID, round-robin LB, conn_retries, logging disabled, and a
// pre-populated default server template.
func newProxy(id string, uuid int, cap Capability, maxconn, connRetries int) *Proxy {
	p := &Proxy{
		id:           id,
		uuid:         uuid,
		cap:          cap,
		mode:         ModeHTTP,
		state:        StateNew,
		maxconn:      maxconn,
		connRetries:  connRetries,
		feSessPerSec: ratelimit.NewCounter(time.Second),
		algoKind:     AlgoRoundRobin,
		serverIDs:    idset.New(),
		cookie: CookieConfig{
			Name:     "SERVERID",
			Insert:   true,
			Indirect: true,
		},
		defsrv:     backend.DefaultTemplate(),
		lastChange: clock.WallNow(),
	}
	p.strategy = NewStrategy(p.algoKind)
	p.fullconn = maxconn
	return p
}

// ID returns the proxy's configured name.
func (p *Proxy) ID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.id
}

// UUID returns the proxy's process-global numeric identity.
func (p *Proxy) UUID() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uuid
}

// Cap returns the proxy's capability bitmask.
func (p *Proxy) Cap() Capability {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cap
}

// Mode returns the proxy's protocol mode.
func (p *Proxy) Mode() Mode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode
}

// State returns the proxy's current lifecycle state.
func (p *Proxy) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Timeouts returns a copy of the proxy's timeout configuration.
func (p *Proxy) Timeouts() Timeouts {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timeouts
}

// MaxConn returns the configured frontend concurrency ceiling.
func (p *Proxy) MaxConn() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxconn
}

// FEConn returns the current frontend session count.
func (p *Proxy) FEConn() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.feconn
}

// BEConn returns the current backend session count.
func (p *Proxy) BEConn() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.beconn
}

// Servers returns a snapshot slice of the proxy's backend servers.
func (p *Proxy) Servers() []*backend.Server {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*backend.Server, len(p.servers))
	copy(out, p.servers)
	return out
}

// Listeners returns a snapshot slice of the proxy's listeners.
func (p *Proxy) Listeners() []listener.Listener {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]listener.Listener, len(p.listeners))
	copy(out, p.listeners)
	return out
}

// ConnRetries returns the configured connect-retry count.
func (p *Proxy) ConnRetries() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connRetries
}

// SetMaxConn overrides the frontend concurrency ceiling addbackend
// applied at construction (the config loader's "maxconn" keyword).
func (p *Proxy) SetMaxConn(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.maxconn = n
	p.fullconn = n
}

// SetMode overrides the protocol mode addbackend defaulted to HTTP (the
// config loader's "mode" keyword).
func (p *Proxy) SetMode(mode Mode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mode = mode
}

// SetAlgorithm installs a new load-balancing strategy, replacing the
// round-robin default (the config loader's "balance" keyword).
func (p *Proxy) SetAlgorithm(kind LBAlgoKind) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.algoKind = kind
	p.strategy = NewStrategy(kind)
}

// SetDefaultServerTemplate overrides the defsrv template new servers
// are constructed from (the config loader's "default-server" block).
func (p *Proxy) SetDefaultServerTemplate(tmpl backend.Template) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.defsrv = tmpl
}

// serverViews builds the []routing.ServerView slice a Strategy consumes,
// under the existing lock.
func (p *Proxy) serverViewsLocked() []routing.ServerView {
	views := make([]routing.ServerView, len(p.servers))
	for i, s := range p.servers {
		views[i] = s
	}
	return views
}

// PickServer resolves a backend server for a new session via the
// proxy's configured strategy (spec's switching-rule resolution
// collaborator, §4.8's prerequisite).
func (p *Proxy) PickServer(cookie string) (*backend.Server, error) {
	p.mu.Lock()
	views := p.serverViewsLocked()
	strategy := p.strategy
	byID := make(map[string]*backend.Server, len(p.servers))
	for _, s := range p.servers {
		byID[s.ID()] = s
	}
	p.mu.Unlock()

	sv, err := strategy.SelectServer(views, cookie)
	if err != nil {
		return nil, err
	}
	return byID[sv.ID()], nil
}
