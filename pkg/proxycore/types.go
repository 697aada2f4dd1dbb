// Package proxycore implements the central aggregate of the control
// plane: the Proxy Record, the Proxy Registry & Mutation API, the
// Lifecycle Controller, the Session Binder, and the Config Keyword
// Bridge (spec §3, §4.5-4.9). These are bundled in one package the way
// haproxy's proxy.c bundles them into a single translation unit — they
// share too much internal state to separate cleanly.
package proxycore

import (
	"log/slog"
	"time"

	"proxycore/pkg/clock"
	"proxycore/pkg/ratelimit"
	"proxycore/pkg/routing"
)

// Capability is the bitmask drawn from {FE, BE, RS}; LISTEN is the
// combination FE|BE.
type Capability uint8

const (
	CapFE Capability = 1 << 0
	CapBE Capability = 1 << 1
	CapRS Capability = 1 << 2

	CapListen = CapFE | CapBE
)

func (c Capability) Has(flags Capability) bool { return c&flags != 0 }

func (c Capability) String() string {
	switch c {
	case CapFE:
		return "FE"
	case CapBE:
		return "BE"
	case CapRS:
		return "RS"
	case CapFE | CapRS:
		return "FE+RS"
	case CapBE | CapRS:
		return "BE+RS"
	case CapListen:
		return "LISTEN"
	default:
		return "UNKNOWN"
	}
}

// Mode is the proxy's protocol mode.
type Mode int

const (
	ModeTCP Mode = iota
	ModeHTTP
	ModeHealth
)

func (m Mode) String() string {
	switch m {
	case ModeTCP:
		return "tcp"
	case ModeHTTP:
		return "http"
	case ModeHealth:
		return "health"
	default:
		return "unknown"
	}
}

// State is a Proxy's position in the lifecycle state machine (spec §4.7).
type State int

const (
	StateNew State = iota
	StateIdle
	StateRunning
	StatePaused
	StateStopped
	StateError
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StatePaused:
		return "PAUSED"
	case StateStopped:
		return "STOPPED"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Timeouts holds the proxy's timeout fields, stored as ticks
// (milliseconds) per spec §2.1/§3.
type Timeouts struct {
	Client        clock.Tick
	Server        clock.Tick
	Connect       clock.Tick
	Check         clock.Tick
	Queue         clock.Tick
	Tarpit        clock.Tick
	HTTPKeepAlive clock.Tick
	HTTPRequest   clock.Tick
}

// LBAlgoKind is the load-balancing algorithm descriptor's kind field.
type LBAlgoKind string

const (
	AlgoRoundRobin       LBAlgoKind = "roundrobin"
	AlgoLeastConnections LBAlgoKind = "leastconn"
	AlgoSticky           LBAlgoKind = "sticky"
	AlgoHashConsistent   LBAlgoKind = "hash-consistent"
)

// stickyCacheTTL and stickyCacheMaxEntries bound the cookie-affinity
// cache every AlgoSticky proxy gets. They are fixed values; the proxy's
// Cookie.MaxIdle and Cookie.MaxLife fields are not consulted.
const (
	stickyCacheTTL        = 30 * time.Minute
	stickyCacheMaxEntries = 10000
)

// NewStrategy constructs the routing.Strategy matching an LBAlgoKind.
// hash-consistent isn't implemented by pkg/routing (it's an external LB
// initializer per spec §6 "LB initializers"); it falls back to
// round-robin with a warning, mirroring §4.9's auto-downgrade behavior
// for unsupported combinations.
func NewStrategy(kind LBAlgoKind) routing.Strategy {
	switch kind {
	case AlgoLeastConnections:
		return routing.NewLeastConnectionsStrategy()
	case AlgoSticky:
		cache := routing.NewStickyCache(stickyCacheTTL, stickyCacheMaxEntries)
		return routing.NewStickyStrategy(cache, routing.NewRoundRobinStrategy())
	case AlgoRoundRobin:
		return routing.NewRoundRobinStrategy()
	default:
		slog.Warn("unsupported load-balancing algorithm, using roundrobin", "algorithm", string(kind))
		return routing.NewRoundRobinStrategy()
	}
}

// CookieConfig is the proxy's cookie-persistence configuration.
type CookieConfig struct {
	Name     string
	Domain   string
	MaxIdle  clock.Tick
	MaxLife  clock.Tick
	Insert   bool
	Indirect bool
	Passive  bool
}

// SwitchingRule maps an exact domain string to a backend Proxy (spec's
// "Switching Rule", the simple runtime-insertion form).
type SwitchingRule struct {
	Domain  string
	Backend *Proxy
}

// sessionRateCounter is the concrete Counter type fe_sess_per_sec binds
// to; kept as an alias so callers needn't import pkg/ratelimit directly
// to reference it.
type sessionRateCounter = ratelimit.Counter
