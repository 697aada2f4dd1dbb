// Package backend implements the Server Record (spec §3, §4.5): the data
// and lifecycle for a single backend target — address, weights, health
// counters, and the check Task that drives it up and down.
package backend

import (
	"fmt"
	"sync"
	"time"

	"proxycore/pkg/clock"
	"proxycore/pkg/scheduler"
)

// StateFlags mirrors haproxy's Server health-state bitmask (RUNNING,
// BACKUP, MAINTAIN, CHECKED, GOINGDOWN, ...).
type StateFlags uint8

const (
	StateRunning   StateFlags = 1 << 0
	StateBackup    StateFlags = 1 << 1
	StateMaintain  StateFlags = 1 << 2
	StateChecked   StateFlags = 1 << 3
	StateGoingDown StateFlags = 1 << 4
)

// Has reports whether any of flags are set.
func (s StateFlags) Has(flags StateFlags) bool { return s&flags != 0 }

// Template holds the defaults a backend's defsrv applies to every newly
// added Server (spec §4.6's "default server template pre-populated").
type Template struct {
	Inter                  time.Duration
	FastInter              time.Duration
	DownInter              time.Duration
	Rise                   int
	Fall                   int
	SlowStart              time.Duration
	Weight                 int
	MaxQueue               int
	MinConn                int
	MaxConn                int
	ConsecutiveErrorsLimit int
}

// DefaultTemplate returns the stock defaults used by addbackend when the
// config layer hasn't overridden them: 2s interval, rise=2, fall=3,
// weight=1 — the same figures haproxy ships with out of the box.
func DefaultTemplate() Template {
	return Template{
		Inter:                  2 * time.Second,
		FastInter:              2 * time.Second,
		DownInter:              2 * time.Second,
		Rise:                   2,
		Fall:                   3,
		SlowStart:              0,
		Weight:                 1,
		MaxQueue:               0,
		MinConn:                0,
		MaxConn:                0,
		ConsecutiveErrorsLimit: 0,
	}
}

// Server is a single backend target: address, weight, health counters,
// and queueing limits (spec §3 "Server").
type Server struct {
	mu sync.Mutex

	id   string
	puid int

	addr   string // host:port, already resolved/validated by addserver
	cookie string

	uweight     int
	iweight     int
	eweight     int
	prevEweight int

	state                  StateFlags
	health                 int
	rise                   int
	fall                   int
	checkStatus            string
	consecutiveErrorsLimit int
	consecutiveErrors      int

	inter      time.Duration
	fastInter  time.Duration
	downInter  time.Duration
	slowStart  time.Duration
	lastChange time.Time
	checkStart time.Time

	maxQueue int
	minConn  int
	maxConn  int
	pending  []string // opaque session identifiers awaiting a free slot

	activeConns int

	checkTaskID    scheduler.TaskID
	checkScheduled bool
}

// New constructs a Server from a template (the backend's defsrv), per
// addserver's "initialize all defaults from the backend's defsrv" step.
// The returned Server starts in MAINTAIN|CHECKED per spec §3's lifecycle
// note; the caller (addserver) is responsible for calling SetUp once the
// check Task has been wired.
func New(id string, puid int, addr, cookie string, tmpl Template) (*Server, error) {
	if id == "" {
		return nil, fmt.Errorf("backend: server id must not be empty")
	}
	if addr == "" {
		return nil, fmt.Errorf("backend: server %q: address must not be empty", id)
	}

	s := &Server{
		id:                     id,
		puid:                   puid,
		addr:                   addr,
		cookie:                 cookie,
		uweight:                tmpl.Weight,
		iweight:                tmpl.Weight,
		rise:                   tmpl.Rise,
		fall:                   tmpl.Fall,
		consecutiveErrorsLimit: tmpl.ConsecutiveErrorsLimit,
		inter:                  tmpl.Inter,
		fastInter:              tmpl.FastInter,
		downInter:              tmpl.DownInter,
		slowStart:              tmpl.SlowStart,
		maxQueue:               tmpl.MaxQueue,
		minConn:                tmpl.MinConn,
		maxConn:                tmpl.MaxConn,
		state:                  StateMaintain | StateChecked,
		health:                 tmpl.Rise,
		lastChange:             clock.WallNow(),
	}
	s.eweight = s.uweight * 1 // scale is 1 until dynamic propagation is implemented
	return s, nil
}

func (s *Server) ID() string { return s.id }

// PUID returns the server's proxy-unique numeric identifier.
func (s *Server) PUID() int { return s.puid }

func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Weight implements routing.ServerView.
func (s *Server) Weight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eweight
}

// ActiveConns implements routing.ServerView.
func (s *Server) ActiveConns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeConns
}

// IsUp implements routing.ServerView.
func (s *Server) IsUp() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isUpLocked()
}

func (s *Server) isUpLocked() bool {
	return s.state.Has(StateRunning) && !s.state.Has(StateMaintain)
}

// State returns the current state bitmask.
func (s *Server) State() StateFlags {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IncrConns/DecrConns track ActiveConns as sessions bind and release.
func (s *Server) IncrConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeConns++
}

func (s *Server) DecrConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeConns > 0 {
		s.activeConns--
	}
}

// SetCheckTask records the scheduler.TaskID wired by addserver, so
// delserver can cancel it later.
func (s *Server) SetCheckTask(id scheduler.TaskID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkTaskID = id
	s.checkScheduled = true
}

// CheckTask returns the wired check Task's ID and whether one is set.
func (s *Server) CheckTask() (scheduler.TaskID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkTaskID, s.checkScheduled
}

// Inter returns the configured check interval (srv_getinter collaborator).
func (s *Server) Inter() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Has(StateGoingDown) && s.fastInter > 0 {
		return s.fastInter
	}
	return s.inter
}
