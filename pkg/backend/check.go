package backend

import (
	"context"
	"errors"
	"net"
	"time"

	"proxycore/pkg/clock"
)

// CheckFunc performs one health probe against a server's address, in the
// style of pkg/telemetry/health's CheckFunc(ctx) error: nil means healthy,
// non-nil describes the failure. The default implementation is a TCP
// dial; callers may supply an HTTP-aware or protocol-aware probe instead,
// mirroring haproxy's pluggable process_chk.
type CheckFunc func(ctx context.Context, addr string) error

// ErrServerDown is a sentinel a CheckFunc may return to report that the
// probe itself failed; RunCheck treats any non-nil error as a failure.
var ErrServerDown = errors.New("backend: server check failed")

// DialCheck is the default CheckFunc: a plain TCP dial bounded only by
// ctx's deadline (RunCheck's timeout), matching haproxy's basic
// "tcp-check connect" behavior.
func DialCheck(ctx context.Context, addr string) error {
	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return conn.Close()
}

// RunCheck executes one probe cycle against the server (spec's
// process_chk). health starts at `rise`: a success raises it by one
// (capped at `rise`) and calls SetUp once it reaches `rise`; a failure
// lowers it by one and calls SetDown once it reaches 0. `fall` is not
// consulted. A failure that leaves health above 0 sets GOINGDOWN so
// Inter() can switch to the fast interval while a server is flapping;
// health reaching `rise` again clears it.
func (s *Server) RunCheck(ctx context.Context, check CheckFunc, timeout time.Duration) {
	s.mu.Lock()
	s.checkStart = clock.WallNow()
	addr := s.addr
	s.mu.Unlock()

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := check(cctx, addr)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		s.checkStatus = "L4OK"
		s.consecutiveErrors = 0
		if s.health < s.rise {
			s.health++
		}
		if s.health >= s.rise {
			s.state &^= StateGoingDown
			s.setUpLocked()
		}
		return
	}

	s.checkStatus = "L4CON"
	s.consecutiveErrors++
	if s.health > 0 {
		s.health--
	}
	if s.health <= 0 {
		s.setDownLocked()
	} else {
		s.state |= StateGoingDown
	}
}

// SetUp forces the server out of MAINTAIN and marks it RUNNING
// (set_server_up).
func (s *Server) SetUp() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setUpLocked()
}

func (s *Server) setUpLocked() {
	if s.isUpLocked() {
		return
	}
	s.state &^= StateMaintain | StateGoingDown
	s.state |= StateRunning
	s.health = s.rise
	s.lastChange = clock.WallNow()
}

// SetDown forces the server into MAINTAIN, marking it unavailable for
// selection (set_server_down). Used both by failed checks and by
// delserver's teardown sequence.
func (s *Server) SetDown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setDownLocked()
}

func (s *Server) setDownLocked() {
	s.state &^= StateRunning | StateGoingDown
	s.state |= StateMaintain
	s.health = 0
	s.lastChange = clock.WallNow()
}

// CheckStatus returns the most recent check's status string ("L4OK",
// "L4CON", or "" before any check has run).
func (s *Server) CheckStatus() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkStatus
}

// LastChange returns the wall-clock time of the last state transition.
func (s *Server) LastChange() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastChange
}
