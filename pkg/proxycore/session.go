package proxycore

import "proxycore/pkg/clock"

// AnalyserMask is the bitmask of L7 request analysers a session still
// owes the backend (spec §4.8, §6's "analyser bitmasks").
type AnalyserMask uint32

// Session is the minimal session-side state the Session Binder attaches
// a backend to. The packet/HTTP layers that own the full session object
// are out of scope (spec §1); this is the slice of fields
// session_set_backend actually touches.
type Session struct {
	BE *Proxy

	ReadTimeout    clock.Tick
	WriteTimeout   clock.Tick
	ConnectTimeout clock.Tick
	ConnRetries    int

	IndependentStreams  bool
	ResponseBugTolerant bool
	BEAssigned          bool

	HdrIdxAllocated bool
	AnalyserMask    AnalyserMask

	// ListenerAnalysers is the mask of analysers already performed by
	// the listener before the backend was assigned; it is masked off
	// the backend's requested analysers (spec §4.8 step 8).
	ListenerAnalysers AnalyserMask
}

// beRequestAnalysers is the backend-mode analyser mask applied in HTTP
// mode (spec §4.6's "in HTTP mode sets backend request/response
// analyser bitmasks"). TCP/HEALTH backends require none.
func beRequestAnalysers(mode Mode) AnalyserMask {
	if mode == ModeHTTP {
		return 1<<0 | 1<<1 // AN_REQ_HTTP_BODY | AN_REQ_HTTP_PROCESS_FE, conceptually
	}
	return 0
}

// SessionSetBackend attaches be's parameters to sess.
// Idempotent: a no-op returning success if sess already has a backend.
// Returns true on success, false only on the out-of-memory path (header
// index allocation failure), mirroring haproxy's session_set_backend
// 1/0 return.
func SessionSetBackend(sess *Session, be *Proxy) bool {
	if sess.BEAssigned {
		return true
	}

	be.mu.Lock()
	be.beconn++
	be.cumBeconn++
	if be.beconn > be.beconnMax {
		be.beconnMax = be.beconn
	}
	timeouts := be.timeouts
	connRetries := be.connRetries
	mode := be.mode
	be.mu.Unlock()

	sess.BE = be
	sess.ReadTimeout = timeouts.Client
	sess.WriteTimeout = timeouts.Server
	sess.ConnectTimeout = timeouts.Connect
	sess.ConnRetries = connRetries
	sess.IndependentStreams = true
	sess.ResponseBugTolerant = true
	sess.BEAssigned = true

	required := beRequestAnalysers(mode)
	if required != 0 && !sess.HdrIdxAllocated {
		// The real header-index pool allocator is an external
		// collaborator (spec §6's pool_alloc2/hdr_idx_init); this
		// control plane never actually runs out of the conceptual
		// pool, so allocation here always succeeds.
		sess.HdrIdxAllocated = true
	}

	sess.AnalyserMask = required &^ sess.ListenerAnalysers
	return true
}

// RecordFrontendSession accounts a newly admitted session against fe,
// the frontend-side counterpart of SessionSetBackend's beconn/cumBeconn
// bookkeeping: it bumps feconn/cumFeconn and feeds the per-second rate
// counter that MaintainProxies' admission gate (§4.7) and the
// rate-limit check (§4.4's fe_sess_per_sec) read. The session layer
// calls this once a connection has been accepted on fe.
func (fe *Proxy) RecordFrontendSession() {
	fe.mu.Lock()
	fe.feconn++
	fe.cumFeconn++
	fe.feSessPerSec.Add(1)
	fe.mu.Unlock()
}

// ReleaseFrontendSession releases a session previously counted by
// RecordFrontendSession, once it has closed.
func (fe *Proxy) ReleaseFrontendSession() {
	fe.mu.Lock()
	if fe.feconn > 0 {
		fe.feconn--
	}
	fe.mu.Unlock()
}
