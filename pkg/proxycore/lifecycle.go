package proxycore

import (
	"log/slog"

	"proxycore/pkg/clock"
	"proxycore/pkg/listener"
)

// StartProxies binds every ASSIGNED listener of every NEW proxy
// (spec §4.7). Accumulated per-listener error flags are bitwise-ORed;
// ERR_ABORT stops the outer loop early. verbose (or a fatal error) logs
// the failure at Warn level; otherwise a bind failure is not logged.
func (r *Registry) StartProxies(verbose bool) listener.ErrFlags {
	r.mu.Lock()
	proxies := make([]*Proxy, len(r.proxies))
	copy(proxies, r.proxies)
	r.mu.Unlock()

	var total listener.ErrFlags

	for _, p := range proxies {
		p.mu.Lock()
		if p.state != StateNew {
			p.mu.Unlock()
			continue
		}
		lns := make([]listener.Listener, len(p.listeners))
		copy(lns, p.listeners)
		p.mu.Unlock()

		var proxyFlags listener.ErrFlags
		failed := false
		for _, ln := range lns {
			flags := ln.Bind()
			proxyFlags |= flags
			if flags.Has(listener.ErrFatal) || flags.Has(listener.ErrAbort) {
				failed = true
				if verbose || flags.Has(listener.ErrFatal) {
					slog.Warn("listener bind failed", "proxy", p.ID(), "addr", ln.Addr())
				}
				break
			}
		}

		total |= proxyFlags

		p.mu.Lock()
		if !failed {
			p.state = StateIdle
			p.lastChange = clock.WallNow()
			slog.Info("proxy started", "proxy", p.ID(), "uuid", p.uuid)
		}
		p.mu.Unlock()

		if proxyFlags.Has(listener.ErrAbort) {
			break
		}
	}

	return total
}

// MaintainProxies is the admission gate evaluated each controller tick
// (spec §4.7). It returns the next tick at which it should be invoked
// again (clamped down whenever a proxy is blocked on a rate-limit delay
// or a soft-stop deadline).
func (r *Registry) MaintainProxies() clock.Tick {
	now := clock.Now()
	nextWakeup := clock.TickEternity

	r.mu.Lock()
	globalOK := r.globalMaxconn <= 0 || r.actconn < r.globalMaxconn
	stopping := r.stopping
	proxies := make([]*Proxy, len(r.proxies))
	copy(proxies, r.proxies)
	r.mu.Unlock()

	for _, p := range proxies {
		p.mu.Lock()

		if !p.cap.Has(CapFE) {
			p.mu.Unlock()
			continue
		}

		blocked := false
		if !globalOK {
			blocked = true
		} else if p.feconn >= p.maxconn && p.maxconn > 0 {
			blocked = true
		} else if p.feSPSLim > 0 {
			wait := p.feSessPerSec.NextEventDelay(p.feSPSLim)
			if wait > 0 {
				nextWakeup = clock.TickFirst(nextWakeup, clock.TickAdd(now, wait.Milliseconds()))
				blocked = true
			}
		}

		switch {
		case blocked && p.state == StateRunning:
			for _, ln := range p.listeners {
				ln.Disable()
			}
			p.state = StateIdle
			p.lastChange = clock.WallNow()
		case !blocked && p.state == StateIdle:
			for _, ln := range p.listeners {
				ln.Enable()
			}
			p.state = StateRunning
			p.lastChange = clock.WallNow()
		}

		p.mu.Unlock()
	}

	if stopping {
		nextWakeup = r.drainStoppingProxies(now, nextWakeup)
	}

	return nextWakeup
}

// drainStoppingProxies finalizes STOPPED transitions for proxies whose
// stop_time has elapsed, and clamps nextWakeup to the earliest remaining
// stop_time otherwise (spec §4.7's drain step).
func (r *Registry) drainStoppingProxies(now, nextWakeup clock.Tick) clock.Tick {
	r.mu.Lock()
	proxies := make([]*Proxy, len(r.proxies))
	copy(proxies, r.proxies)
	r.mu.Unlock()

	for _, p := range proxies {
		p.mu.Lock()
		if p.state == StateStopped {
			p.mu.Unlock()
			continue
		}
		stopTime := p.stopTime
		p.mu.Unlock()

		remain := clock.TickRemain(now, stopTime)
		if remain == 0 {
			slog.Info("proxy stop deadline reached", "proxy", p.ID())
			r.StopProxy(p)
			continue
		}
		nextWakeup = clock.TickFirst(nextWakeup, stopTime)
	}

	return nextWakeup
}

// PauseProxy calls Disable on every listener; if all succeed the proxy
// moves to PAUSED, and a fatal or abort error from any listener moves it
// to ERROR (spec §4.7). A proxy already in ERROR is left unchanged.
func (r *Registry) PauseProxy(p *Proxy) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateError {
		return nil
	}

	for _, ln := range p.listeners {
		if flags := ln.Disable(); flags.Has(listener.ErrFatal) || flags.Has(listener.ErrAbort) {
			p.state = StateError
			return &ValidationError{Reason: "pause_proxy: listener disable failed for " + p.id}
		}
	}

	p.state = StatePaused
	p.lastChange = clock.WallNow()
	return nil
}

// PauseProxies pauses every FE proxy not already in
// {ERROR, STOPPED, PAUSED}; any failure to reach PAUSED falls back to
// SoftStop (spec §4.7).
func (r *Registry) PauseProxies() {
	r.mu.Lock()
	proxies := make([]*Proxy, len(r.proxies))
	copy(proxies, r.proxies)
	r.mu.Unlock()

	for _, p := range proxies {
		if !p.Cap().Has(CapFE) {
			continue
		}
		st := p.State()
		if st == StateError || st == StateStopped || st == StatePaused {
			continue
		}
		if err := r.PauseProxy(p); err != nil {
			r.SoftStop(5000)
			return
		}
	}
}

// ListenProxies re-listens every listener of every PAUSED proxy, moving
// it to RUNNING (if admission permits) or IDLE. A listen failure warns
// with the bound port and reverts to PauseProxy (spec §4.7).
func (r *Registry) ListenProxies() {
	r.mu.Lock()
	proxies := make([]*Proxy, len(r.proxies))
	copy(proxies, r.proxies)
	r.mu.Unlock()

	for _, p := range proxies {
		if p.State() != StatePaused {
			continue
		}

		p.mu.Lock()
		lns := make([]listener.Listener, len(p.listeners))
		copy(lns, p.listeners)
		p.mu.Unlock()

		ok := true
		for _, ln := range lns {
			if flags := ln.Bind(); flags.Has(listener.ErrFatal) {
				ok = false
				if tl, isTCP := ln.(*listener.TCPListener); isTCP {
					if port, err := tl.Port(); err == nil {
						slog.Warn("port busy", "proxy", p.ID(), "port", port)
					}
				}
				break
			}
		}

		if !ok {
			_ = r.PauseProxy(p)
			continue
		}

		p.mu.Lock()
		admitted := p.maxconn <= 0 || p.feconn < p.maxconn
		if admitted {
			p.state = StateRunning
		} else {
			p.state = StateIdle
		}
		p.lastChange = clock.WallNow()
		p.mu.Unlock()

		if admitted {
			for _, ln := range lns {
				ln.Enable()
			}
		}
	}
}

// SoftStop sets the global stopping flag and arms stop_time = now +
// grace on every non-stopped proxy (spec §4.7).
func (r *Registry) SoftStop(grace clock.Tick) {
	now := clock.Now()

	r.mu.Lock()
	r.stopping = true
	proxies := make([]*Proxy, len(r.proxies))
	copy(proxies, r.proxies)
	r.mu.Unlock()

	for _, p := range proxies {
		p.mu.Lock()
		if p.state != StateStopped {
			p.grace = grace
			p.stopTime = clock.TickAdd(now, int64(grace))
			slog.Info("soft stop armed", "proxy", p.ID(), "grace_ms", grace)
		}
		p.mu.Unlock()
	}
}

// StopProxy unbinds, deletes, and accounts each listener, then sets the
// proxy state to STOPPED (spec §4.7).
//
// r.mu is acquired after p.mu has been released, matching every other
// registry path (findProxyLocked, DelBackend, AddServer,
// AddSwitchEntry, GetBackendServer all lock r.mu first, then p.mu) —
// nesting the other way here would AB-BA deadlock against those paths.
func (r *Registry) StopProxy(p *Proxy) {
	p.mu.Lock()
	for _, ln := range p.listeners {
		ln.Unbind()
		ln.Delete()
	}
	released := len(p.listeners)
	p.state = StateStopped
	p.lastChange = clock.WallNow()
	p.mu.Unlock()

	if released > 0 {
		r.mu.Lock()
		r.listeners -= released
		r.mu.Unlock()
	}
}
