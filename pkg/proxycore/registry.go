package proxycore

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"proxycore/pkg/backend"
	"proxycore/pkg/idset"
	"proxycore/pkg/listener"
	"proxycore/pkg/scheduler"
)

// Default runtime constants applied by AddBackend, matching haproxy's
// cfg_maxpconn/CONN_RETRIES defaults (spec §4.6).
const (
	DefaultMaxConn    = 2000
	DefaultConnRetries = 3
)

// Registry is the global Proxy Registry & Mutation API (spec §4.6): the
// process-wide proxy list, the uuid allocator, the listener count, and
// the soft-stop/drain flags. Its methods lock r.mu (and each Proxy's own
// mutex) internally, so the admin handlers and the lifecycle ticker call
// them from their own goroutines.
type Registry struct {
	mu sync.Mutex

	proxies      []*Proxy
	usedProxyID  *idset.Set
	listeners    int
	stopping     bool
	actconn      int
	globalMaxconn int

	sched *scheduler.Scheduler
}

// NewRegistry creates an empty Registry. sched is used to wire each
// server's health-check Task; globalMaxconn is the process-wide
// concurrent-connection ceiling maintain_proxies enforces.
func NewRegistry(sched *scheduler.Scheduler, globalMaxconn int) *Registry {
	return &Registry{
		usedProxyID:   idset.New(),
		sched:         sched,
		globalMaxconn: globalMaxconn,
	}
}

// validIdentifier reports whether name contains only characters haproxy
// allows in a proxy/server name: alphanumerics, '-', '_', '.', ':'.
func validIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.' || r == ':':
		default:
			return false
		}
	}
	return true
}

// AddBackend creates a proxy with capabilities BE|RS and the runtime
// defaults (spec §4.6). It rejects the name if a differently-capable
// proxy already owns it; the only permitted collision is
// {FE+RS} <-> {BE+RS}.
func (r *Registry) AddBackend(name string) (*Proxy, error) {
	if !validIdentifier(name) {
		return nil, &ValidationError{Reason: fmt.Sprintf("invalid identifier %q", name)}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.proxies {
		if existing.ID() != name {
			continue
		}
		if existing.Cap() != CapFE|CapRS {
			return nil, &DuplicateError{Kind: "proxy", Name: name}
		}
	}

	uuid := r.usedProxyID.NextID(0)
	p := newProxy(name, uuid, CapBE|CapRS, DefaultMaxConn, DefaultConnRetries)
	r.proxies = append(r.proxies, p)
	return p, nil
}

// AddFrontend creates a proxy with capability FE|RS and binds a listener
// per address. Frontends are ordinarily produced by the (out-of-scope)
// config parser rather than the runtime API, but the registry exposes
// this so a config loader has somewhere to construct them.
func (r *Registry) AddFrontend(name string, listenAddrs []string) (*Proxy, error) {
	if !validIdentifier(name) {
		return nil, &ValidationError{Reason: fmt.Sprintf("invalid identifier %q", name)}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.proxies {
		if existing.ID() != name {
			continue
		}
		if existing.Cap() != CapBE|CapRS {
			return nil, &DuplicateError{Kind: "proxy", Name: name}
		}
	}

	uuid := r.usedProxyID.NextID(0)
	p := newProxy(name, uuid, CapFE|CapRS, DefaultMaxConn, DefaultConnRetries)
	for _, addr := range listenAddrs {
		p.listeners = append(p.listeners, listener.NewTCPListener(addr))
		r.listeners++
	}
	r.proxies = append(r.proxies, p)
	return p, nil
}

// AddListen creates a combined FE+BE proxy (haproxy's "listen" section):
// one proxy that both accepts connections and holds its own server pool,
// so addserver can target it directly without a separate backend proxy.
func (r *Registry) AddListen(name string, listenAddrs []string) (*Proxy, error) {
	if !validIdentifier(name) {
		return nil, &ValidationError{Reason: fmt.Sprintf("invalid identifier %q", name)}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.proxies {
		if existing.ID() == name {
			return nil, &DuplicateError{Kind: "proxy", Name: name}
		}
	}

	uuid := r.usedProxyID.NextID(0)
	p := newProxy(name, uuid, CapListen|CapRS, DefaultMaxConn, DefaultConnRetries)
	for _, addr := range listenAddrs {
		p.listeners = append(p.listeners, listener.NewTCPListener(addr))
		r.listeners++
	}
	r.proxies = append(r.proxies, p)
	return p, nil
}

// DelBackend refuses if any other proxy's defbe or switching rule
// points at p. It then deletes every server on p and unlinks it from
// the global list (spec §4.6).
func (r *Registry) DelBackend(p *Proxy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, other := range r.proxies {
		if other == p {
			continue
		}
		other.mu.Lock()
		referenced := other.defbe == p
		if !referenced {
			for _, rule := range other.switchingRules {
				if rule.Backend == p {
					referenced = true
					break
				}
			}
		}
		other.mu.Unlock()
		if referenced {
			return &ReferentialIntegrityError{Name: p.ID()}
		}
	}

	p.mu.Lock()
	servers := make([]*backend.Server, len(p.servers))
	copy(servers, p.servers)
	p.mu.Unlock()

	for _, s := range servers {
		r.delServerLocked(p, s)
	}

	for i, existing := range r.proxies {
		if existing == p {
			r.proxies = append(r.proxies[:i], r.proxies[i+1:]...)
			break
		}
	}
	r.usedProxyID.Remove(p.UUID())
	return nil
}

// AddServer allocates a Server on the named backend, wires its
// check Task, and brings it up (spec §4.5).
func (r *Registry) AddServer(backendName, serverName, addr, cookie string) (*backend.Server, error) {
	r.mu.Lock()
	p, err := r.findProxyLocked(backendName, CapBE)
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	for _, existing := range p.servers {
		if existing.ID() == serverName {
			p.mu.Unlock()
			return nil, &DuplicateError{Kind: "server", Name: serverName}
		}
	}
	addr = ensurePort(addr, 80)
	puid := p.serverIDs.NextID(0)
	tmpl := p.defsrv
	p.mu.Unlock()

	srv, err := backend.New(serverName, puid, addr, cookie, tmpl)
	if err != nil {
		p.mu.Lock()
		p.serverIDs.Remove(puid)
		p.mu.Unlock()
		return nil, &ValidationError{Reason: err.Error()}
	}

	if r.sched != nil {
		taskID, schedErr := r.sched.Queue(tmpl.Inter.Milliseconds(), func() {
			srv.RunCheck(noopContext{}, backend.DialCheck, tmpl.Inter)
		})
		if schedErr == nil {
			srv.SetCheckTask(taskID)
		}
	}

	p.mu.Lock()
	p.servers = append(p.servers, srv)
	p.mu.Unlock()

	srv.SetUp()
	return srv, nil
}

// ensurePort appends defaultPort to addr if it has no port component.
func ensurePort(addr string, defaultPort int) string {
	if strings.Contains(addr, ":") {
		return addr
	}
	return addr + ":" + strconv.Itoa(defaultPort)
}

// DelServer locates the named server, forces MAINTAIN, cancels its
// check Task, and unlinks it (spec §4.5).
func (r *Registry) DelServer(backendName, serverName string) error {
	r.mu.Lock()
	p, err := r.findProxyLocked(backendName, CapBE)
	if err != nil {
		r.mu.Unlock()
		return err
	}

	p.mu.Lock()
	var srv *backend.Server
	for _, existing := range p.servers {
		if existing.ID() == serverName {
			srv = existing
			break
		}
	}
	p.mu.Unlock()
	r.mu.Unlock()

	if srv == nil {
		return &LookupError{Kind: "server", Name: serverName}
	}

	r.delServerLocked(p, srv)
	return nil
}

// delServerLocked performs the teardown sequence for a single server:
// MAINTAIN, set_server_down, cancel the check Task, unlink. The caller
// may hold r.mu but must not hold p.mu.
func (r *Registry) delServerLocked(p *Proxy, srv *backend.Server) {
	srv.SetDown()

	if id, ok := srv.CheckTask(); ok && r.sched != nil {
		r.sched.Cancel(id)
	}

	p.mu.Lock()
	for i, existing := range p.servers {
		if existing == srv {
			p.servers = append(p.servers[:i], p.servers[i+1:]...)
			break
		}
	}
	p.serverIDs.Remove(srv.PUID())
	p.mu.Unlock()
}

// AddSwitchEntry resolves both proxies and inserts domain -> backend
// into the frontend's switching table (spec §4.6).
func (r *Registry) AddSwitchEntry(frontendName, backendName, domain string) error {
	r.mu.Lock()
	fe, err := r.findProxyLocked(frontendName, CapFE)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	be, err := r.findProxyLocked(backendName, CapBE)
	r.mu.Unlock()
	if err != nil {
		return err
	}

	fe.mu.Lock()
	defer fe.mu.Unlock()
	for i, rule := range fe.switchingRules {
		if rule.Domain == domain {
			fe.switchingRules[i].Backend = be
			return nil
		}
	}
	fe.switchingRules = append(fe.switchingRules, SwitchingRule{Domain: domain, Backend: be})
	return nil
}

// FindProxy returns the unique Proxy whose capabilities include cap and
// whose id == name (spec §4.2).
func (r *Registry) FindProxy(name string, cap Capability) (*Proxy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findProxyLocked(name, cap)
}

func (r *Registry) findProxyLocked(name string, cap Capability) (*Proxy, error) {
	var match *Proxy
	count := 0
	for _, p := range r.proxies {
		if p.ID() == name && p.Cap().Has(cap) {
			match = p
			count++
		}
	}
	if count == 0 {
		return nil, &LookupError{Kind: "proxy", Name: name}
	}
	if count > 1 {
		return nil, &AmbiguousError{Kind: "proxy", Name: name}
	}
	return match, nil
}

// FindProxyMode is FindProxy with an additional mode requirement; an
// HTTP proxy may satisfy a TCP request (spec §4.2).
func (r *Registry) FindProxyMode(name string, mode Mode, cap Capability) (*Proxy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var match *Proxy
	count := 0
	for _, p := range r.proxies {
		if p.ID() != name || !p.Cap().Has(cap) {
			continue
		}
		pm := p.Mode()
		if pm == mode || (pm == ModeHTTP && mode == ModeTCP) {
			match = p
			count++
		}
	}
	if count == 0 {
		return nil, &LookupError{Kind: "proxy", Name: name}
	}
	if count > 1 {
		return nil, &AmbiguousError{Kind: "proxy", Name: name}
	}
	return match, nil
}

// FindServer returns the unique server named name within p (spec §4.2).
func (r *Registry) FindServer(p *Proxy, name string) (*backend.Server, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var match *backend.Server
	count := 0
	for _, s := range p.servers {
		if s.ID() == name {
			match = s
			count++
		}
	}
	if count == 0 {
		return nil, &LookupError{Kind: "server", Name: name}
	}
	if count > 1 {
		return nil, &AmbiguousError{Kind: "server", Name: name}
	}
	return match, nil
}

// GetBackendServer resolves both a backend and a server by name, each
// supporting a "#<id>" numeric-ID form (spec §4.2). Either out-parameter
// may be skipped by the caller; here both are simply returned.
func (r *Registry) GetBackendServer(bkName, svName string) (*Proxy, *backend.Server, error) {
	r.mu.Lock()
	var bk *Proxy
	if id, ok := parseHashID(bkName); ok {
		for _, p := range r.proxies {
			if p.UUID() == id && p.Cap().Has(CapBE) {
				bk = p
				break
			}
		}
	} else {
		var err error
		bk, err = r.findProxyLocked(bkName, CapBE)
		if err != nil {
			r.mu.Unlock()
			return nil, nil, err
		}
	}
	r.mu.Unlock()

	if bk == nil {
		return nil, nil, &LookupError{Kind: "proxy", Name: bkName}
	}

	if svName == "" {
		return bk, nil, nil
	}

	bk.mu.Lock()
	var sv *backend.Server
	if id, ok := parseHashID(svName); ok {
		for _, s := range bk.servers {
			if s.PUID() == id {
				sv = s
				break
			}
		}
	} else {
		for _, s := range bk.servers {
			if s.ID() == svName {
				sv = s
				break
			}
		}
	}
	bk.mu.Unlock()

	if sv == nil {
		return bk, nil, &LookupError{Kind: "server", Name: svName}
	}
	return bk, sv, nil
}

// parseHashID parses the "#123" numeric-ID lookup form.
func parseHashID(name string) (int, bool) {
	if !strings.HasPrefix(name, "#") {
		return 0, false
	}
	id, err := strconv.Atoi(name[1:])
	if err != nil {
		return 0, false
	}
	return id, true
}

// Proxies returns a snapshot slice of every registered proxy.
func (r *Registry) Proxies() []*Proxy {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Proxy, len(r.proxies))
	copy(out, r.proxies)
	return out
}

// noopContext is a minimal context.Context used for health-check
// invocations triggered by the scheduler, which has no request-scoped
// deadline of its own; RunCheck applies its own timeout via
// context.WithTimeout regardless.
type noopContext struct{}

func (noopContext) Deadline() (time.Time, bool) { return time.Time{}, false }
func (noopContext) Done() <-chan struct{}        { return nil }
func (noopContext) Err() error                   { return nil }
func (noopContext) Value(key any) any            { return nil }
