package adminapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"proxycore/pkg/backend"
	"proxycore/pkg/proxycore"
)

// handlers holds the registry every admin API route mutates or inspects.
// Routes never hold their own lock: the Registry and Proxy types already
// serialize access, and every mutation funnels through their exported
// methods so the event-loop invariant (spec §5) is preserved.
type handlers struct {
	registry *proxycore.Registry
}

type proxyView struct {
	Name        string       `json:"name"`
	UUID        int          `json:"uuid"`
	Capability  string       `json:"capability"`
	Mode        string       `json:"mode"`
	State       string       `json:"state"`
	MaxConn     int          `json:"max_conn"`
	FEConn      int          `json:"fe_conn"`
	BEConn      int          `json:"be_conn"`
	ConnRetries int          `json:"conn_retries"`
	Servers     []serverView `json:"servers,omitempty"`
}

type serverView struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	Up          bool   `json:"up"`
	Weight      int    `json:"weight"`
	ActiveConns int    `json:"active_conns"`
}

func newProxyView(p *proxycore.Proxy) proxyView {
	servers := p.Servers()
	views := make([]serverView, 0, len(servers))
	for _, s := range servers {
		views = append(views, newServerView(s))
	}
	return proxyView{
		Name:        p.ID(),
		UUID:        p.UUID(),
		Capability:  p.Cap().String(),
		Mode:        p.Mode().String(),
		State:       p.State().String(),
		MaxConn:     p.MaxConn(),
		FEConn:      p.FEConn(),
		BEConn:      p.BEConn(),
		ConnRetries: p.ConnRetries(),
		Servers:     views,
	}
}

func newServerView(s *backend.Server) serverView {
	return serverView{
		Name:        s.ID(),
		Address:     s.Addr(),
		Up:          s.IsUp(),
		Weight:      s.Weight(),
		ActiveConns: s.ActiveConns(),
	}
}

func (h *handlers) listProxies(w http.ResponseWriter, r *http.Request) {
	proxies := h.registry.Proxies()
	views := make([]proxyView, 0, len(proxies))
	for _, p := range proxies {
		views = append(views, newProxyView(p))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *handlers) getProxy(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	p, err := h.registry.FindProxy(name, proxycore.CapFE|proxycore.CapBE)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newProxyView(p))
}

type addBackendRequest struct {
	Name string `json:"name"`
}

func (h *handlers) addBackend(w http.ResponseWriter, r *http.Request) {
	var req addBackendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	p, err := h.registry.AddBackend(req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newProxyView(p))
}

func (h *handlers) delBackend(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	p, err := h.registry.FindProxy(name, proxycore.CapBE)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.registry.DelBackend(p); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addServerRequest struct {
	Name   string `json:"name"`
	Addr   string `json:"address"`
	Cookie string `json:"cookie"`
}

func (h *handlers) addServer(w http.ResponseWriter, r *http.Request) {
	backendName := r.PathValue("backend")

	var req addServerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	srv, err := h.registry.AddServer(backendName, req.Name, req.Addr, req.Cookie)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newServerView(srv))
}

func (h *handlers) delServer(w http.ResponseWriter, r *http.Request) {
	backendName := r.PathValue("backend")
	serverName := r.PathValue("server")

	if err := h.registry.DelServer(backendName, serverName); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) getServer(w http.ResponseWriter, r *http.Request) {
	backendName := r.PathValue("backend")
	serverName := r.PathValue("server")

	_, srv, err := h.registry.GetBackendServer(backendName, serverName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newServerView(srv))
}

type addSwitchEntryRequest struct {
	Frontend string `json:"frontend"`
	Backend  string `json:"backend"`
	Domain   string `json:"domain"`
}

func (h *handlers) addSwitchEntry(w http.ResponseWriter, r *http.Request) {
	var req addSwitchEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	if err := h.registry.AddSwitchEntry(req.Frontend, req.Backend, req.Domain); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorEnvelope struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func writeErrorMessage(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorDetail{Message: message, Type: errType}})
}

// writeError maps a proxycore error to the appropriate HTTP status: a
// lookup failure is 404, a duplicate or validation failure is 409/400,
// anything else is a 500.
func writeError(w http.ResponseWriter, err error) {
	var lookupErr *proxycore.LookupError
	var dupErr *proxycore.DuplicateError
	var validationErr *proxycore.ValidationError
	var refErr *proxycore.ReferentialIntegrityError
	var ambiguousErr *proxycore.AmbiguousError

	switch {
	case errors.As(err, &lookupErr):
		writeErrorMessage(w, http.StatusNotFound, "not_found", err.Error())
	case errors.As(err, &dupErr):
		writeErrorMessage(w, http.StatusConflict, "duplicate", err.Error())
	case errors.As(err, &refErr):
		writeErrorMessage(w, http.StatusConflict, "referential_integrity", err.Error())
	case errors.As(err, &ambiguousErr):
		writeErrorMessage(w, http.StatusConflict, "ambiguous", err.Error())
	case errors.As(err, &validationErr):
		writeErrorMessage(w, http.StatusBadRequest, "validation_error", err.Error())
	default:
		writeErrorMessage(w, http.StatusInternalServerError, "server_error", "an internal error occurred")
	}
}
