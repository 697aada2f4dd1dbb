package adminapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"proxycore/pkg/config"
	"proxycore/pkg/proxycore"
	"proxycore/pkg/scheduler"
)

func newTestServer(t *testing.T) (*Server, *proxycore.Registry) {
	t.Helper()
	sched := scheduler.New()
	sched.Start()
	t.Cleanup(sched.Stop)

	registry := proxycore.NewRegistry(sched, 0)
	cfg := config.AdminConfig{
		ListenAddress:   "127.0.0.1:0",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
		IdleTimeout:     5 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		MetricsEnabled:  false,
	}
	return NewServer(cfg, registry, nil, nil, nil, BuildInfo{}), registry
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAddBackendThenListProxies(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := doJSON(t, h, http.MethodPost, "/v1/backends", addBackendRequest{Name: "web_pool"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/proxies", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var views []proxyView
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(views) != 1 || views[0].Name != "web_pool" {
		t.Fatalf("unexpected proxies: %+v", views)
	}
}

func TestAddBackendDuplicateReturnsConflict(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	doJSON(t, h, http.MethodPost, "/v1/backends", addBackendRequest{Name: "web_pool"})
	rec := doJSON(t, h, http.MethodPost, "/v1/backends", addBackendRequest{Name: "web_pool"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestAddServerThenGetServer(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	doJSON(t, h, http.MethodPost, "/v1/backends", addBackendRequest{Name: "web_pool"})

	rec := doJSON(t, h, http.MethodPost, "/v1/backends/web_pool/servers", addServerRequest{
		Name: "s1",
		Addr: "10.0.0.1:80",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/backends/web_pool/servers/s1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var sv serverView
	if err := json.Unmarshal(rec.Body.Bytes(), &sv); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if sv.Name != "s1" || sv.Address != "10.0.0.1:80" {
		t.Fatalf("unexpected server: %+v", sv)
	}
}

func TestGetServerUnknownBackendReturnsNotFound(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := doJSON(t, h, http.MethodGet, "/v1/backends/nope/servers/s1", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDelServerThenGetReturnsNotFound(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	doJSON(t, h, http.MethodPost, "/v1/backends", addBackendRequest{Name: "web_pool"})
	doJSON(t, h, http.MethodPost, "/v1/backends/web_pool/servers", addServerRequest{Name: "s1", Addr: "10.0.0.1:80"})

	rec := doJSON(t, h, http.MethodDelete, "/v1/backends/web_pool/servers/s1", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/backends/web_pool/servers/s1", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestAddSwitchEntryRequiresKnownProxies(t *testing.T) {
	s, registry := newTestServer(t)
	h := s.Handler()

	if _, err := registry.AddFrontend("fe", []string{"127.0.0.1:0"}); err != nil {
		t.Fatalf("AddFrontend: %v", err)
	}
	doJSON(t, h, http.MethodPost, "/v1/backends", addBackendRequest{Name: "web_pool"})

	rec := doJSON(t, h, http.MethodPost, "/v1/switching-rules", addSwitchEntryRequest{
		Frontend: "fe",
		Backend:  "web_pool",
		Domain:   "example.com",
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPost, "/v1/switching-rules", addSwitchEntryRequest{
		Frontend: "missing",
		Backend:  "web_pool",
		Domain:   "example.com",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown frontend, got %d", rec.Code)
	}
}
