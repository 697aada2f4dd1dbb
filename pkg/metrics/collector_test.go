package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	return NewCollector(DefaultConfig(), prometheus.NewRegistry())
}

func TestNewCollectorUsesDefaultsWhenConfigNil(t *testing.T) {
	c := NewCollector(nil, nil)
	if c.registry == nil {
		t.Fatal("expected registry to be created")
	}
}

func TestRecordSessionIncrementsCounterAndHistogram(t *testing.T) {
	c := newTestCollector(t)
	c.RecordSession("web", "success", 150*time.Millisecond)

	body := scrape(t, c)
	if !strings.Contains(body, `proxycore_proxy_sessions_total{proxy="web",status="success"} 1`) {
		t.Errorf("expected sessions_total metric in output:\n%s", body)
	}
}

func TestSetFrontendConnectionsReportsGauge(t *testing.T) {
	c := newTestCollector(t)
	c.SetFrontendConnections("web", 42)

	body := scrape(t, c)
	if !strings.Contains(body, `proxycore_proxy_frontend_connections{proxy="web"} 42`) {
		t.Errorf("expected frontend_connections gauge in output:\n%s", body)
	}
}

func TestRecordServerCheckTracksPassAndFail(t *testing.T) {
	c := newTestCollector(t)
	c.RecordServerCheck("web_pool", "s1", true, 10*time.Millisecond)
	c.RecordServerCheck("web_pool", "s1", false, 5*time.Millisecond)

	body := scrape(t, c)
	if !strings.Contains(body, `server_checks_total{backend="web_pool",result="pass",server="s1"} 1`) {
		t.Errorf("expected pass check recorded:\n%s", body)
	}
	if !strings.Contains(body, `server_checks_total{backend="web_pool",result="fail",server="s1"} 1`) {
		t.Errorf("expected fail check recorded:\n%s", body)
	}
}

func TestSetServerUpReflectsBooleanAsGauge(t *testing.T) {
	c := newTestCollector(t)
	c.SetServerUp("web_pool", "s1", true)

	body := scrape(t, c)
	if !strings.Contains(body, `server_up{backend="web_pool",server="s1"} 1`) {
		t.Errorf("expected server_up=1:\n%s", body)
	}

	c.SetServerUp("web_pool", "s1", false)
	body = scrape(t, c)
	if !strings.Contains(body, `server_up{backend="web_pool",server="s1"} 0`) {
		t.Errorf("expected server_up=0:\n%s", body)
	}
}

func TestRecordRateLimitDecisionTracksVerdicts(t *testing.T) {
	c := newTestCollector(t)
	c.RecordRateLimitDecision("web", true)
	c.RecordRateLimitDecision("web", false)

	body := scrape(t, c)
	if !strings.Contains(body, `rate_limit_decisions_total{proxy="web",verdict="admitted"} 1`) {
		t.Errorf("expected admitted verdict:\n%s", body)
	}
	if !strings.Contains(body, `rate_limit_decisions_total{proxy="web",verdict="denied"} 1`) {
		t.Errorf("expected denied verdict:\n%s", body)
	}
}

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from metrics handler, got %d", rec.Code)
	}
	return rec.Body.String()
}
