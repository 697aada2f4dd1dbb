package tracing

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"proxycore/pkg/config"
)

func TestHTTPMiddlewarePassesThroughAndRecordsStatus(t *testing.T) {
	tracer, err := New(&config.TracingConfig{Enabled: false})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	})

	handler := HTTPMiddleware(tracer, "test")(next)

	req := httptest.NewRequest(http.MethodGet, "/v1/proxies", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !called {
		t.Fatal("expected wrapped handler to run")
	}
	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rec.Code)
	}
}
