package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys used throughout the control plane. Custom keys
// use the "proxycore.*" namespace; HTTP keys follow OpenTelemetry
// semantic conventions.
const (
	AttrProxyName   = "proxycore.proxy.name"
	AttrProxyMode   = "proxycore.proxy.mode"
	AttrBackendName = "proxycore.backend.name"
	AttrServerName  = "proxycore.server.name"
	AttrServerAddr  = "proxycore.server.addr"
	AttrAlgorithm   = "proxycore.algorithm"
)

// SetProxyAttributes annotates span with the proxy a maintenance sweep
// or admin-API call is operating on.
func SetProxyAttributes(span trace.Span, name, mode string) {
	span.SetAttributes(
		attribute.String(AttrProxyName, name),
		attribute.String(AttrProxyMode, mode),
	)
}

// SetServerAttributes annotates span with the backend/server pair a
// health check or load-balancing decision targeted.
func SetServerAttributes(span trace.Span, backend, server, addr string) {
	span.SetAttributes(
		attribute.String(AttrBackendName, backend),
		attribute.String(AttrServerName, server),
		attribute.String(AttrServerAddr, addr),
	)
}
