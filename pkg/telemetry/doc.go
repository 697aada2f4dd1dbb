// Package telemetry groups the control plane's observability
// subsystems: pkg/telemetry/health (liveness/readiness probes) and
// pkg/telemetry/tracing (OpenTelemetry spans for the admin API and the
// registry bootstrap pass). Prometheus metrics live
// in the separate pkg/metrics package.
package telemetry
