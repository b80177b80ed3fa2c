// Package adapter wires the server's internals to OpenTelemetry and
// heptiolabs/healthcheck, replacing the teacher's adapter package
// (generic OTelAdapter/HealthAdapter/AuditAdapter/HotReloadAdapter
// stubs written against a plugin model) with adapters bound to
// shmrpc's real tracer/meter and health-check usage.
package adapter

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Tracer returns the global OTel tracer for the given instrumentation
// name, used by internal/transport the same way pkg/shm.Buffer holds a
// trace.Tracer field.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// Meter returns the global OTel meter for the given instrumentation name.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}
