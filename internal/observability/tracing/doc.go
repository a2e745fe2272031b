// Package tracing provides OpenTelemetry tracing integration: an
// HTTP middleware that starts a span per request and a gRPC unary
// client interceptor that propagates the span across the wire via
// outgoing metadata.
//
// No TracerProvider/exporter is configured here; GetTracer draws on
// whatever provider the process registers globally (the no-op
// provider absent one), so every span is free until a caller wires an
// exporter.
package tracing
