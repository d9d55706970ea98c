/*
Package observability provides tools for monitoring the scheduler.

Metrics turns lifecycle hooks into Prometheus series; SetupTracing points the
global OpenTelemetry tracer provider, used by the runner for its run and
drive spans, at an OTLP collector.
*/
package observability
