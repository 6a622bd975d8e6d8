// Package otel bridges otpauth metrics into an OpenTelemetry Meter. Each
// counter becomes an Int64ObservableCounter and each latency bucket an
// Int64ObservableGauge; one callback reads a snapshot per collection. The
// caller owns the MeterProvider.
package otel
