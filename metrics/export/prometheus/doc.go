// Package prometheus renders otpauth metrics in the Prometheus text
// exposition format. Counters are named otpauth_*_total; the only histogram
// is otpauth_authenticate_latency_seconds. Nothing is registered globally:
// mount Exporter as an http.Handler.
package prometheus
