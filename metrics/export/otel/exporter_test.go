package otel

import (
	"context"
	"errors"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/educatebharat/otpauth"
)

type fakeSource struct {
	snapshot otpauth.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() otpauth.MetricsSnapshot { return f.snapshot }
func (f *fakeSource) AuditDropped() uint64                     { return f.dropped }

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					out[m.Name] = dp.Value
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					out[m.Name] = dp.Value
				}
			}
		}
	}
	return out
}

func TestRegisterObservesSnapshot(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	src := &fakeSource{
		snapshot: otpauth.MetricsSnapshot{
			Counters: map[otpauth.MetricID]uint64{
				otpauth.MetricOTPIssued:      4,
				otpauth.MetricRefreshFailure: 2,
			},
			Histograms: map[otpauth.MetricID][]uint64{
				otpauth.MetricAuthenticateLatency: {1, 1, 0, 0, 0, 0, 0, 1},
			},
		},
		dropped: 5,
	}

	exp, err := Register(provider.Meter("otpauth-test"), src)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	defer exp.Close()

	got := collect(t, reader)
	want := map[string]int64{
		"otpauth_otp_issued_total":                              4,
		"otpauth_refresh_failure_total":                         2,
		"otpauth_audit_dropped_total":                           5,
		"otpauth_authenticate_latency_seconds_bucket_le_0_0001": 2,
		"otpauth_authenticate_latency_seconds_count":            3,
	}
	for name, v := range want {
		if got[name] != v {
			t.Fatalf("%s = %d, want %d (all: %v)", name, got[name], v, got)
		}
	}
}

func TestRegisterRejectsNil(t *testing.T) {
	provider := sdkmetric.NewMeterProvider()
	defer provider.Shutdown(context.Background())

	if _, err := Register(nil, &fakeSource{}); !errors.Is(err, ErrNilMeter) {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
	if _, err := Register(provider.Meter("x"), nil); !errors.Is(err, ErrNilSource) {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
}

func TestCloseNil(t *testing.T) {
	var e *Exporter
	if err := e.Close(); err != nil {
		t.Fatalf("Close on nil exporter: %v", err)
	}
}
