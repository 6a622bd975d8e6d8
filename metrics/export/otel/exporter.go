package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/metric"

	"github.com/educatebharat/otpauth"
	"github.com/educatebharat/otpauth/metrics/export/internaldefs"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// Source supplies metric values. *otpauth.Engine satisfies it.
type Source interface {
	MetricsSnapshot() otpauth.MetricsSnapshot
	AuditDropped() uint64
}

type counterBinding struct {
	id         otpauth.MetricID
	instrument metric.Int64ObservableCounter
}

// Exporter keeps the callback registration alive until Close.
type Exporter struct {
	source       Source
	registration metric.Registration

	counters     []counterBinding
	buckets      [8]metric.Int64ObservableGauge
	count        metric.Int64ObservableGauge
	auditDropped metric.Int64ObservableCounter
}

// Register creates the instruments on meter and starts observing source.
func Register(meter metric.Meter, source Source) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{source: source}
	var observables []metric.Observable

	for _, def := range internaldefs.Counters {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", def.Name, err)
		}
		e.counters = append(e.counters, counterBinding{id: def.ID, instrument: ins})
		observables = append(observables, ins)
	}

	h := internaldefs.LatencyHistogram
	for i, suffix := range internaldefs.BoundSuffixes {
		name := h.Name + "_bucket_le_" + suffix
		ins, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative bucket count. "+h.Help))
		if err != nil {
			return nil, fmt.Errorf("create bucket gauge %s: %w", name, err)
		}
		e.buckets[i] = ins
		observables = append(observables, ins)
	}
	count, err := meter.Int64ObservableGauge(h.Name+"_count", metric.WithDescription("Sample count. "+h.Help))
	if err != nil {
		return nil, fmt.Errorf("create count gauge: %w", err)
	}
	e.count = count
	observables = append(observables, count)

	dropped, err := meter.Int64ObservableCounter(internaldefs.AuditDropped, metric.WithDescription(internaldefs.AuditDroppedHelp))
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	e.auditDropped = dropped
	observables = append(observables, dropped)

	e.registration, err = meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()

	for _, c := range e.counters {
		o.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]))
	}
	if raw, ok := snapshot.Histograms[internaldefs.LatencyHistogram.ID]; ok {
		cumulative := internaldefs.Cumulative(raw)
		for i, ins := range e.buckets {
			o.ObserveInt64(ins, int64(cumulative[i]))
		}
		o.ObserveInt64(e.count, int64(cumulative[len(cumulative)-1]))
	}
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
