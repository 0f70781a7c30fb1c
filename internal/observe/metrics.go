// Package observe provides the service's OpenTelemetry metrics and the
// Prometheus bridge that exposes them on /metrics.
//
// Tests should use [NewMetrics] with their own [metric.MeterProvider] to
// avoid cross-test pollution.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "gramfix"

// Metrics holds all metric instruments. All fields are safe for concurrent use.
type Metrics struct {
	// StageDuration tracks latency per pipeline stage. Attribute: stage.
	StageDuration metric.Float64Histogram

	// Corrections counts pipeline invocations. Attribute: status.
	Corrections metric.Int64Counter

	// StageFallbacks counts stages whose empty output was replaced. Attribute: stage.
	StageFallbacks metric.Int64Counter

	// HTTPRequestDuration tracks HTTP request processing time. Attributes: method, route, status.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets are in seconds; model inference dominates the upper range.
var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates all instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.StageDuration, err = m.Float64Histogram("gramfix.stage.duration",
		metric.WithDescription("Latency of a correction pipeline stage."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Corrections, err = m.Int64Counter("gramfix.corrections",
		metric.WithDescription("Correction requests by outcome."),
	); err != nil {
		return nil, err
	}
	if met.StageFallbacks, err = m.Int64Counter("gramfix.stage.fallbacks",
		metric.WithDescription("Stage outputs that were empty and replaced by their input."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("gramfix.http.request.duration",
		metric.WithDescription("HTTP request latency by method, route and status."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// RecordStage records how long a stage took.
func (m *Metrics) RecordStage(ctx context.Context, stage string, d time.Duration) {
	m.StageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordFallback counts an empty stage output.
func (m *Metrics) RecordFallback(ctx context.Context, stage string) {
	m.StageFallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordCorrection counts a finished pipeline call with its outcome.
func (m *Metrics) RecordCorrection(ctx context.Context, status string) {
	m.Corrections.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}
