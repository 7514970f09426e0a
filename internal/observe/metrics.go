// Package observe provides the OpenTelemetry metrics of the pinyin engine:
// decode latency and outcomes, lattice expansion volume, training commits,
// and HTTP request latency.
//
// A Prometheus exporter bridge is installed by [InitProvider] so the
// metrics can be scraped from /metrics. Tests should use [NewMetrics] with
// their own [metric.MeterProvider]. A nil *Metrics records nothing.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all engine metrics.
const meterName = "github.com/gcbaptista/go-pinyin-engine"

// Metrics holds the metric instruments of the engine.
type Metrics struct {
	// DecodeDuration tracks wall time of a decode call.
	DecodeDuration metric.Float64Histogram

	// Decodes counts decode calls. Use with attribute:
	//   attribute.String("outcome", "ok"|"not_found"|"timeout"|"invalid"|"error")
	Decodes metric.Int64Counter

	// CandidatesExpanded counts candidates offered to lattice merges.
	CandidatesExpanded metric.Int64Counter

	// TrainingPairs counts training commits per token pair. Use with attribute:
	//   attribute.String("status", "committed"|"failed")
	TrainingPairs metric.Int64Counter

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("route", ...), attribute.Int("status", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets are histogram boundaries in seconds sized for interactive
// candidate lookups.
var latencyBuckets = []float64{
	0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1,
}

// NewMetrics creates a fully initialised [Metrics] from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.DecodeDuration, err = m.Float64Histogram("pinyin.decode.duration",
		metric.WithDescription("Latency of a decode call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Decodes, err = m.Int64Counter("pinyin.decode.requests",
		metric.WithDescription("Total decode calls by outcome."),
	); err != nil {
		return nil, err
	}
	if met.CandidatesExpanded, err = m.Int64Counter("pinyin.decode.candidates",
		metric.WithDescription("Candidates offered to the lattice merge policy."),
	); err != nil {
		return nil, err
	}
	if met.TrainingPairs, err = m.Int64Counter("pinyin.training.pairs",
		metric.WithDescription("Training token pairs by commit status."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("pinyin.http.request.duration",
		metric.WithDescription("HTTP request latency by method, route and status."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// RecordDecode records the latency and outcome of one decode call.
func (m *Metrics) RecordDecode(ctx context.Context, took time.Duration, outcome string) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.DecodeDuration.Record(ctx, took.Seconds(), attrs)
	m.Decodes.Add(ctx, 1, attrs)
}

// RecordExpanded adds n expanded candidates.
func (m *Metrics) RecordExpanded(ctx context.Context, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CandidatesExpanded.Add(ctx, int64(n))
}

// RecordTrainingPair counts one training pair commit attempt.
func (m *Metrics) RecordTrainingPair(ctx context.Context, committed bool) {
	if m == nil {
		return
	}
	status := "committed"
	if !committed {
		status = "failed"
	}
	m.TrainingPairs.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, took time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestDuration.Record(ctx, took.Seconds(),
		metric.WithAttributes(
			attribute.String("method", method),
			attribute.String("route", route),
			attribute.Int("status", status),
		),
	)
}
