// Package observe provides the OpenTelemetry metric instruments recorded by
// the game service and the HTTP layer.
//
// A Prometheus exporter bridge is installed by [InitProvider] so the
// instruments can be scraped from /metrics. Tests should use [NewMetrics]
// with their own [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics
const meterName = "github.com/wricardo/pushrules"

// Metrics holds all metric instruments for the application. The underlying
// OTel types handle their own synchronisation.
type Metrics struct {
	// Actions counts processed actions. Use with attributes:
	//   attribute.String("action", ...), attribute.String("outcome", ...)
	Actions metric.Int64Counter

	// ObjectsDropped counts objects lost to full tiles
	ObjectsDropped metric.Int64Counter

	// Wins counts levels completed. Use with attribute:
	//   attribute.String("pack", ...)
	Wins metric.Int64Counter

	// ActiveSessions tracks the number of live sessions
	ActiveSessions metric.Int64UpDownCounter

	// ActionDuration tracks how long an action takes to resolve
	ActionDuration metric.Float64Histogram

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("route", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// actionBuckets are histogram boundaries (in seconds) for action resolution,
// which is a full grid scan or two
var actionBuckets = []float64{
	0.00001, 0.000025, 0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.005, 0.01,
}

// NewMetrics creates a fully initialised [Metrics] using mp
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Actions, err = m.Int64Counter("pushrules.actions",
		metric.WithDescription("Total actions by action and outcome."),
	); err != nil {
		return nil, err
	}
	if met.ObjectsDropped, err = m.Int64Counter("pushrules.objects_dropped",
		metric.WithDescription("Objects discarded because their destination tile was full."),
	); err != nil {
		return nil, err
	}
	if met.Wins, err = m.Int64Counter("pushrules.wins",
		metric.WithDescription("Levels completed by pack."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("pushrules.active_sessions",
		metric.WithDescription("Number of live game sessions."),
	); err != nil {
		return nil, err
	}
	if met.ActionDuration, err = m.Float64Histogram("pushrules.action.duration",
		metric.WithDescription("Time to resolve a single action."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(actionBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("pushrules.http.request.duration",
		metric.WithDescription("HTTP request latency by method and route."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics], created on first call
// from [otel.GetMeterProvider]. Call [InitProvider] first for the instruments
// to be exported.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordAction records one processed action and how long it took
func (m *Metrics) RecordAction(ctx context.Context, action, outcome string, seconds float64) {
	m.Actions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("action", action),
			attribute.String("outcome", outcome),
		),
	)
	m.ActionDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("action", action)),
	)
}

// RecordDropped adds n objects lost to full tiles
func (m *Metrics) RecordDropped(ctx context.Context, n int) {
	if n <= 0 {
		return
	}
	m.ObjectsDropped.Add(ctx, int64(n))
}

// RecordWin records a completed level
func (m *Metrics) RecordWin(ctx context.Context, pack string) {
	m.Wins.Add(ctx, 1, metric.WithAttributes(attribute.String("pack", pack)))
}

// SessionOpened increments the live session gauge
func (m *Metrics) SessionOpened(ctx context.Context) {
	m.ActiveSessions.Add(ctx, 1)
}

// SessionClosed decrements the live session gauge by n
func (m *Metrics) SessionClosed(ctx context.Context, n int) {
	m.ActiveSessions.Add(ctx, -int64(n))
}
