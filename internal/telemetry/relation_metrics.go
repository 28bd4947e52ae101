package internaltelemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// RelationMetrics holds the metric instruments of a transaction.
type RelationMetrics struct {
	LazyLoadsCounter                 metric.Int64Counter
	LazyLoadLatencyHistogram         metric.Int64Histogram
	CommandsCounter                  metric.Int64Counter
	CommandFailuresCounter           metric.Int64Counter
	RegisteredEndPointsUpDownCounter metric.Int64UpDownCounter
}

// NewRelationMetrics creates and registers all the relation metrics.
func NewRelationMetrics(meter metric.Meter) (*RelationMetrics, error) {
	lazyLoadsCounter, err := meter.Int64Counter(
		"gojorel.relation.lazy_loads_total",
		metric.WithDescription("Total number of lazy loads, by kind."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	lazyLoadLatencyHistogram, err := meter.Int64Histogram(
		"gojorel.relation.lazy_load.duration",
		metric.WithDescription("The latency of lazy loads."),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	commandsCounter, err := meter.Int64Counter(
		"gojorel.relation.commands_total",
		metric.WithDescription("Total number of relation commands performed, by operation."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	commandFailuresCounter, err := meter.Int64Counter(
		"gojorel.relation.command_failures_total",
		metric.WithDescription("Total number of relation operations that failed, by operation."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	registeredEndPoints, err := meter.Int64UpDownCounter(
		"gojorel.relation.registered_endpoints",
		metric.WithDescription("Number of end-points registered in transactions."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	return &RelationMetrics{
		LazyLoadsCounter:                 lazyLoadsCounter,
		LazyLoadLatencyHistogram:         lazyLoadLatencyHistogram,
		CommandsCounter:                  commandsCounter,
		CommandFailuresCounter:           commandFailuresCounter,
		RegisteredEndPointsUpDownCounter: registeredEndPoints,
	}, nil
}

// NewNoopRelationMetrics returns instruments that record nothing.
func NewNoopRelationMetrics() *RelationMetrics {
	m, _ := NewRelationMetrics(noop.NewMeterProvider().Meter(""))
	return m
}

// RecordLazyLoad counts one lazy load of the given kind and its latency.
func (m *RelationMetrics) RecordLazyLoad(ctx context.Context, kind string, started time.Time, err error) {
	attrs := metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.Bool("error", err != nil),
	)
	m.LazyLoadsCounter.Add(ctx, 1, attrs)
	m.LazyLoadLatencyHistogram.Record(ctx, time.Since(started).Milliseconds(), attrs)
}

// RecordCommand counts one relation operation and, if err is set, its failure.
func (m *RelationMetrics) RecordCommand(ctx context.Context, operation string, err error) {
	attrs := metric.WithAttributes(attribute.String("operation", operation))
	m.CommandsCounter.Add(ctx, 1, attrs)
	if err != nil {
		m.CommandFailuresCounter.Add(ctx, 1, attrs)
	}
}
