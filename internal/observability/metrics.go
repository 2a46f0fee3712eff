package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// GatewayMetrics holds the custom metrics recorded per GraphQL request.
type GatewayMetrics struct {
	requestDuration metric.Float64Histogram
	requestCounter  metric.Int64Counter
	errorCounter    metric.Int64Counter
	activeRequests  metric.Int64UpDownCounter
	queryDepth      metric.Int64Histogram
	queryCost       metric.Float64Histogram
	rejectedQueries metric.Int64Counter
	upstreamCalls   metric.Int64Counter
	snapshotObjects metric.Int64Histogram
}

// InitGatewayMetrics registers the gateway's metric instruments.
func InitGatewayMetrics() (*GatewayMetrics, error) {
	meter := otel.Meter("rest-graphql")

	requestDuration, err := meter.Float64Histogram(
		"graphql.request.duration",
		metric.WithDescription("Duration of GraphQL requests in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request duration histogram: %w", err)
	}

	requestCounter, err := meter.Int64Counter(
		"graphql.requests.total",
		metric.WithDescription("Total number of GraphQL requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request counter: %w", err)
	}

	errorCounter, err := meter.Int64Counter(
		"graphql.errors.total",
		metric.WithDescription("Total number of GraphQL requests that returned errors"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create error counter: %w", err)
	}

	activeRequests, err := meter.Int64UpDownCounter(
		"graphql.requests.active",
		metric.WithDescription("Number of in-flight GraphQL requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active requests counter: %w", err)
	}

	queryDepth, err := meter.Int64Histogram(
		"graphql.query.depth",
		metric.WithDescription("Selection depth of analyzed queries"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create query depth histogram: %w", err)
	}

	queryCost, err := meter.Float64Histogram(
		"graphql.query.cost",
		metric.WithDescription("Estimated cost of analyzed queries"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create query cost histogram: %w", err)
	}

	rejectedQueries, err := meter.Int64Counter(
		"graphql.queries.rejected",
		metric.WithDescription("Queries rejected by depth or cost limits"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rejected queries counter: %w", err)
	}

	upstreamCalls, err := meter.Int64Counter(
		"gateway.upstream.calls",
		metric.WithDescription("REST calls issued to the upstream during fetch planning"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream calls counter: %w", err)
	}

	snapshotObjects, err := meter.Int64Histogram(
		"gateway.snapshot.objects",
		metric.WithDescription("Objects materialized into the execution snapshot per request"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot objects histogram: %w", err)
	}

	return &GatewayMetrics{
		requestDuration: requestDuration,
		requestCounter:  requestCounter,
		errorCounter:    errorCounter,
		activeRequests:  activeRequests,
		queryDepth:      queryDepth,
		queryCost:       queryCost,
		rejectedQueries: rejectedQueries,
		upstreamCalls:   upstreamCalls,
		snapshotObjects: snapshotObjects,
	}, nil
}

// RecordRequestStart marks a request as in flight.
func (m *GatewayMetrics) RecordRequestStart(ctx context.Context) {
	if m == nil {
		return
	}
	m.activeRequests.Add(ctx, 1)
}

// RecordRequestEnd records a finished request.
func (m *GatewayMetrics) RecordRequestEnd(ctx context.Context, operation string, duration time.Duration, hadErrors bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("operation", operation))
	m.activeRequests.Add(ctx, -1)
	m.requestCounter.Add(ctx, 1, attrs)
	m.requestDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	if hadErrors {
		m.errorCounter.Add(ctx, 1, attrs)
	}
}

// RecordAnalysis records the measured shape of an analyzed query.
func (m *GatewayMetrics) RecordAnalysis(ctx context.Context, depth int, cost float64) {
	if m == nil {
		return
	}
	m.queryDepth.Record(ctx, int64(depth))
	m.queryCost.Record(ctx, cost)
}

// RecordRejection counts a query turned away by limits.
func (m *GatewayMetrics) RecordRejection(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.rejectedQueries.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordUpstreamCall counts one REST call to the upstream.
func (m *GatewayMetrics) RecordUpstreamCall(ctx context.Context, resource, kind string) {
	if m == nil {
		return
	}
	m.upstreamCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("resource", resource),
		attribute.String("kind", kind),
	))
}

// RecordSnapshotSize records how many objects a request's snapshot holds.
func (m *GatewayMetrics) RecordSnapshotSize(ctx context.Context, objects int) {
	if m == nil {
		return
	}
	m.snapshotObjects.Record(ctx, int64(objects))
}
