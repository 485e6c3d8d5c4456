package infrastructure

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "muniflow"

// OTelProviders bundles the metric provider and the prometheus registry
// its exporter feeds, for serving via promhttp.
type OTelProviders struct {
	MeterProvider *sdkmetric.MeterProvider
	Meter         metric.Meter
	Registry      *prometheus.Registry
}

// NewOTelProviders sets up an OpenTelemetry meter provider backed by a
// dedicated prometheus registry.
func NewOTelProviders() (*OTelProviders, error) {
	registry := prometheus.NewRegistry()

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))

	return &OTelProviders{
		MeterProvider: provider,
		Meter:         provider.Meter(meterName),
		Registry:      registry,
	}, nil
}

// Shutdown flushes and stops the meter provider
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	if p.MeterProvider == nil {
		return nil
	}
	return p.MeterProvider.Shutdown(ctx)
}

// OperationMetrics holds the executor lifecycle instruments
type OperationMetrics struct {
	OperationsStarted   metric.Int64Counter
	OperationsCompleted metric.Int64Counter
	OperationsFailed    metric.Int64Counter
	OperationsCancelled metric.Int64Counter
	RetryAttempts       metric.Int64Counter
	DuplicateSkips      metric.Int64Counter
	OperationDuration   metric.Float64Histogram
}

// NewOperationMetrics creates the executor instruments on the given meter
func NewOperationMetrics(meter metric.Meter) (*OperationMetrics, error) {
	m := &OperationMetrics{}
	var err error

	if m.OperationsStarted, err = meter.Int64Counter("muniflow_operations_started_total",
		metric.WithDescription("Async operations started")); err != nil {
		return nil, err
	}
	if m.OperationsCompleted, err = meter.Int64Counter("muniflow_operations_completed_total",
		metric.WithDescription("Async operations completed successfully")); err != nil {
		return nil, err
	}
	if m.OperationsFailed, err = meter.Int64Counter("muniflow_operations_failed_total",
		metric.WithDescription("Async operations ended in terminal failure")); err != nil {
		return nil, err
	}
	if m.OperationsCancelled, err = meter.Int64Counter("muniflow_operations_cancelled_total",
		metric.WithDescription("Async operations cancelled")); err != nil {
		return nil, err
	}
	if m.RetryAttempts, err = meter.Int64Counter("muniflow_operation_retries_total",
		metric.WithDescription("Retry attempts scheduled for transient failures")); err != nil {
		return nil, err
	}
	if m.DuplicateSkips, err = meter.Int64Counter("muniflow_operation_duplicate_skips_total",
		metric.WithDescription("Load requests rejected because one was already in flight")); err != nil {
		return nil, err
	}
	if m.OperationDuration, err = meter.Float64Histogram("muniflow_operation_duration_seconds",
		metric.WithDescription("End-to-end async operation duration")); err != nil {
		return nil, err
	}

	return m, nil
}
