package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/flowkit/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// Enabled turns metric export on.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// ServiceName is the name of the service.
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`
	// ServiceVersion is the version of the service.
	ServiceVersion string `yaml:"service_version" mapstructure:"service_version"`
	// Environment is the deployment environment (dev, staging, prod).
	Environment string `yaml:"environment" mapstructure:"environment"`
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	// Insecure allows insecure connections (for development).
	Insecure bool `yaml:"insecure" mapstructure:"insecure"`
	// Interval is the metric export interval.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider and installs it
// globally. The returned provider should be shut down on exit.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(newResource(config.ServiceName, config.ServiceVersion, config.Environment)),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments recorded by flow runs and units. Its Record
// methods do nothing on a nil *Metrics.
type Metrics struct {
	flowRuns     metric.Int64Counter
	flowDuration metric.Float64Histogram
	flowActive   metric.Int64UpDownCounter
	unitRuns     metric.Int64Counter
	unitDuration metric.Float64Histogram
	unitErrors   metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	flowRuns, err := meter.Int64Counter("flow.runs",
		metric.WithDescription("Completed flow runs by flow, final tag and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating flow.runs counter: %w", err)
	}

	flowDuration, err := meter.Float64Histogram("flow.duration",
		metric.WithDescription("Duration of flow runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating flow.duration histogram: %w", err)
	}

	flowActive, err := meter.Int64UpDownCounter("flow.active",
		metric.WithDescription("Flow runs currently in progress"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating flow.active counter: %w", err)
	}

	unitRuns, err := meter.Int64Counter("unit.runs",
		metric.WithDescription("Unit executions by node, tag and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating unit.runs counter: %w", err)
	}

	unitDuration, err := meter.Float64Histogram("unit.duration",
		metric.WithDescription("Duration of unit executions in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating unit.duration histogram: %w", err)
	}

	unitErrors, err := meter.Int64Counter("unit.errors",
		metric.WithDescription("Unit failures by node and phase"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating unit.errors counter: %w", err)
	}

	return &Metrics{
		flowRuns:     flowRuns,
		flowDuration: flowDuration,
		flowActive:   flowActive,
		unitRuns:     unitRuns,
		unitDuration: unitDuration,
		unitErrors:   unitErrors,
	}, nil
}

// RecordFlowStart increments the active run count.
func (m *Metrics) RecordFlowStart(ctx context.Context, flow string) {
	if m == nil {
		return
	}
	m.flowActive.Add(ctx, 1, metric.WithAttributes(attribute.String("flow", flow)))
}

// RecordFlowEnd decrements active runs and records the finished run.
func (m *Metrics) RecordFlowEnd(ctx context.Context, flow, tag, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.flowActive.Add(ctx, -1, metric.WithAttributes(attribute.String("flow", flow)))
	m.flowRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("flow", flow),
		attribute.String("tag", tag),
		attribute.String("status", status),
	))
	m.flowDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("flow", flow),
	))
}

// RecordUnit records one unit execution.
func (m *Metrics) RecordUnit(ctx context.Context, node, tag, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.unitRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("node", node),
		attribute.String("tag", tag),
		attribute.String("status", status),
	))
	m.unitDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("node", node),
	))
}

// RecordUnitError records a unit failure in the given phase.
func (m *Metrics) RecordUnitError(ctx context.Context, node, phase string) {
	if m == nil {
		return
	}
	m.unitErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("node", node),
		attribute.String("phase", phase),
	))
}
