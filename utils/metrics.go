package utils

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "telemetry-logger/pipeline"

// Metrics holds the pipeline's OpenTelemetry instruments. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	samplesProduced  metric.Int64Counter
	samplesDropped   metric.Int64Counter
	recordsPersisted metric.Int64Counter
	persistErrors    metric.Int64Counter
	verdicts         metric.Int64Counter
}

// NewMetrics registers the pipeline instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)
	m := &Metrics{}
	var err error

	if m.samplesProduced, err = meter.Int64Counter("pipeline.samples.produced",
		metric.WithDescription("Averaged samples computed by the producer")); err != nil {
		return nil, fmt.Errorf("create samples.produced counter: %w", err)
	}
	if m.samplesDropped, err = meter.Int64Counter("pipeline.samples.dropped",
		metric.WithDescription("Averaged samples dropped on a full queue")); err != nil {
		return nil, fmt.Errorf("create samples.dropped counter: %w", err)
	}
	if m.recordsPersisted, err = meter.Int64Counter("pipeline.records.persisted",
		metric.WithDescription("Records appended to storage")); err != nil {
		return nil, fmt.Errorf("create records.persisted counter: %w", err)
	}
	if m.persistErrors, err = meter.Int64Counter("pipeline.records.errors",
		metric.WithDescription("Failed storage appends")); err != nil {
		return nil, fmt.Errorf("create records.errors counter: %w", err)
	}
	if m.verdicts, err = meter.Int64Counter("pipeline.watchdog.verdicts",
		metric.WithDescription("Watchdog verdicts by outcome")); err != nil {
		return nil, fmt.Errorf("create watchdog.verdicts counter: %w", err)
	}
	return m, nil
}

func (m *Metrics) SampleProduced(ctx context.Context) {
	if m != nil {
		m.samplesProduced.Add(ctx, 1)
	}
}

func (m *Metrics) SampleDropped(ctx context.Context) {
	if m != nil {
		m.samplesDropped.Add(ctx, 1)
	}
}

func (m *Metrics) RecordPersisted(ctx context.Context) {
	if m != nil {
		m.recordsPersisted.Add(ctx, 1)
	}
}

func (m *Metrics) PersistFailed(ctx context.Context) {
	if m != nil {
		m.persistErrors.Add(ctx, 1)
	}
}

func (m *Metrics) Verdict(ctx context.Context, verdict string) {
	if m != nil {
		m.verdicts.Add(ctx, 1, metric.WithAttributes(attribute.String("verdict", verdict)))
	}
}

// InitMeterProvider returns an OTLP/gRPC-exporting provider when an endpoint
// is configured and a no-op provider otherwise. The returned shutdown func
// is always non-nil.
func InitMeterProvider(ctx context.Context, cfg MetricsConfig) (metric.MeterProvider, func(context.Context) error, error) {
	if cfg.OTLPEndpoint == "" {
		return noop.NewMeterProvider(), func(context.Context) error { return nil }, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	interval := time.Duration(cfg.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 10 * time.Second
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(mp)
	return mp, mp.Shutdown, nil
}
