package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability owns the OpenTelemetry meter and tracer providers.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider tracerShutdowner
	meter          otelmetric.Meter
	runCounter     otelmetric.Int64Counter
	runDuration    otelmetric.Float64Histogram
	decisions      otelmetric.Int64Counter
}

// New installs a meter provider exporting through Prometheus and, when
// jaegerEndpoint is set, a tracer provider exporting spans to Jaeger.
func New(serviceName, jaegerEndpoint string) *Observability {
	o := &Observability{}

	if jaegerEndpoint != "" {
		tp, err := newTracerProvider(serviceName, jaegerEndpoint)
		if err != nil {
			log.Printf("Failed to create Jaeger exporter: %v", err)
		} else {
			otel.SetTracerProvider(tp)
			o.tracerProvider = tp
		}
	}

	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return o
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	runCounter, _ := meter.Int64Counter(
		"allocation.runs",
		otelmetric.WithDescription("Number of allocation runs by outcome"),
	)

	runDuration, _ := meter.Float64Histogram(
		"allocation.run.duration",
		otelmetric.WithDescription("Allocation run duration"),
		otelmetric.WithUnit("ms"),
	)

	decisions, _ := meter.Int64Counter(
		"allocation.decisions",
		otelmetric.WithDescription("Application decisions by status"),
	)

	o.meterProvider = provider
	o.meter = meter
	o.runCounter = runCounter
	o.runDuration = runDuration
	o.decisions = decisions
	return o
}

// RecordRun records one allocation run outcome and its duration.
func (o *Observability) RecordRun(ctx context.Context, outcome string, duration time.Duration) {
	attrs := otelmetric.WithAttributes(attribute.String("outcome", outcome))
	if o.runCounter != nil {
		o.runCounter.Add(ctx, 1, attrs)
	}
	if o.runDuration != nil {
		o.runDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

// RecordDecisions records approved and rejected counts of a committed run.
func (o *Observability) RecordDecisions(ctx context.Context, approved, rejected int) {
	if o.decisions == nil {
		return
	}
	o.decisions.Add(ctx, int64(approved), otelmetric.WithAttributes(attribute.String("status", "approved")))
	o.decisions.Add(ctx, int64(rejected), otelmetric.WithAttributes(attribute.String("status", "rejected")))
}

func (o *Observability) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
}
