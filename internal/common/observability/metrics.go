package observability

import (
	"context"
	"log"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability owns its prometheus registry so building a second instance
// never collides with an earlier one on the process-wide default registry.
type Observability struct {
	registry         *promclient.Registry
	meterProvider    *metric.MeterProvider
	meter            otelmetric.Meter
	questionCounter  otelmetric.Int64Counter
	questionDuration otelmetric.Float64Histogram
}

func New(serviceName string) *Observability {
	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	questionCounter, _ := meter.Int64Counter(
		"questions.processed",
		otelmetric.WithDescription("Number of questions processed"),
	)

	questionDuration, _ := meter.Float64Histogram(
		"questions.duration",
		otelmetric.WithDescription("Question processing duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		registry:         registry,
		meterProvider:    provider,
		meter:            meter,
		questionCounter:  questionCounter,
		questionDuration: questionDuration,
	}
}

// Gatherer exposes this instance's metrics for the /metrics endpoint.
func (o *Observability) Gatherer() promclient.Gatherer {
	if o.registry == nil {
		return promclient.NewRegistry()
	}
	return o.registry
}

func (o *Observability) RecordQuestion(ctx context.Context, outcome string) {
	if o.questionCounter != nil {
		o.questionCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("outcome", outcome),
		))
	}
}

func (o *Observability) RecordQuestionDuration(ctx context.Context, duration time.Duration, outcome string) {
	if o.questionDuration != nil {
		o.questionDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("outcome", outcome),
		))
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.meterProvider.Shutdown(ctx)
	}
}
