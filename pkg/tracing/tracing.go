// Package tracing installs the process-wide OpenTelemetry provider and hands
// out the tracers the warehouse packages open spans with.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationPrefix = "github.com/utafrali/WarehouseGo/"

// Settings selects whether and where spans are exported.
type Settings struct {
	Enabled     bool
	Service     string
	Version     string
	Environment string
	Collector   string // OTLP/HTTP host:port
	Insecure    bool
	SampleRatio float64
}

// Defaults returns disabled settings for service pointing at a local
// collector.
func Defaults(service string) Settings {
	return Settings{
		Service:     service,
		Version:     "0.1.0",
		Environment: "development",
		Collector:   "localhost:4318",
		Insecure:    true,
		SampleRatio: 1,
	}
}

// Shutdown flushes buffered spans and stops the exporter.
type Shutdown func(context.Context) error

// Start installs the W3C trace-context and baggage propagators and, when s is
// enabled, an OTLP/HTTP exporting tracer provider. With tracing disabled a
// caller's trace context is still carried from HTTP headers into Kafka
// headers.
func Start(ctx context.Context, s Settings) (Shutdown, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	if !s.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(s.Collector)}
	if s.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter for %s: %w", s.Collector, err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(s.Service),
			semconv.ServiceVersion(s.Version),
			semconv.DeploymentEnvironment(s.Environment),
		),
		resource.WithHost(),
	)
	if err != nil {
		return nil, fmt.Errorf("trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(s.sampler()),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// sampler keeps everything at ratio 1, nothing at 0, and otherwise follows
// the parent's decision so one request is never half traced.
func (s Settings) sampler() sdktrace.Sampler {
	switch {
	case s.SampleRatio >= 1:
		return sdktrace.AlwaysSample()
	case s.SampleRatio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(s.SampleRatio))
	}
}

// Tracer returns the tracer for a component path such as "pkg/database".
func Tracer(component string) trace.Tracer {
	return otel.Tracer(instrumentationPrefix + component)
}
