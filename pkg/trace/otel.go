// Package trace wires the assessment pipeline's trace_id/span_id/baggage
// propagation (spec §4.9) to a real OpenTelemetry SDK tracer, grounded in
// the teacher's pkg/trace.Tracer, scoped down to the single TraceCfg this
// module's configuration package exposes instead of the teacher's full
// application Cfg.
package trace

import (
	"context"
	"time"

	jaegerPropagator "go.opentelemetry.io/contrib/propagators/jaeger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/dc4eu/vc-cryptocore/pkg/configuration"
	"github.com/dc4eu/vc-cryptocore/pkg/logger"
)

// Tracer wraps an OpenTelemetry TracerProvider and the Tracer obtained
// from it, following the teacher's embed-and-wrap convention.
type Tracer struct {
	TP *sdktrace.TracerProvider
	trace.Tracer
	log *logger.Log
}

func newExporter(ctx context.Context, cfg configuration.TraceCfg) (sdktrace.SpanExporter, error) {
	if cfg.OTLPEndpoint == "" {
		return nil, nil
	}
	return otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
		otlptracehttp.WithInsecure(),
		otlptracehttp.WithTimeout(10*time.Second),
	)
}

func newTraceProvider(exp sdktrace.SpanExporter, serviceName string) *sdktrace.TracerProvider {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		)),
	}
	if exp != nil {
		opts = append(opts, sdktrace.WithBatcher(exp))
	}
	return sdktrace.NewTracerProvider(opts...)
}

// New builds a Tracer from cfg. An empty cfg.OTLPEndpoint produces a
// provider with no exporter (spans are created and propagated, never
// shipped) so the assessment pipeline can always obtain trace/span ids
// even when no collector is configured.
func New(ctx context.Context, cfg configuration.TraceCfg, log *logger.Log) (*Tracer, error) {
	exp, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tracer := &Tracer{
		TP:  newTraceProvider(exp, cfg.ServiceName),
		log: log,
	}

	otel.SetTracerProvider(tracer.TP)
	if cfg.PropagateJaeger {
		otel.SetTextMapPropagator(jaegerPropagator.Jaeger{})
	}

	tracer.Tracer = otel.Tracer(cfg.ServiceName)

	return tracer, nil
}

// StartSpan starts a span named name and returns the derived context
// alongside its trace_id/span_id, ready to populate an
// assessment.TraceContext.
func (t *Tracer) StartSpan(ctx context.Context, name string) (context.Context, string, string) {
	spanCtx, span := t.Tracer.Start(ctx, name)
	sc := span.SpanContext()
	return spanCtx, sc.TraceID().String(), sc.SpanID().String()
}

// Annotate attaches attrs to the span active in ctx, converting each value
// through SafeAttr so a caller can pass pointer-typed claim/result fields
// straight through without building attribute.KeyValue itself. A no-op if
// ctx carries no recording span (e.g. the pipeline ran without a tracer).
func (t *Tracer) Annotate(ctx context.Context, attrs map[string]any) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		kvs = append(kvs, SafeAttr(k, v))
	}
	span.SetAttributes(kvs...)
}

// Shutdown flushes and shuts down the tracer provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	t.log.Info("shutting down tracer")
	return t.TP.Shutdown(ctx)
}
