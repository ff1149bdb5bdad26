package trace

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/wonny/propdesk/pkg/config"
)

// Version is reported as service.version
const Version = "1.0.0"

// Tracer creates spans around the analysis stages
// ⭐ SSOT: OpenTelemetry 설정은 여기서만
type Tracer struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	enabled  bool
}

// Init builds a tracer from config. Spans are exported to stdout.
func Init(cfg config.TracingConfig) (*Tracer, error) {
	return InitWithWriter(cfg, os.Stdout)
}

// InitWithWriter exports spans to w
func InitWithWriter(cfg config.TracingConfig, w io.Writer) (*Tracer, error) {
	if !cfg.Enabled {
		return Disabled(), nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create trace resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	return &Tracer{
		tracer:   provider.Tracer(cfg.ServiceName),
		provider: provider,
		enabled:  true,
	}, nil
}

// Disabled returns a tracer whose spans are no-ops
func Disabled() *Tracer {
	return &Tracer{}
}

// Shutdown flushes pending spans
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider != nil {
		return t.provider.Shutdown(ctx)
	}
	return nil
}

// StartSpan starts a span, or returns the current one when disabled
func (t *Tracer) StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if t == nil || !t.enabled {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, spanName, opts...)
}

// Enabled reports whether spans are exported
func (t *Tracer) Enabled() bool {
	return t != nil && t.enabled
}

// TraceFields returns the ids of the span in ctx for log correlation
func TraceFields(ctx context.Context) (traceID, spanID string, ok bool) {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return "", "", false
	}
	return span.SpanContext().TraceID().String(),
		span.SpanContext().SpanID().String(),
		true
}
