package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "communityhub"

// Version is reported as service.version on every exported span
var Version = "dev"

// Span attribute keys shared by the HTTP, chat, backup and storage spans
var (
	ConnectionIDKey = attribute.Key("chat.connection_id")
	ChatEventKey    = attribute.Key("chat.event")
	MessageTypeKey  = attribute.Key("chat.message_type")
	TriggerModeKey  = attribute.Key("backup.mode")
	StatusLevelKey  = attribute.Key("security.level")
	UpstreamKey     = attribute.Key("upstream.target")
	StorageOpKey    = attribute.Key("storage.operation")
	StorageNameKey  = attribute.Key("storage.name")
	DurationKey     = attribute.Key("duration_ms")
	RequestIDKey    = attribute.Key("http.request_id")
)

type Config struct {
	Enabled     bool
	ServiceName string
	JaegerURL   string
	Environment string
	SampleRate  float64
}

func DefaultConfig() Config {
	return Config{
		Enabled:     false,
		ServiceName: "communityhub",
		JaegerURL:   "http://localhost:14268/api/traces",
		Environment: "development",
		SampleRate:  1.0,
	}
}

// Provider owns the exporter pipeline set up by Init. The zero value is a no-op.
type Provider struct {
	tp *tracesdk.TracerProvider
}

// Init installs a Jaeger-backed tracer provider and W3C propagation as the
// otel globals. With tracing disabled it returns a no-op Provider and the
// global no-op tracer stays in place.
func Init(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{}, nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = instrumentationName
	}

	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.JaegerURL)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Jaeger exporter: %w", err)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(Version),
			semconv.DeploymentEnvironmentKey.String(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	// honour upstream sampling decisions, sample new roots at SampleRate
	tp := tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exp),
		tracesdk.WithResource(res),
		tracesdk.WithSampler(tracesdk.ParentBased(tracesdk.TraceIDRatioBased(cfg.SampleRate))),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{tp: tp}, nil
}

// Shutdown flushes pending spans
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}

func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, opts...)
}

// RecordError marks the span in ctx as failed
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// MeasureDuration stamps the span in ctx with the time elapsed since start
func MeasureDuration(ctx context.Context, start time.Time) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(DurationKey.Int64(time.Since(start).Milliseconds()))
	}
}

func TraceHTTPRequest(ctx context.Context, method, route string) (context.Context, trace.Span) {
	return StartSpan(ctx, "http."+method,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			semconv.HTTPMethodKey.String(method),
			semconv.HTTPRouteKey.String(route),
		),
	)
}

// TraceChatFrame covers handling of one inbound chat frame
func TraceChatFrame(ctx context.Context, event, connectionID string) (context.Context, trace.Span) {
	return StartSpan(ctx, "chat."+event,
		trace.WithAttributes(
			ChatEventKey.String(event),
			ConnectionIDKey.String(connectionID),
		),
	)
}

func TraceBackupTrigger(ctx context.Context, mode, level string) (context.Context, trace.Span) {
	return StartSpan(ctx, "backup.notify",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			TriggerModeKey.String(mode),
			StatusLevelKey.String(level),
		),
	)
}

func TraceUpstreamCall(ctx context.Context, operation, target string) (context.Context, trace.Span) {
	return StartSpan(ctx, "upstream."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(UpstreamKey.String(target)),
	)
}

func TraceStorageOperation(ctx context.Context, operation, name string) (context.Context, trace.Span) {
	return StartSpan(ctx, "storage."+operation,
		trace.WithAttributes(
			StorageOpKey.String(operation),
			StorageNameKey.String(name),
		),
	)
}
