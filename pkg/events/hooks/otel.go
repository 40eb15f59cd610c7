package hooks

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/scanhive/scanhive/pkg/defaults"
	"github.com/scanhive/scanhive/pkg/duration"
	"github.com/scanhive/scanhive/pkg/events"
)

// Compile-time interface check.
var _ events.Hook = (*OTelHook)(nil)

// OTelHook exports scan telemetry to an OpenTelemetry collector. Each
// scan becomes a root span opened on its first event and ended at
// complete; tool transitions become span events. Multiple concurrent
// scans each get their own span.
type OTelHook struct {
	opts           OTelOptions
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer

	mu     sync.Mutex
	spans  map[string]*scanSpan
	closed bool
}

type scanSpan struct {
	span   trace.Span
	errors int
}

// OTelOptions configures the OpenTelemetry hook behavior.
type OTelOptions struct {
	// Endpoint is the OTLP endpoint (e.g., "localhost:4317").
	Endpoint string

	// ServiceName is the service name for traces (default: "scanhive").
	ServiceName string

	// Insecure uses an insecure connection (no TLS).
	Insecure bool

	// Headers contains additional headers for the OTLP exporter.
	Headers map[string]string

	// ShutdownTimeout is the timeout for graceful shutdown.
	ShutdownTimeout time.Duration

	// ConnectionTimeout is the timeout for establishing the connection.
	ConnectionTimeout time.Duration
}

// NewOTelHook creates an OpenTelemetry hook exporting to the configured
// endpoint. The exporter connects immediately but handles connection
// failures gracefully without blocking scans.
func NewOTelHook(opts OTelOptions) (*OTelHook, error) {
	if opts.ServiceName == "" {
		opts.ServiceName = defaults.ToolName
	}
	if opts.Endpoint == "" {
		opts.Endpoint = "localhost:4317"
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = duration.HookShutdown
	}
	if opts.ConnectionTimeout == 0 {
		opts.ConnectionTimeout = duration.HookConnect
	}

	grpcOpts := []grpc.DialOption{}
	if opts.Insecure {
		grpcOpts = append(grpcOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	exporterOpts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(opts.Endpoint),
		otlptracegrpc.WithDialOption(grpcOpts...),
	}
	if opts.Insecure {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithInsecure())
	}
	if len(opts.Headers) > 0 {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithHeaders(opts.Headers))
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectionTimeout)
	defer cancel()

	exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, err
	}

	// Avoid merging with resource.Default to prevent schema conflicts.
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(opts.ServiceName),
		semconv.ServiceVersion(defaults.Version),
		attribute.String("service.component", "orchestrator"),
	)

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tracerProvider)

	return &OTelHook{
		opts:           opts,
		tracerProvider: tracerProvider,
		tracer:         tracerProvider.Tracer("scanhive/engine"),
		spans:          make(map[string]*scanSpan),
	}, nil
}

// OnEvent exports telemetry for one scan event.
func (h *OTelHook) OnEvent(ctx context.Context, ev events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}

	ss, ok := h.spans[ev.Scan]
	if !ok {
		if ev.Type == events.TypeComplete {
			return nil
		}
		_, span := h.tracer.Start(ctx, "scanhive.scan",
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("scan_id", ev.Scan),
			),
		)
		ss = &scanSpan{span: span}
		h.spans[ev.Scan] = ss
	}

	attrs := []attribute.KeyValue{
		attribute.String("scan_id", ev.Scan),
		attribute.String("message", ev.Message),
	}
	if ev.Tool != "" {
		attrs = append(attrs, attribute.String("tool", ev.Tool))
	}
	if ev.FindingsCount != nil {
		attrs = append(attrs, attribute.Int("findings", *ev.FindingsCount))
	}

	switch ev.Type {
	case events.TypeStarted:
		ss.span.AddEvent("tool_started", trace.WithAttributes(attrs...))
	case events.TypeSuccess:
		ss.span.AddEvent("tool_succeeded", trace.WithAttributes(attrs...))
	case events.TypeWarning:
		ss.span.AddEvent("tool_warning", trace.WithAttributes(attrs...))
	case events.TypeError:
		ss.errors++
		ss.span.AddEvent("tool_failed", trace.WithAttributes(attrs...))
	case events.TypeComplete:
		if ev.FindingsCount != nil {
			ss.span.SetAttributes(attribute.Int("findings.total", *ev.FindingsCount))
		}
		if ss.errors > 0 {
			ss.span.SetStatus(codes.Error, "scan completed with tool failures")
		} else {
			ss.span.SetStatus(codes.Ok, "scan completed")
		}
		ss.span.End()
		delete(h.spans, ev.Scan)
	default:
		ss.span.AddEvent(string(ev.Type), trace.WithAttributes(attrs...))
	}

	return nil
}

// Types returns nil: the full event stream is exported.
func (h *OTelHook) Types() []events.Type { return nil }

// ServiceName returns the configured service name.
func (h *OTelHook) ServiceName() string { return h.opts.ServiceName }

// Endpoint returns the configured OTLP endpoint.
func (h *OTelHook) Endpoint() string { return h.opts.Endpoint }

// OpenSpans reports how many scans currently hold an open span.
func (h *OTelHook) OpenSpans() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.spans)
}

// Close ends any open spans and flushes the exporter.
func (h *OTelHook) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	for id, ss := range h.spans {
		ss.span.SetStatus(codes.Error, "hook closed before scan completed")
		ss.span.End()
		delete(h.spans, id)
	}
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), h.opts.ShutdownTimeout)
	defer cancel()
	return h.tracerProvider.Shutdown(ctx)
}
