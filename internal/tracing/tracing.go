// Package tracing wires an OpenTelemetry tracer provider around the
// server loop's dispatch and interruption-handling paths, exporting
// spans to stdout or to an OTLP collector over gRPC. It also bridges
// this repository's structured logging.Field values onto span
// attributes, so a dispatch's cycle ID and simulation time show up on
// the trace for the same call that logged them.
package tracing

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/signalsfoundry/discretesim/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Config governs how tracing is initialized.
type Config struct {
	Enabled     bool
	ServiceName string
	Exporter    string // stdout | otlp
	Endpoint    string // used when Exporter == otlp
	SampleRatio float64

	// TickSeconds, when positive, is recorded as a resource attribute
	// identifying how fast the running simulation's clock steps. Unlike
	// an RPC server, a discrete-event simulation's traces are only
	// meaningfully comparable against others run at the same tick rate
	// (a dispatch every 10ms reads very differently from one every
	// minute), so this is carried on the resource rather than left for
	// callers to thread through every span by hand.
	TickSeconds float64
}

// ConfigFromEnv pulls tracing configuration from environment variables,
// using sensible defaults when unset.
func ConfigFromEnv() Config {
	enabled := strings.EqualFold(os.Getenv("SIMCORE_TRACING_ENABLED"), "true")
	exporter := strings.ToLower(os.Getenv("SIMCORE_TRACING_EXPORTER"))
	if exporter == "" {
		exporter = "stdout"
	}
	service := os.Getenv("SIMCORE_TRACING_SERVICE_NAME")
	if service == "" {
		service = "discretesim"
	}

	ratio := 1.0
	if raw := os.Getenv("SIMCORE_TRACING_SAMPLE_RATIO"); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed >= 0 && parsed <= 1 {
			ratio = parsed
		}
	}

	var tick float64
	if raw := os.Getenv("SIMCORE_TRACING_TICK_SECONDS"); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed > 0 {
			tick = parsed
		}
	}

	return Config{
		Enabled:     enabled,
		ServiceName: service,
		Exporter:    exporter,
		Endpoint:    os.Getenv("SIMCORE_OTLP_ENDPOINT"),
		SampleRatio: ratio,
		TickSeconds: tick,
	}
}

// Init wires a tracer provider, exporter, propagators, and sampler based
// on cfg, and returns a shutdown function to flush spans.
func Init(ctx context.Context, cfg Config, log logging.Logger) (func(context.Context) error, error) {
	if log == nil {
		log = logging.Noop()
	}

	if !cfg.Enabled {
		otel.SetTracerProvider(trace.NewNoopTracerProvider())
		otel.SetTextMapPropagator(propagation.TraceContext{})
		log.Info(ctx, "tracing disabled; using noop tracer provider")
		return func(context.Context) error { return nil }, nil
	}

	exp, err := exporterFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	attrs := []attribute.KeyValue{
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.namespace", "discretesim"),
	}
	if cfg.TickSeconds > 0 {
		attrs = append(attrs, attribute.Float64("discretesim.tick_seconds", cfg.TickSeconds))
	}

	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	sampler := sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sampler),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	log.Info(ctx, "tracing enabled",
		logging.String("exporter", cfg.Exporter),
		logging.String("service_name", cfg.ServiceName),
		logging.String("sampler", fmt.Sprintf("parentbased_traceidratio_%0.2f", cfg.SampleRatio)),
	)

	return tp.Shutdown, nil
}

func exporterFromConfig(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch strings.ToLower(cfg.Exporter) {
	case "stdout", "":
		return stdouttrace.New(
			stdouttrace.WithWriter(os.Stdout),
			stdouttrace.WithPrettyPrint(),
			stdouttrace.WithoutTimestamps(),
		)
	case "otlp", "otlpgrpc":
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = "localhost:4317"
		}
		client := otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
		return otlptrace.New(ctx, client)
	default:
		return nil, fmt.Errorf("unsupported tracing exporter: %s", cfg.Exporter)
	}
}

// Tracer returns the package-scoped tracer used around dispatch and
// interruption handling. Call it after Init so the configured provider
// is in effect.
func Tracer() trace.Tracer {
	return otel.Tracer("github.com/signalsfoundry/discretesim/server")
}

// Annotate copies structured logging fields onto span as attributes, so
// a dispatch's cycle ID, simulation time, and elapsed duration appear on
// the trace alongside the log line that reported the same values. It is
// a no-op against a nil or non-recording span, so callers can call it
// unconditionally regardless of whether tracing is enabled.
func Annotate(span trace.Span, fields ...logging.Field) {
	if span == nil || !span.IsRecording() {
		return
	}
	attrs := make([]attribute.KeyValue, 0, len(fields))
	for _, f := range fields {
		switch v := f.Value.(type) {
		case string:
			attrs = append(attrs, attribute.String(f.Key, v))
		case int:
			attrs = append(attrs, attribute.Int(f.Key, v))
		case int64:
			attrs = append(attrs, attribute.Int64(f.Key, v))
		case uint64:
			attrs = append(attrs, attribute.Int64(f.Key, int64(v)))
		case float64:
			attrs = append(attrs, attribute.Float64(f.Key, v))
		case bool:
			attrs = append(attrs, attribute.Bool(f.Key, v))
		default:
			attrs = append(attrs, attribute.String(f.Key, fmt.Sprint(v)))
		}
	}
	span.SetAttributes(attrs...)
}

// ShutdownWithTimeout invokes shutdown with a bounded timeout, logging
// but swallowing any error.
func ShutdownWithTimeout(ctx context.Context, shutdown func(context.Context) error, log logging.Logger) {
	if shutdown == nil {
		return
	}
	if log == nil {
		log = logging.Noop()
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		log.Warn(ctx, "tracing shutdown failed", logging.String("error", err.Error()))
	}
}
