package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/san-kum/brazilnut/internal/config"
	"github.com/san-kum/brazilnut/internal/control"
)

const tracerName = "github.com/san-kum/brazilnut"

// TracingConfig governs how span export is initialised.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	SampleRatio float64
	Out         io.Writer
}

// TracingConfigFromEnv reads BRAZILNUT_TRACING_* variables. Spans are
// written to stderr so they do not mix with command output.
func TracingConfigFromEnv() TracingConfig {
	service := os.Getenv("BRAZILNUT_TRACING_SERVICE_NAME")
	if service == "" {
		service = "brazilnut"
	}

	ratio := 1.0
	if raw := os.Getenv("BRAZILNUT_TRACING_SAMPLE_RATIO"); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed >= 0 && parsed <= 1 {
			ratio = parsed
		}
	}

	return TracingConfig{
		Enabled:     strings.EqualFold(os.Getenv("BRAZILNUT_TRACING_ENABLED"), "true"),
		ServiceName: service,
		SampleRatio: ratio,
		Out:         os.Stderr,
	}
}

// InitTracing installs the global tracer provider and returns a shutdown
// function that flushes pending spans.
func InitTracing(ctx context.Context, cfg TracingConfig, logger zerolog.Logger) (func(context.Context) error, error) {
	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		logger.Debug().Msg("tracing_disabled")
		return func(context.Context) error { return nil }, nil
	}

	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}
	exp, err := stdouttrace.New(
		stdouttrace.WithWriter(out),
		stdouttrace.WithoutTimestamps(),
	)
	if err != nil {
		return nil, fmt.Errorf("create exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", cfg.ServiceName),
	))
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	logger.Info().Str("service_name", cfg.ServiceName).Float64("sample_ratio", cfg.SampleRatio).Msg("tracing_enabled")
	return tp.Shutdown, nil
}

// ShutdownWithTimeout flushes spans with a bounded wait. Errors are logged,
// not returned.
func ShutdownWithTimeout(ctx context.Context, shutdown func(context.Context) error, logger zerolog.Logger) {
	if shutdown == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("tracing_shutdown_failed")
	}
}

// StartRunSpan starts the span covering one experiment run, tagged with
// its schedule.
func StartRunSpan(ctx context.Context, runID string, cfg *config.Config) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "experiment.run", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.String("run.name", cfg.Name),
		attribute.Float64("run.dt", cfg.Dt),
		attribute.Float64("run.duration", cfg.Duration),
		attribute.Float64("schedule.stop_flow", cfg.Schedule.StopFlow),
		attribute.Float64("schedule.kick_start", cfg.Schedule.KickStart),
		attribute.Float64("schedule.stop_kick", cfg.Schedule.StopKick),
		attribute.Float64("schedule.amplitude", cfg.Schedule.Amplitude),
		attribute.Float64("schedule.pulse_interval", cfg.Schedule.PulseInterval),
	))
}

// SpanEvents records every transition as an event on span.
type SpanEvents struct {
	span trace.Span
}

func NewSpanEvents(span trace.Span) *SpanEvents {
	return &SpanEvents{span: span}
}

func (s *SpanEvents) OnTransition(e control.Event) {
	attrs := []attribute.KeyValue{
		attribute.Float64("sim.time", e.Time),
		attribute.Float64("floor.velocity", e.Velocity),
	}
	if e.Kind == control.Kick {
		attrs = append(attrs,
			attribute.Int("kick.index", e.Kick),
			attribute.String("kick.direction", Direction(e.Velocity)),
		)
	}
	s.span.AddEvent(e.Kind.String(), trace.WithAttributes(attrs...))
}
