package chain

import (
	"context"
	"time"

	"github.com/OpenTrons/opentrons-sub006/internal/robot"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/OpenTrons/opentrons-sub006/internal/chain"

// Tracing wraps each command in a span from the global TracerProvider.
func Tracing() Middleware {
	return TracingWithTracer(otel.Tracer(instrumentationName))
}

// TracingWithTracer wraps each command in a span from tracer.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, cmd robot.Command, next Handler) error {
		ctx, span := tracer.Start(ctx, "lpc.command.execute",
			trace.WithAttributes(
				attribute.String("lpc.command.type", cmd.CommandType),
				attribute.String("lpc.command.key", cmd.Key),
				attribute.Int64("lpc.command.timeout_ms", cmd.Timeout.Milliseconds()),
			),
			trace.WithSpanKind(trace.SpanKindClient),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		return err
	}
}

// Metrics records command counts and durations on the global MeterProvider.
func Metrics() Middleware {
	return MetricsWithMeter(otel.Meter(instrumentationName))
}

// MetricsWithMeter records command counts and durations on meter:
//
//   - lpc.command.duration (Float64Histogram, seconds)
//   - lpc.command.executions (Int64Counter)
//
// both tagged with command_type and status ("ok" or "error").
func MetricsWithMeter(meter metric.Meter) Middleware {
	// The API hands back noop instruments alongside any error.
	duration, _ := meter.Float64Histogram(
		"lpc.command.duration",
		metric.WithDescription("Duration of robot command execution in seconds"),
		metric.WithUnit("s"),
	)
	executions, _ := meter.Int64Counter(
		"lpc.command.executions",
		metric.WithDescription("Total number of robot commands executed"),
		metric.WithUnit("{command}"),
	)

	return func(ctx context.Context, cmd robot.Command, next Handler) error {
		start := time.Now()
		err := next(ctx)

		status := "ok"
		if err != nil {
			status = "error"
		}
		attrs := metric.WithAttributes(
			attribute.String("command_type", cmd.CommandType),
			attribute.String("status", status),
		)
		duration.Record(ctx, time.Since(start).Seconds(), attrs)
		executions.Add(ctx, 1, attrs)
		return err
	}
}
