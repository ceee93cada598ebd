package subprocess

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/strongdm/cajon/subprocess"

// Instruments records one sample per runtime invocation.
type Instruments struct {
	Invocations metric.Int64Counter
	Duration    metric.Float64Histogram
}

// NewInstruments registers the invocation counter and duration histogram on
// meter.
func NewInstruments(meter metric.Meter) (*Instruments, error) {
	invocations, err := meter.Int64Counter(
		"cajon.runtime.invocations",
		metric.WithDescription("Container runtime invocations"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram(
		"cajon.runtime.duration",
		metric.WithDescription("Wall time of container runtime invocations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	return &Instruments{Invocations: invocations, Duration: duration}, nil
}

type tracedBridge struct {
	next   Bridge
	tracer trace.Tracer
	inst   *Instruments
}

// Traced wraps next so every invocation produces a span and metric samples.
// With neither a tracer nor instruments, next is returned unchanged.
func Traced(next Bridge, tracer trace.Tracer, inst *Instruments) Bridge {
	if tracer == nil && inst == nil {
		return next
	}
	return &tracedBridge{next: next, tracer: tracer, inst: inst}
}

func (t *tracedBridge) Run(ctx context.Context, bin string, args ...string) (int, error) {
	var code int
	err := t.observe(ctx, "run", bin, args, func(ctx context.Context) (int, error) {
		var err error
		code, err = t.next.Run(ctx, bin, args...)
		return code, err
	})
	return code, err
}

func (t *tracedBridge) Exec(ctx context.Context, bin string, args ...string) (int, error) {
	var code int
	err := t.observe(ctx, "exec", bin, args, func(ctx context.Context) (int, error) {
		var err error
		code, err = t.next.Exec(ctx, bin, args...)
		return code, err
	})
	return code, err
}

func (t *tracedBridge) Capture(ctx context.Context, bin string, args ...string) (Result, error) {
	var res Result
	err := t.observe(ctx, "capture", bin, args, func(ctx context.Context) (int, error) {
		var err error
		res, err = t.next.Capture(ctx, bin, args...)
		return res.ExitCode, err
	})
	return res, err
}

func (t *tracedBridge) observe(ctx context.Context, mode, bin string, args []string, fn func(context.Context) (int, error)) error {
	subcommand := ""
	if len(args) > 0 {
		subcommand = args[0]
	}
	attrs := []attribute.KeyValue{
		attribute.String("cajon.bridge.mode", mode),
		attribute.String("cajon.runtime.subcommand", subcommand),
	}

	var span trace.Span
	if t.tracer != nil {
		ctx, span = t.tracer.Start(ctx, "runtime "+subcommand, trace.WithAttributes(
			append(attrs,
				attribute.String("process.executable.path", bin),
				attribute.StringSlice("process.command_args", args),
			)...,
		))
		defer span.End()
	}

	start := time.Now()
	code, err := fn(ctx)
	elapsed := time.Since(start).Seconds()

	if span != nil {
		span.SetAttributes(attribute.Int("process.exit.code", code))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
	if t.inst != nil {
		outcome := attribute.Bool("cajon.runtime.spawned", err == nil)
		set := metric.WithAttributes(append(attrs, outcome)...)
		t.inst.Invocations.Add(ctx, 1, set)
		t.inst.Duration.Record(ctx, elapsed, set)
	}
	return err
}
