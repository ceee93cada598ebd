// Package telemetry owns the optional OpenTelemetry providers used to trace
// and count container runtime invocations. Both signals are off by default.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "github.com/strongdm/cajon"

var newManualReader = func() *sdkmetric.ManualReader { return sdkmetric.NewManualReader() }

// Config controls which signals are enabled and where spans are written.
type Config struct {
	ServiceName   string
	EnableMetrics bool
	EnableTraces  bool
	// TraceFile receives pretty-printed spans. Spans never go to stdout, which
	// belongs to the attached container session.
	TraceFile string
}

// Provider owns the meter/tracer providers for one cajon invocation.
type Provider struct {
	cfg            Config
	sessionID      string
	meterProvider  *sdkmetric.MeterProvider
	reader         *sdkmetric.ManualReader
	tracerProvider *sdktrace.TracerProvider
	traceOut       io.Closer
	meter          metric.Meter
	tracer         trace.Tracer
	shutdownOnce   sync.Once
}

// Setup initialises the enabled providers.
func Setup(ctx context.Context, cfg Config) (*Provider, error) {
	p := &Provider{cfg: cfg, sessionID: uuid.NewString()}
	if !cfg.EnableMetrics && !cfg.EnableTraces {
		return p, nil
	}

	if strings.TrimSpace(cfg.ServiceName) == "" {
		cfg.ServiceName = "cajon"
		p.cfg.ServiceName = cfg.ServiceName
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("cajon.session_id", p.sessionID),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	if cfg.EnableMetrics {
		p.reader = newManualReader()
		p.meterProvider = sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(p.reader),
			sdkmetric.WithResource(res),
		)
		p.meter = p.meterProvider.Meter(scopeName)
	}

	if cfg.EnableTraces {
		tp, out, err := createTracerProvider(cfg, res)
		if err != nil {
			if shutdownErr := p.Shutdown(ctx); shutdownErr != nil {
				err = errors.Join(err, shutdownErr)
			}
			return nil, err
		}
		p.tracerProvider = tp
		p.traceOut = out
		p.tracer = tp.Tracer(scopeName)
	}

	if p.meterProvider != nil {
		otel.SetMeterProvider(p.meterProvider)
	}
	if p.tracerProvider != nil {
		otel.SetTracerProvider(p.tracerProvider)
	}
	return p, nil
}

func createTracerProvider(cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, io.Closer, error) {
	path := strings.TrimSpace(cfg.TraceFile)
	if path == "" {
		path = filepath.Join(os.TempDir(), "cajon-traces.json")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open trace file: %w", err)
	}

	exp, err := stdouttrace.New(stdouttrace.WithWriter(f), stdouttrace.WithPrettyPrint())
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("init stdout trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp, sdktrace.WithMaxExportBatchSize(64)),
		sdktrace.WithResource(res),
	)
	return tp, f, nil
}

// SessionID identifies this invocation in exported telemetry.
func (p *Provider) SessionID() string {
	return p.sessionID
}

// Tracer returns nil when tracing is disabled.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil {
		return nil
	}
	return p.tracer
}

// Meter returns nil when metrics are disabled.
func (p *Provider) Meter() metric.Meter {
	if p == nil {
		return nil
	}
	return p.meter
}

// Collect reads the current metric state. It returns an empty snapshot when
// metrics are disabled.
func (p *Provider) Collect(ctx context.Context) (metricdata.ResourceMetrics, error) {
	var rm metricdata.ResourceMetrics
	if p == nil || p.reader == nil {
		return rm, nil
	}
	err := p.reader.Collect(ctx, &rm)
	return rm, err
}

// Shutdown flushes and stops the configured providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var err error
	p.shutdownOnce.Do(func() {
		var errs []error
		if p.meterProvider != nil {
			if shutdownErr := p.meterProvider.Shutdown(ctx); shutdownErr != nil {
				errs = append(errs, shutdownErr)
			}
		}
		if p.tracerProvider != nil {
			if shutdownErr := p.tracerProvider.Shutdown(ctx); shutdownErr != nil {
				errs = append(errs, shutdownErr)
			}
		}
		if p.traceOut != nil {
			if closeErr := p.traceOut.Close(); closeErr != nil {
				errs = append(errs, closeErr)
			}
		}
		if len(errs) > 0 {
			err = errors.Join(errs...)
		}
	})
	return err
}

// SumInt64 totals every data point of the named int64 sum in rm.
func SumInt64(rm metricdata.ResourceMetrics, name string) int64 {
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

// EnvBool interprets CAJON_* env toggles.
func EnvBool(value string, defaultOn bool) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	switch value {
	case "":
		return defaultOn
	case "1", "true", "on", "enable", "enabled", "yes":
		return true
	case "0", "false", "off", "disable", "disabled", "no":
		return false
	default:
		return defaultOn
	}
}

// LoadConfigFromEnv reads telemetry settings from the environment.
func LoadConfigFromEnv() Config {
	return Config{
		ServiceName:   "cajon",
		EnableMetrics: EnvBool(os.Getenv("CAJON_OTEL_METRICS"), false),
		EnableTraces:  EnvBool(os.Getenv("CAJON_OTEL_TRACES"), false),
		TraceFile:     strings.TrimSpace(os.Getenv("CAJON_OTEL_TRACE_FILE")),
	}
}
