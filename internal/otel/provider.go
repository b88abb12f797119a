// Package otel owns the OpenTelemetry pipelines of a running instance: log
// records bridged from slog, and the death/command counters the session and
// dispatcher register on the global meter.
package otel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ErrNoExporter is returned when OTel is enabled with nowhere to send data.
var ErrNoExporter = errors.New("otel enabled but no log writer or endpoint configured")

const defaultMetricInterval = time.Minute

// Config selects the exporters.
type Config struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	// LogWriter receives pretty-printed log records and periodic metric
	// dumps. It is usually the session log file.
	LogWriter io.Writer
	// MetricInterval is how often metrics are written to LogWriter.
	MetricInterval time.Duration
	// Endpoint is an OTLP/HTTP log collector; empty disables OTLP export.
	Endpoint string
	Insecure bool
}

// Provider holds the pipelines for the process lifetime. A zero Provider is
// disabled and every method is a no-op.
type Provider struct {
	logs    *sdklog.LoggerProvider
	metrics *sdkmetric.MeterProvider
}

// New builds the configured pipelines. When metrics are exported the meter
// provider is also installed globally so instruments created through
// otel.Meter start reporting.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	p := &Provider{}
	if !cfg.Enabled {
		return p, nil
	}
	if cfg.LogWriter == nil && cfg.Endpoint == "" {
		return nil, ErrNoExporter
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("creating otel resource: %w", err)
	}

	logOpts := []sdklog.LoggerProviderOption{sdklog.WithResource(res)}
	batch := sdklog.WithExportTimeout(cfg.BatchTimeout)

	if cfg.LogWriter != nil {
		exp, err := stdoutlog.New(stdoutlog.WithWriter(cfg.LogWriter), stdoutlog.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("creating file log exporter: %w", err)
		}
		logOpts = append(logOpts, sdklog.WithProcessor(sdklog.NewBatchProcessor(exp, batch)))

		mexp, err := stdoutmetric.New(stdoutmetric.WithWriter(cfg.LogWriter))
		if err != nil {
			return nil, fmt.Errorf("creating file metric exporter: %w", err)
		}
		interval := cfg.MetricInterval
		if interval <= 0 {
			interval = defaultMetricInterval
		}
		p.metrics = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(mexp, sdkmetric.WithInterval(interval))),
		)
		otel.SetMeterProvider(p.metrics)
	}

	if cfg.Endpoint != "" {
		otlpOpts := []otlploghttp.Option{otlploghttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			otlpOpts = append(otlpOpts, otlploghttp.WithInsecure())
		}
		exp, err := otlploghttp.New(ctx, otlpOpts...)
		if err != nil {
			return nil, fmt.Errorf("creating OTLP log exporter: %w", err)
		}
		logOpts = append(logOpts, sdklog.WithProcessor(sdklog.NewBatchProcessor(exp, batch)))
	}

	p.logs = sdklog.NewLoggerProvider(logOpts...)
	return p, nil
}

// LoggerProvider returns nil when OTel is disabled.
func (p *Provider) LoggerProvider() *sdklog.LoggerProvider {
	return p.logs
}

// Meter returns a meter from the exporting provider, or from the global one
// when this provider exports no metrics.
func (p *Provider) Meter(name string) metric.Meter {
	if p.metrics != nil {
		return p.metrics.Meter(name)
	}
	return otel.Meter(name)
}

// Flush exports pending records and metrics. Called after every game save.
func (p *Provider) Flush(ctx context.Context) error {
	var errs []error
	if p.logs != nil {
		if err := p.logs.ForceFlush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("otel log flush: %w", err))
		}
	}
	if p.metrics != nil {
		if err := p.metrics.ForceFlush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("otel metric flush: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Shutdown flushes and stops every exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if p.logs != nil {
		if err := p.logs.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("otel log shutdown: %w", err))
		}
	}
	if p.metrics != nil {
		if err := p.metrics.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("otel metric shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}
