package telemetry

import (
	"context"
	"errors"
	"time"
	"uicrawler/lib/configutil"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const ConfigName = "telemetry.json5"

type OtlpConnConfig struct {
	GrpcEndpoint string            `json:"grpc_endpoint"`
	HttpEndpoint string            `json:"http_endpoint"`
	Headers      map[string]string `json:"headers"`
}

type OtlpConfig struct {
	Traces  OtlpConnConfig `json:"traces"`
	Metrics OtlpConnConfig `json:"metrics"`
}

type Config struct {
	Otlp OtlpConfig `json:"otlp"`
	// records process gauges while the crawl runs
	PerfStats bool `json:"perf_stats"`
}

// Telemetry holds the providers installed globally, the zero value is a
// disabled setup.
type Telemetry struct {
	TracerProvider *trace.TracerProvider
	MeterProvider  *metric.MeterProvider
	PerfStats      bool
}

func (t Telemetry) Enabled() bool {
	return t.TracerProvider != nil
}

// Shutdown flushes pending spans and metrics.
func (t Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.TracerProvider != nil {
		errs = append(errs, t.TracerProvider.Shutdown(ctx))
	}
	if t.MeterProvider != nil {
		errs = append(errs, t.MeterProvider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// SetupFromEnv searches up the filesystem from the working directory for
// telemetry.json5 and configures exporters from it. Without a config file
// telemetry stays disabled and the error wraps os.ErrNotExist.
func SetupFromEnv(ctx context.Context, serviceName string) (Telemetry, error) {
	config, err := configutil.ReadRecursively[Config](ConfigName)
	if err != nil {
		return Telemetry{}, err
	}
	return Setup(ctx, serviceName, config)
}

func Setup(ctx context.Context, serviceName string, config Config) (Telemetry, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*15)
	defer cancel()

	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return Telemetry{}, err
	}

	spanExporter, err := traceExporter(ctx, config.Otlp.Traces)
	if err != nil {
		return Telemetry{}, err
	}
	tracerProvider := trace.NewTracerProvider(
		trace.WithBatcher(spanExporter),
		trace.WithResource(r),
	)
	otel.SetTracerProvider(tracerProvider)

	exporter, err := metricExporter(ctx, config.Otlp.Metrics)
	if err != nil {
		return Telemetry{}, errors.Join(err, tracerProvider.Shutdown(ctx))
	}
	meterProvider := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter, metric.WithInterval(time.Second*5))),
		metric.WithResource(r),
	)
	otel.SetMeterProvider(meterProvider)

	return Telemetry{
		TracerProvider: tracerProvider,
		MeterProvider:  meterProvider,
		PerfStats:      config.PerfStats,
	}, nil
}
