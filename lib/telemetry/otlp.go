package telemetry

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace"
)

const exporterTimeout = time.Second * 3

// grpc is used when its endpoint is configured, http otherwise
func traceExporter(ctx context.Context, conn OtlpConnConfig) (trace.SpanExporter, error) {
	ctx, cancel := context.WithTimeout(ctx, exporterTimeout)
	defer cancel()

	if conn.GrpcEndpoint != "" {
		slog.Info("trace exporter initialized", "type", "grpc", "endpoint", conn.GrpcEndpoint)
		return otlptracegrpc.New(
			ctx,
			otlptracegrpc.WithEndpointURL(conn.GrpcEndpoint),
			otlptracegrpc.WithHeaders(conn.Headers),
		)
	}
	slog.Info("trace exporter initialized", "type", "http", "endpoint", conn.HttpEndpoint)
	return otlptracehttp.New(
		ctx,
		otlptracehttp.WithEndpointURL(conn.HttpEndpoint),
		otlptracehttp.WithHeaders(conn.Headers),
	)
}

func metricExporter(ctx context.Context, conn OtlpConnConfig) (metric.Exporter, error) {
	ctx, cancel := context.WithTimeout(ctx, exporterTimeout)
	defer cancel()

	if conn.GrpcEndpoint != "" {
		slog.Info("metric exporter initialized", "type", "grpc", "endpoint", conn.GrpcEndpoint)
		return otlpmetricgrpc.New(
			ctx,
			otlpmetricgrpc.WithEndpointURL(conn.GrpcEndpoint),
			otlpmetricgrpc.WithHeaders(conn.Headers),
		)
	}
	slog.Info("metric exporter initialized", "type", "http", "endpoint", conn.HttpEndpoint)
	return otlpmetrichttp.New(
		ctx,
		otlpmetrichttp.WithEndpointURL(conn.HttpEndpoint),
		otlpmetrichttp.WithHeaders(conn.Headers),
	)
}
