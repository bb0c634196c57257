package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// configOTEL enables the OTLP HTTP trace exporter when
// OTEL_EXPORTER_OTLP_ENDPOINT is set (e.g. http://localhost:4318); the
// exporter honors the rest of the standard OTEL_* environment variables.
// Without the endpoint variable tracing stays off.
func configOTEL(serviceName string) {
	if ep := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); ep != "" {
		slog.Info("setting up trace exporter", "endpoint", ep)

		exp, err := otlptracehttp.New(context.Background())
		if err != nil {
			log.Fatal("failed to create trace exporter", "error", err)
		}

		tp := tracesdk.NewTracerProvider(
			tracesdk.WithBatcher(exp),
			tracesdk.WithResource(resource.NewWithAttributes(
				semconv.SchemaURL,
				semconv.ServiceNameKey.String(serviceName),
				attribute.String("environment", os.Getenv("ENVIRONMENT")),
			)),
		)
		otel.SetTracerProvider(tp)
	}
}
