package config

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/pitwall/strategy-engine-go/log"
)

// Telemetry holds the configured OTel providers.
type Telemetry struct {
	meterProvider *sdkmetric.MeterProvider
	traceProvider *sdktrace.TracerProvider
}

// SetupTelemetry configures the global meter and tracer providers.
// If TelemetryEndpoint is empty the stdout exporters are used.
func SetupTelemetry(ctx context.Context) (*Telemetry, error) {
	ret := &Telemetry{}
	if TelemetryEndpoint == "" {
		metricExp, err := stdoutmetric.New()
		if err != nil {
			return nil, err
		}
		traceExp, err := stdouttrace.New()
		if err != nil {
			return nil, err
		}
		ret.meterProvider = sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp,
				sdkmetric.WithInterval(30*time.Second))))
		ret.traceProvider = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(traceExp))
	} else {
		metricExp, err := otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(TelemetryEndpoint),
			otlpmetricgrpc.WithInsecure())
		if err != nil {
			return nil, err
		}
		traceExp, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(TelemetryEndpoint),
			otlptracegrpc.WithInsecure())
		if err != nil {
			return nil, err
		}
		ret.meterProvider = sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)))
		ret.traceProvider = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(traceExp))
	}
	otel.SetMeterProvider(ret.meterProvider)
	otel.SetTracerProvider(ret.traceProvider)
	return ret, nil
}

func (t *Telemetry) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if t.meterProvider != nil {
		if err := t.meterProvider.Shutdown(ctx); err != nil {
			log.Warn("could not shutdown meter provider", log.ErrorField(err))
		}
	}
	if t.traceProvider != nil {
		if err := t.traceProvider.Shutdown(ctx); err != nil {
			log.Warn("could not shutdown trace provider", log.ErrorField(err))
		}
	}
}
