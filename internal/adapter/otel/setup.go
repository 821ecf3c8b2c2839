package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// ShutdownFunc flushes and shuts down the meter provider.
type ShutdownFunc func(ctx context.Context) error

// InitMeterProvider installs an SDK meter provider as the global provider.
// Metric readers and exporters are attached per deployment.
func InitMeterProvider() ShutdownFunc {
	provider := sdkmetric.NewMeterProvider()
	otel.SetMeterProvider(provider)
	return provider.Shutdown
}
