package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SscSPs/procureflow/internal/platform/config"
	platformotel "github.com/SscSPs/procureflow/internal/platform/otel"
)

// startTelemetry installs the OTLP providers when configured. The returned stop
// flushes them with its own deadline, since ctx is usually cancelled by then.
func startTelemetry(ctx context.Context, cfg *config.Config, logger *slog.Logger) (func(), error) {
	shutdown, err := platformotel.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to set up telemetry: %w", err)
	}
	if cfg.Telemetry.Active() {
		logger.Info("Telemetry export enabled",
			slog.String("endpoint", cfg.Telemetry.Endpoint),
			slog.String("service", cfg.Telemetry.ServiceName))
	}
	return func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			logger.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}, nil
}
