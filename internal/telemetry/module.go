package telemetry

import (
	"context"

	"github.com/ajanottaja/identity-bridge/internal/config"
	"go.uber.org/fx"
)

// Module provides metrics and tracing. Metrics are nil when disabled; every
// recording method tolerates a nil receiver.
var Module = fx.Module("telemetry",
	fx.Provide(
		func(cfg *config.Config) *Metrics {
			if !cfg.Telemetry.MetricsEnabled {
				return nil
			}
			return NewMetrics()
		},
		func(lc fx.Lifecycle, cfg *config.Config) (*Tracer, error) {
			t, err := SetupTracing(context.Background(), cfg.Telemetry)
			if err != nil {
				return nil, err
			}
			lc.Append(fx.Hook{OnStop: t.Shutdown})
			return t, nil
		},
	),
)
