package tracing

import (
	"go.uber.org/fx"

	"signal_bot/internal/modules/config"
	"signal_bot/pkg/logger"
	"signal_bot/pkg/tracing"
)

// Module installs the global tracer; spans are noop unless tracing.enabled.
func Module() fx.Option {
	return fx.Module("tracing",
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config) error {
			_, closer, err := tracing.InitTracer(cfg.Tracing)
			if err != nil {
				return err
			}
			if cfg.Tracing.Enabled {
				logger.Info("[TRACING] jaeger agent %s:%d", cfg.Tracing.Host, cfg.Tracing.Port)
			}
			lc.Append(fx.StopHook(closer))
			return nil
		}),
	)
}
