package audit

import (
	"go.uber.org/fx"

	"signal_bot/internal/modules/config"
	"signal_bot/pkg/logger"
)

func Module() fx.Option {
	return fx.Module("audit",
		fx.Provide(func(lc fx.Lifecycle, cfg *config.Config) (Sink, error) {
			if cfg.Audit.Path == "" {
				return Nop{}, nil
			}
			c, err := NewCSV(cfg.Audit.Path)
			if err != nil {
				return nil, err
			}
			logger.Info("[AUDIT] appending to %s", cfg.Audit.Path)
			lc.Append(fx.StopHook(c.Close))
			return c, nil
		}),
	)
}
