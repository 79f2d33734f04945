package config

import (
	"go.uber.org/fx"

	"signal_bot/pkg/logger"
	"signal_bot/pkg/tracing"
)

// Module provides *Config and initializes the logger from it.
func Module() fx.Option {
	return fx.Module("config",
		fx.Provide(
			NewConfig,
		),
		fx.Invoke(func(cfg *Config) error {
			logger.SetServiceName(cfg.Service.Name)
			tracing.SetServiceName(cfg.Service.Name)
			return logger.Init(cfg.Log)
		}),
	)
}
