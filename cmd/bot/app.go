package main

import (
	"context"

	"go.uber.org/fx"

	"signal_bot/internal/audit"
	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/market"
	"signal_bot/internal/modules/postgres"
	"signal_bot/internal/modules/tracing"
	"signal_bot/internal/notify"
	"signal_bot/internal/runner"
	"signal_bot/internal/store"
)

// storage adds the pgx pool only when the config asks for postgres.
func storage(cfg *config.Config) fx.Option {
	if cfg.DB.Driver == config.DriverPostgres {
		return fx.Options(postgres.Module(), store.Module())
	}
	return store.Module()
}

// newApp wires the engine. The config is loaded up front so the storage
// modules can be chosen before fx builds the graph.
func newApp(ctx context.Context, extra ...fx.Option) (*fx.App, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, err
	}

	opts := []fx.Option{
		fx.Provide(func() context.Context { return ctx }),
		fx.NopLogger,
		fx.Replace(cfg),
		config.Module(),
		tracing.Module(),
		storage(cfg),
		market.Module(),
		notify.Module(),
		audit.Module(),
		runner.Module(),
	}
	opts = append(opts, extra...)

	app := fx.New(opts...)
	if err := app.Err(); err != nil {
		return nil, err
	}
	return app, nil
}
