package postgres

import (
	"context"
	"fmt"

	"signal_bot/internal/modules/config"
	"signal_bot/pkg/db"

	"go.uber.org/fx"
)

// Module provides the pgx transaction manager. It is only added to the app
// when db.driver is postgres.
func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			func(lc fx.Lifecycle, ctx context.Context, cfg *config.Config) (*db.PgTxManager, error) {
				poolMaster, err := db.NewPool(ctx, db.PoolConfig{
					DSN:      cfg.DB.DSN,
					MaxConns: cfg.DB.MaxConns,
				})
				if err != nil {
					return nil, fmt.Errorf("failed to create poolMaster: %w", err)
				}

				err = poolMaster.Ping(ctx)
				if err != nil {
					poolMaster.Close()
					return nil, err
				}

				txm := db.NewPgTxManager(poolMaster)
				lc.Append(fx.StopHook(txm.Close))
				return txm, nil
			},
			func(txm *db.PgTxManager) db.TxManager { return txm },
		),
	)
}
