package store

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"signal_bot/internal/modules/config"
	"signal_bot/pkg/db"
	"signal_bot/pkg/logger"
)

type params struct {
	fx.In

	Ctx context.Context
	Cfg *config.Config
	// only present when the postgres module is loaded
	TxM db.TxManager `optional:"true"`
}

// New picks the backend from db.driver.
func New(p params) (Store, error) {
	switch p.Cfg.DB.Driver {
	case config.DriverMemory:
		logger.Info("[STORE] memory, trades are lost on exit")
		return NewMemory(), nil
	case config.DriverSQLite:
		logger.Info("[STORE] sqlite %s", p.Cfg.DB.Path)
		return NewSQLite(p.Cfg.DB.Path)
	case config.DriverPostgres:
		if p.TxM == nil {
			return nil, fmt.Errorf("%w: postgres module is not loaded", ErrUnavailable)
		}
		logger.Info("[STORE] postgres")
		return NewPostgres(p.Ctx, p.TxM)
	default:
		return nil, fmt.Errorf("unknown db driver %q", p.Cfg.DB.Driver)
	}
}

func Module() fx.Option {
	return fx.Module("store",
		fx.Provide(New),
		fx.Invoke(func(lc fx.Lifecycle, s Store) {
			lc.Append(fx.StopHook(s.Close))
		}),
	)
}
