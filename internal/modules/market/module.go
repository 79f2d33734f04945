package market

import (
	"context"

	"signal_bot/internal/exchange"
	"signal_bot/internal/modules/config"
	"signal_bot/pkg/logger"

	"go.uber.org/fx"
)

// Module provides exchange.MarketData: plain REST, or REST behind the mark
// price stream when market.stream is on.
func Module() fx.Option {
	return fx.Module("market",
		fx.Provide(
			func(cfg *config.Config) *exchange.Client {
				return exchange.NewClient(cfg.Market.BaseURL, cfg.Market.Timeout)
			},
			func(lc fx.Lifecycle, cfg *config.Config, rest *exchange.Client) exchange.MarketData {
				if !cfg.Market.Stream {
					return rest
				}

				ps := exchange.NewPriceStream(rest, cfg.Market.WSURL, cfg.Engine.Symbols, cfg.Market.MaxPriceAge)
				ctx, cancel := context.WithCancel(context.Background())
				lc.Append(fx.Hook{
					OnStart: func(context.Context) error {
						logger.Info("[MARKET] mark price stream for %d symbols", len(cfg.Engine.Symbols))
						go ps.Run(ctx)
						return nil
					},
					OnStop: func(context.Context) error {
						cancel()
						return nil
					},
				})
				return ps
			},
		),
	)
}
