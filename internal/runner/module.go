package runner

import (
	"context"
	"sync"
	"time"

	"go.uber.org/fx"

	"signal_bot/internal/audit"
	"signal_bot/internal/exchange"
	"signal_bot/internal/modules/config"
	"signal_bot/internal/notify"
	"signal_bot/internal/store"
	"signal_bot/pkg/logger"
)

func NewFromConfig(cfg *config.Config, md exchange.MarketData, st store.Store, n notify.Notifier, a audit.Sink) *Runner {
	return New(Config{
		Symbols:   cfg.Engine.Symbols,
		Timeframe: cfg.Market.Timeframe,
		BarCount:  cfg.Market.BarCount,
		Strategy:  cfg.StrategyParams(),
		Risk:      cfg.RiskParams(),
	}, md, st, n, a)
}

// Loop runs a cycle every interval and on demand. An on-demand cycle runs
// in its own goroutine and may overlap the scheduled one.
type Loop struct {
	r          *Runner
	store      store.Store
	notifier   notify.Notifier
	interval   time.Duration
	runOnStart bool
	timeframe  string

	trigger chan struct{}
	wg      sync.WaitGroup
}

func NewLoop(cfg *config.Config, r *Runner, st store.Store, n notify.Notifier) *Loop {
	return &Loop{
		r:          r,
		store:      st,
		notifier:   n,
		interval:   cfg.Engine.Interval,
		runOnStart: cfg.Engine.RunOnStart,
		timeframe:  cfg.Market.Timeframe,
		trigger:    make(chan struct{}, 1),
	}
}

// Trigger asks for an extra cycle. It reports false if one is already queued.
func (l *Loop) Trigger() bool {
	select {
	case l.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

func (l *Loop) Run(ctx context.Context) {
	open := 0
	if trades, err := l.store.OpenTrades(ctx); err != nil {
		logger.Error("[RUNNER] list open trades: %v", err)
	} else {
		open = len(trades)
	}
	logger.Info("[RUNNER] ▶️ every %s, %d symbols, %d open trades", l.interval, len(l.r.Symbols()), open)
	l.notifier.Send(ctx, notify.StartupMessage(l.r.Symbols(), l.timeframe, open))

	if l.runOnStart {
		l.r.RunCycle(ctx)
	}

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			l.wg.Wait()
			return
		case <-ticker.C:
			l.r.RunCycle(ctx)
		case <-l.trigger:
			l.wg.Add(1)
			go func() {
				defer l.wg.Done()
				l.r.RunCycle(ctx)
			}()
		}
	}
}

// Module provides the runner; LoopModule also schedules it.
func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(NewFromConfig),
	)
}

func LoopModule() fx.Option {
	return fx.Module("runner_loop",
		fx.Provide(NewLoop),
		fx.Invoke(func(lc fx.Lifecycle, l *Loop) {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						defer close(done)
						l.Run(ctx)
					}()
					return nil
				},
				OnStop: func(stopCtx context.Context) error {
					cancel()
					select {
					case <-done:
					case <-stopCtx.Done():
					}
					return nil
				},
			})
		}),
	)
}
