package notify

import (
	"go.uber.org/fx"

	"signal_bot/internal/modules/config"
	"signal_bot/pkg/logger"
)

// New returns Telegram when a token is configured and stdout otherwise.
// Telegram being unreachable at startup never stops the engine.
func New(lc fx.Lifecycle, cfg *config.Config) Notifier {
	if cfg.Telegram.Token == "" {
		logger.Info("[NOTIFY] no telegram token, printing to stdout")
		return NewStdout()
	}
	if cfg.Telegram.ChatID == 0 {
		logger.Warn("[NOTIFY] telegram chat_id is not set, messages will be dropped")
	}
	tg := NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, cfg.Telegram.Timeout)
	lc.Append(fx.StopHook(tg.Close))
	return tg
}

func Module() fx.Option {
	return fx.Module("notify",
		fx.Provide(New),
	)
}
