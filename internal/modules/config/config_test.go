package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "values.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.DB.Driver)
	assert.Equal(t, "1h", cfg.Market.Timeframe)
	assert.Equal(t, 250, cfg.Market.BarCount)
	assert.Equal(t, 5*time.Minute, cfg.Engine.Interval)
	assert.Equal(t, []string{"BTC/USDT", "ETH/USDT", "SOL/USDT", "BNB/USDT", "XRP/USDT", "DOGE/USDT"},
		cfg.Engine.Symbols)

	sp := cfg.StrategyParams()
	assert.Equal(t, 200, sp.Indicators.Window)
	assert.Equal(t, 50, sp.Indicators.EMAFast)
	assert.InDelta(t, 1.5, sp.RR, 1e-9)

	rp := cfg.RiskParams()
	assert.InDelta(t, 50.0, rp.BalanceUSD, 1e-9)
	assert.InDelta(t, 0.02, rp.RiskFraction, 1e-9)
	assert.Equal(t, 20, rp.LeverageCap)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
db:
  driver: memory
engine:
  symbols: [BTC/USDT, ETH/USDT]
  interval: 15m
strategy:
  rr: 2
risk:
  balance_usd: 1000
  leverage_cap: 10
telegram:
  chat_id: -100123
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.DB.Driver)
	assert.Equal(t, []string{"BTC/USDT", "ETH/USDT"}, cfg.Engine.Symbols)
	assert.Equal(t, 15*time.Minute, cfg.Engine.Interval)
	assert.InDelta(t, 2.0, cfg.StrategyParams().RR, 1e-9)
	assert.InDelta(t, 1000.0, cfg.RiskParams().BalanceUSD, 1e-9)
	assert.Equal(t, 10, cfg.RiskParams().LeverageCap)
	assert.Equal(t, int64(-100123), cfg.Telegram.ChatID)
	// untouched keys keep defaults
	assert.Equal(t, 250, cfg.Market.BarCount)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SIGNAL_MARKET_BAR_COUNT", "300")
	t.Setenv("SIGNAL_ENGINE_SYMBOLS", "SOL/USDT, DOGE/USDT")
	t.Setenv("SIGNAL_MARKET_STREAM", "true")
	t.Setenv("TELEGRAM_TOKEN", "token-from-env")
	t.Setenv("TELEGRAM_CHAT_ID", "42")
	t.Setenv("DATABASE_DSN", "postgres://localhost/signals")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 300, cfg.Market.BarCount)
	assert.True(t, cfg.Market.Stream)
	assert.Equal(t, []string{"SOL/USDT", "DOGE/USDT"}, cfg.Engine.Symbols)
	assert.Equal(t, "token-from-env", cfg.Telegram.Token)
	assert.Equal(t, int64(42), cfg.Telegram.ChatID)
	assert.Equal(t, "postgres://localhost/signals", cfg.DB.DSN)
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]string{
		"unknown driver":         "db:\n  driver: mongo\n",
		"sqlite without path":    "db:\n  driver: sqlite\n  path: \"\"\n",
		"bar count below window": "market:\n  bar_count: 100\n",
		"bad risk fraction":      "risk:\n  risk_fraction: 2\n",
		"ema order":              "strategy:\n  ema_fast: 200\n  ema_slow: 50\n",
		"unknown timeframe":      "market:\n  timeframe: 7m\n",
		"interval without unit":  "engine:\n  interval: 300\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadEnvKeepsStringsAndUnits(t *testing.T) {
	t.Setenv("SIGNAL_SERVICE_NAME", "yes")
	t.Setenv("SIGNAL_DB_PATH", "0001")
	t.Setenv("SIGNAL_ENGINE_INTERVAL", "2m")
	t.Setenv("SIGNAL_RISK_BALANCE_USD", "250")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "yes", cfg.Service.Name)
	assert.Equal(t, "0001", cfg.DB.Path)
	assert.Equal(t, 2*time.Minute, cfg.Engine.Interval)
	assert.InDelta(t, 250.0, cfg.Risk.BalanceUSD, 1e-9)
}

func TestLoadRejectsBareIntervalFromEnv(t *testing.T) {
	t.Setenv("SIGNAL_ENGINE_INTERVAL", "300")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
