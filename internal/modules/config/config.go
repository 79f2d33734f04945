package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"signal_bot/internal/helper"
	"signal_bot/internal/indicators"
	"signal_bot/internal/risk"
	"signal_bot/internal/strategy"
	"signal_bot/pkg/logger"
	"signal_bot/pkg/tracing"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	chatTelegramENV   = "TELEGRAM_CHAT_ID"
	databaseDSN       = "DATABASE_DSN"

	configDir     = "configs"
	defaultConfig = "values_local.yaml"
	envPrefix     = "SIGNAL"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config ...
type Config struct {
	Service struct {
		Name      string `yaml:"name"`
		Host      string `yaml:"host"`
		AdminPort int    `yaml:"admin_port"`
	} `yaml:"service"`

	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`

		// per request; sends run off the cycle
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"telegram"`

	DB struct {
		Driver   string `yaml:"driver"` // memory | sqlite | postgres
		DSN      string `yaml:"dsn"`
		Path     string `yaml:"path"`
		MaxConns int32  `yaml:"max_conns"`
	} `yaml:"db"`

	Market struct {
		BaseURL   string        `yaml:"base_url"`
		WSURL     string        `yaml:"ws_url"`
		Timeframe string        `yaml:"timeframe"`
		BarCount  int           `yaml:"bar_count"`
		Stream    bool          `yaml:"stream"`
		Timeout   time.Duration `yaml:"timeout"`
		// cached mark price older than this falls back to REST
		MaxPriceAge time.Duration `yaml:"max_price_age"`
	} `yaml:"market"`

	Engine struct {
		Symbols    []string      `yaml:"symbols"`
		Interval   time.Duration `yaml:"interval"`
		RunOnStart bool          `yaml:"run_on_start"`
	} `yaml:"engine"`

	Strategy struct {
		Window      int `yaml:"window"`
		EMAFast     int `yaml:"ema_fast"`
		EMASlow     int `yaml:"ema_slow"`
		RSIPeriod   int `yaml:"rsi_period"`
		MACDFast    int `yaml:"macd_fast"`
		MACDSlow    int `yaml:"macd_slow"`
		MACDSignal  int `yaml:"macd_signal"`
		ATRPeriod   int `yaml:"atr_period"`
		SwingPeriod int `yaml:"swing_period"`

		RSILongMin      float64 `yaml:"rsi_long_min"`
		RSILongMax      float64 `yaml:"rsi_long_max"`
		RSIShortMin     float64 `yaml:"rsi_short_min"`
		RSIShortMax     float64 `yaml:"rsi_short_max"`
		FibLevel        float64 `yaml:"fib_level"`
		StopBufferLong  float64 `yaml:"stop_buffer_long"`
		StopBufferShort float64 `yaml:"stop_buffer_short"`
		RR              float64 `yaml:"rr"`
	} `yaml:"strategy"`

	Risk struct {
		BalanceUSD       float64 `yaml:"balance_usd"`
		RiskFraction     float64 `yaml:"risk_fraction"`
		LeverageCap      int     `yaml:"leverage_cap"`
		SafetyMultiplier float64 `yaml:"safety_multiplier"`
		MinMarginUSD     float64 `yaml:"min_margin_usd"`
	} `yaml:"risk"`

	Audit struct {
		Path string `yaml:"path"` // empty = off
	} `yaml:"audit"`

	Log     logger.Config  `yaml:"log"`
	Tracing tracing.Config `yaml:"tracing"`
}

// NewConfig reads configs/$CONFIG_FILE (values_local.yaml by default).
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	configFileName := os.Getenv(configFilePathENV)
	explicit := configFileName != ""
	if !explicit {
		configFileName = defaultConfig
	}
	path := configFileName
	if !filepath.IsAbs(path) {
		path = filepath.Join(configDir, configFileName)
	}

	if _, err := os.Stat(path); err != nil {
		if explicit || !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "config file %s", path)
		}
		// defaults and env only
		path = ""
	}
	return Load(path)
}

// Load builds the config from defaults, the yaml file at path (optional) and
// SIGNAL_* env overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	// symbols may come from env as "BTC/USDT,ETH/USDT"; decoded separately
	settings := v.AllSettings()
	resolveScalars(settings, "")
	if engine, ok := settings["engine"].(map[string]any); ok {
		delete(engine, "symbols")
	}

	raw, err := yaml.Marshal(settings)
	if err != nil {
		return nil, errors.Wrap(err, "marshal settings")
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, errors.Wrap(err, "decode settings")
	}
	cfg.Engine.Symbols = splitList(v.GetStringSlice("engine.symbols"))
	cfg.Market.Timeframe = helper.NormTF(cfg.Market.Timeframe)

	if token := os.Getenv(tokenTelegramENV); token != "" {
		cfg.Telegram.Token = token
	}
	if chat := os.Getenv(chatTelegramENV); chat != "" {
		id, err := strconv.ParseInt(chat, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "%s", chatTelegramENV)
		}
		cfg.Telegram.ChatID = id
	}
	if dsn := os.Getenv(databaseDSN); dsn != "" {
		cfg.DB.DSN = dsn
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	ip := indicators.DefaultParams()
	sp := strategy.DefaultParams()
	rp := risk.DefaultParams()

	v.SetDefault("service.name", "signal_bot")
	v.SetDefault("service.host", "")
	v.SetDefault("service.admin_port", 8080)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chat_id", 0)
	v.SetDefault("telegram.timeout", "10s")

	v.SetDefault("db.driver", DriverSQLite)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.path", "trades.db")
	v.SetDefault("db.max_conns", 4)

	v.SetDefault("market.base_url", "https://fapi.binance.com")
	v.SetDefault("market.ws_url", "wss://fstream.binance.com")
	v.SetDefault("market.timeframe", "1h")
	v.SetDefault("market.bar_count", 250)
	v.SetDefault("market.stream", false)
	v.SetDefault("market.timeout", "10s")
	v.SetDefault("market.max_price_age", "10s")

	v.SetDefault("engine.symbols", []string{
		"BTC/USDT", "ETH/USDT", "SOL/USDT", "BNB/USDT", "XRP/USDT", "DOGE/USDT",
	})
	v.SetDefault("engine.interval", "5m")
	v.SetDefault("engine.run_on_start", true)

	v.SetDefault("strategy.window", ip.Window)
	v.SetDefault("strategy.ema_fast", ip.EMAFast)
	v.SetDefault("strategy.ema_slow", ip.EMASlow)
	v.SetDefault("strategy.rsi_period", ip.RSIPeriod)
	v.SetDefault("strategy.macd_fast", ip.MACDFast)
	v.SetDefault("strategy.macd_slow", ip.MACDSlow)
	v.SetDefault("strategy.macd_signal", ip.MACDSignal)
	v.SetDefault("strategy.atr_period", ip.ATRPeriod)
	v.SetDefault("strategy.swing_period", ip.SwingPeriod)
	v.SetDefault("strategy.rsi_long_min", sp.RSILongMin)
	v.SetDefault("strategy.rsi_long_max", sp.RSILongMax)
	v.SetDefault("strategy.rsi_short_min", sp.RSIShortMin)
	v.SetDefault("strategy.rsi_short_max", sp.RSIShortMax)
	v.SetDefault("strategy.fib_level", sp.FibLevel)
	v.SetDefault("strategy.stop_buffer_long", sp.StopBufferLong)
	v.SetDefault("strategy.stop_buffer_short", sp.StopBufferShort)
	v.SetDefault("strategy.rr", sp.RR)

	v.SetDefault("risk.balance_usd", rp.BalanceUSD)
	v.SetDefault("risk.risk_fraction", rp.RiskFraction)
	v.SetDefault("risk.leverage_cap", rp.LeverageCap)
	v.SetDefault("risk.safety_multiplier", rp.SafetyMultiplier)
	v.SetDefault("risk.min_margin_usd", rp.MinMarginUSD)

	v.SetDefault("audit.path", "signals.csv")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 14)
	v.SetDefault("log.compress", false)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.host", "localhost")
	v.SetDefault("tracing.port", 6831)
}

var durationType = reflect.TypeOf(time.Duration(0))

// scalarKinds maps dotted yaml keys of numeric and bool fields to their kind.
// Durations are left out: they must keep their unit.
func scalarKinds(t reflect.Type, prefix string, out map[string]reflect.Kind) map[string]reflect.Kind {
	if out == nil {
		out = map[string]reflect.Kind{}
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := strings.Split(f.Tag.Get("yaml"), ",")[0]
		if name == "" || name == "-" {
			continue
		}
		key := prefix + name
		switch ft := f.Type; {
		case ft == durationType:
		case ft.Kind() == reflect.Struct:
			scalarKinds(ft, key+".", out)
		default:
			switch ft.Kind() {
			case reflect.Bool,
				reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
				reflect.Float32, reflect.Float64:
				out[key] = ft.Kind()
			}
		}
	}
	return out
}

var configKinds = scalarKinds(reflect.TypeOf(Config{}), "", nil)

// resolveScalars parses env-provided strings that target numeric or bool
// fields. Anything else stays a string, so "yes" in a name is not a bool and
// a bare "300" never becomes a duration.
func resolveScalars(m map[string]any, prefix string) {
	for k, val := range m {
		key := prefix + k
		switch tv := val.(type) {
		case map[string]any:
			resolveScalars(tv, key+".")
		case string:
			kind, ok := configKinds[key]
			if !ok {
				continue
			}
			tv = strings.TrimSpace(tv)
			switch kind {
			case reflect.Bool:
				if b, err := strconv.ParseBool(tv); err == nil {
					m[k] = b
				}
			case reflect.Float32, reflect.Float64:
				if f, err := strconv.ParseFloat(tv, 64); err == nil {
					m[k] = f
				}
			default:
				if n, err := strconv.ParseInt(tv, 10, 64); err == nil {
					m[k] = n
				}
			}
		}
	}
}

func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, s := range strings.Split(item, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// Validate rejects configs the engine cannot run with.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.DB.Path == "" {
			return errors.New("db.path is required for sqlite")
		}
	case DriverPostgres:
		if c.DB.DSN == "" {
			return errors.New("db.dsn is required for postgres")
		}
	default:
		return errors.Errorf("unknown db.driver %q", c.DB.Driver)
	}

	if len(c.Engine.Symbols) == 0 {
		return errors.New("engine.symbols is empty")
	}
	// a unit-less number in yaml decodes as nanoseconds
	if c.Engine.Interval < time.Second {
		return errors.Errorf("engine.interval %s is below 1s, missing unit?", c.Engine.Interval)
	}
	if c.Market.Timeout < time.Millisecond {
		return errors.Errorf("market.timeout %s is below 1ms, missing unit?", c.Market.Timeout)
	}
	if c.Telegram.Timeout < time.Millisecond {
		return errors.Errorf("telegram.timeout %s is below 1ms, missing unit?", c.Telegram.Timeout)
	}
	if _, ok := helper.TFDuration(c.Market.Timeframe); !ok {
		return errors.Errorf("unknown market.timeframe %q", c.Market.Timeframe)
	}
	// one forming bar plus one bar of swing lag on top of the window
	if c.Market.BarCount < c.Strategy.Window+2 {
		return errors.Errorf("market.bar_count %d must be at least strategy.window+2 (%d)",
			c.Market.BarCount, c.Strategy.Window+2)
	}
	if c.Strategy.EMAFast >= c.Strategy.EMASlow {
		return errors.New("strategy.ema_fast must be < strategy.ema_slow")
	}
	if c.Strategy.RR <= 0 {
		return errors.New("strategy.rr must be positive")
	}
	if c.Risk.BalanceUSD <= 0 {
		return errors.New("risk.balance_usd must be positive")
	}
	if c.Risk.RiskFraction <= 0 || c.Risk.RiskFraction > 1 {
		return errors.New("risk.risk_fraction must be in (0, 1]")
	}
	if c.Risk.LeverageCap < 1 {
		return errors.New("risk.leverage_cap must be >= 1")
	}
	if c.Risk.SafetyMultiplier <= 0 {
		return errors.New("risk.safety_multiplier must be positive")
	}
	return nil
}

func (c *Config) StrategyParams() strategy.Params {
	s := c.Strategy
	return strategy.Params{
		Indicators: indicators.Params{
			Window:      s.Window,
			EMAFast:     s.EMAFast,
			EMASlow:     s.EMASlow,
			RSIPeriod:   s.RSIPeriod,
			MACDFast:    s.MACDFast,
			MACDSlow:    s.MACDSlow,
			MACDSignal:  s.MACDSignal,
			ATRPeriod:   s.ATRPeriod,
			SwingPeriod: s.SwingPeriod,
		},
		RSILongMin:      s.RSILongMin,
		RSILongMax:      s.RSILongMax,
		RSIShortMin:     s.RSIShortMin,
		RSIShortMax:     s.RSIShortMax,
		FibLevel:        s.FibLevel,
		StopBufferLong:  s.StopBufferLong,
		StopBufferShort: s.StopBufferShort,
		RR:              s.RR,
	}
}

func (c *Config) RiskParams() risk.Params {
	return risk.Params{
		BalanceUSD:       c.Risk.BalanceUSD,
		RiskFraction:     c.Risk.RiskFraction,
		LeverageCap:      c.Risk.LeverageCap,
		SafetyMultiplier: c.Risk.SafetyMultiplier,
		MinMarginUSD:     c.Risk.MinMarginUSD,
	}
}
