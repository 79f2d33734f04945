package helper

import (
	"strings"
	"time"
)

var tfDurations = map[string]time.Duration{
	"1m":  time.Minute,
	"3m":  3 * time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"2h":  2 * time.Hour,
	"4h":  4 * time.Hour,
	"6h":  6 * time.Hour,
	"8h":  8 * time.Hour,
	"12h": 12 * time.Hour,
	"1d":  24 * time.Hour,
	"3d":  72 * time.Hour,
	"1w":  7 * 24 * time.Hour,
}

// NormTF brings timeframe spellings ("60m", "1H", "candle1h") to the
// exchange interval form.
func NormTF(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	s = strings.TrimPrefix(s, "candle")
	switch s {
	case "60m", "1h":
		return "1h"
	case "240m", "4h":
		return "4h"
	case "1440m", "24h", "1d":
		return "1d"
	default:
		return s
	}
}

// TFDuration of a timeframe, false for intervals the exchange does not know.
func TFDuration(raw string) (time.Duration, bool) {
	d, ok := tfDurations[NormTF(raw)]
	return d, ok
}

// NormSymbol turns "BTC/USDT", "btc/usdt:USDT" or "BTC-USDT" into "BTCUSDT".
func NormSymbol(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if i := strings.IndexByte(s, ':'); i > 0 {
		s = s[:i]
	}
	return strings.NewReplacer("/", "", "-", "", "_", "").Replace(s)
}
