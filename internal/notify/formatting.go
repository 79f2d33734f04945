package notify

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"signal_bot/internal/models"
)

// Price renders a price with 4 decimals, 6 below 1 (DOGE, XRP).
func Price(v float64) string {
	places := int32(4)
	if v < 1 {
		places = 6
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}

// USD renders a money amount with cents.
func USD(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// Coin is the hashtag form of a symbol: "BTC/USDT" -> "BTC".
func Coin(symbol string) string {
	s := strings.ToUpper(symbol)
	if i := strings.IndexByte(s, '/'); i > 0 {
		return s[:i]
	}
	return strings.TrimSuffix(s, "USDT")
}

func sideLabel(side models.Side) string {
	switch side {
	case models.SideLong:
		return "LONG 🚀"
	case models.SideShort:
		return "SHORT 🔻"
	default:
		return string(side)
	}
}

func trendLabel(state string) string {
	switch state {
	case "UPTREND":
		return "UPTREND 🟢"
	case "DOWNTREND":
		return "DOWNTREND 🔴"
	default:
		return state
	}
}

// SignalMessage announces a freshly opened trade.
func SignalMessage(rec models.TradeRecord, state string) string {
	return fmt.Sprintf(
		"🚨 *SIGNAL: %s*\n"+
			"Coin: #%s\n"+
			"Price: `%s`\n"+
			"Trend: %s\n"+
			"SL: `%s` | TP: `%s`\n"+
			"Leverage: `%dx` | Margin: `$%s` (notional `$%s`)\n"+
			"Reason: `%s`",
		sideLabel(rec.Side),
		Coin(rec.Symbol),
		Price(rec.Entry),
		trendLabel(state),
		Price(rec.Stop), Price(rec.Target),
		rec.Leverage, USD(rec.MarginUSD), USD(rec.NotionalUSD),
		rec.Reason,
	)
}

// CloseMessage announces a TP or SL hit.
func CloseMessage(rec models.TradeRecord) string {
	head := "✅ *TP HIT*"
	if rec.Status == models.StatusSL {
		head = "🛑 *SL HIT*"
	}
	r := decimal.NewFromFloat(rec.RMultiple()).StringFixed(2)
	if rec.RMultiple() >= 0 {
		r = "+" + r
	}
	return fmt.Sprintf(
		"%s #%s %s\n"+
			"Entry: `%s` → Exit: `%s`\n"+
			"Result: `%sR`",
		head, Coin(rec.Symbol), rec.Side,
		Price(rec.Entry), Price(rec.ExitPrice),
		r,
	)
}

// StartupMessage is sent once when the loop starts.
func StartupMessage(symbols []string, timeframe string, openTrades int) string {
	coins := make([]string, 0, len(symbols))
	for _, s := range symbols {
		coins = append(coins, "#"+Coin(s))
	}
	return fmt.Sprintf(
		"🤖 *Signal bot started*\n"+
			"Timeframe: `%s`\n"+
			"Watching: %s\n"+
			"Open trades: `%d`",
		timeframe, strings.Join(coins, " "), openTrades,
	)
}
