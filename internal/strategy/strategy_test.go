package strategy

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal_bot/internal/indicators"
	"signal_bot/internal/models"
)

func longSetup() (models.Bar, indicators.Snapshot, indicators.Snapshot) {
	bar := models.Bar{Open: 99, High: 101, Low: 98.5, Close: 100}
	cur := indicators.Snapshot{EMAFast: 98, EMASlow: 95, RSI: 55, MACD: 1, MACDSignal: 0.5}
	prev := indicators.Snapshot{SwingHigh: 110, SwingLow: 90} // fib50 = 100
	return bar, cur, prev
}

func shortSetup() (models.Bar, indicators.Snapshot, indicators.Snapshot) {
	bar := models.Bar{Open: 101, High: 101.5, Low: 99, Close: 100}
	cur := indicators.Snapshot{EMAFast: 102, EMASlow: 105, RSI: 45, MACD: -1, MACDSignal: -0.5}
	prev := indicators.Snapshot{SwingHigh: 110, SwingLow: 90}
	return bar, cur, prev
}

func TestDecideLongAtRetracement(t *testing.T) {
	t.Parallel()

	bar, cur, prev := longSetup()
	sig, ok := Decide("BTC/USDT", bar, cur, prev, DefaultParams())
	require.True(t, ok)

	assert.Equal(t, models.SideLong, sig.Side)
	assert.Equal(t, "BTC/USDT", sig.Symbol)
	assert.InDelta(t, 100.0, sig.Entry, 1e-12)
	assert.InDelta(t, 90*0.995, sig.Stop, 1e-9)
	assert.InDelta(t, 100+(100-90*0.995)*1.5, sig.Target, 1e-9)
	assert.Contains(t, sig.Reason, ReasonTrendPullbackLong)
}

func TestDecideShortMirrored(t *testing.T) {
	t.Parallel()

	bar, cur, prev := shortSetup()
	sig, ok := Decide("ETH/USDT", bar, cur, prev, DefaultParams())
	require.True(t, ok)

	assert.Equal(t, models.SideShort, sig.Side)
	assert.InDelta(t, 110*1.005, sig.Stop, 1e-9)
	assert.InDelta(t, 100-(110*1.005-100)*1.5, sig.Target, 1e-9)
	assert.InDelta(t, sig.Stop-sig.Entry, sig.Risk(), 1e-12)
}

func TestDecideRSIBoundsAreExclusive(t *testing.T) {
	t.Parallel()

	p := DefaultParams()
	for _, rsi := range []float64{40, 70, 25, 85} {
		bar, cur, prev := longSetup()
		cur.RSI = rsi
		_, ok := Decide("X", bar, cur, prev, p)
		assert.False(t, ok, "rsi=%v", rsi)
	}
	for _, rsi := range []float64{30, 60} {
		bar, cur, prev := shortSetup()
		cur.RSI = rsi
		_, ok := Decide("X", bar, cur, prev, p)
		assert.False(t, ok, "rsi=%v", rsi)
	}
}

func TestDecideRequiresMACDConfirmation(t *testing.T) {
	t.Parallel()

	bar, cur, prev := longSetup()
	cur.MACD, cur.MACDSignal = 0.5, 0.5
	_, ok := Decide("X", bar, cur, prev, DefaultParams())
	assert.False(t, ok)

	bar, cur, prev = shortSetup()
	cur.MACD = 0
	_, ok = Decide("X", bar, cur, prev, DefaultParams())
	assert.False(t, ok)
}

func TestDecideBelowRetracementNoLong(t *testing.T) {
	t.Parallel()

	bar, cur, prev := longSetup()
	prev.SwingHigh = 112 // fib50 = 101 > close
	_, ok := Decide("X", bar, cur, prev, DefaultParams())
	assert.False(t, ok)
}

func TestDecideSidewaysNoSignal(t *testing.T) {
	t.Parallel()

	bar, cur, prev := longSetup()
	cur.EMAFast = 101 // close between EMAs
	_, ok := Decide("X", bar, cur, prev, DefaultParams())
	assert.False(t, ok)
	assert.Equal(t, StateSideways, Classify(bar.Close, cur))
}

func TestDecideUsesConfiguredRR(t *testing.T) {
	t.Parallel()

	p := DefaultParams()
	p.RR = 2
	bar, cur, prev := longSetup()
	sig, ok := Decide("X", bar, cur, prev, p)
	require.True(t, ok)
	assert.InDelta(t, 2*sig.Risk(), sig.Target-sig.Entry, 1e-9)
}

func TestEvaluateInsufficientBars(t *testing.T) {
	t.Parallel()

	_, err := Evaluate("X", make([]models.Bar, 10), DefaultParams())
	assert.ErrorIs(t, err, indicators.ErrInsufficientData)
}

func TestEvaluateIgnoresFormingBar(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, 250)
	for i := range bars {
		c := 100 + float64(i)*0.5
		bars[i] = models.Bar{OpenTime: start.Add(time.Duration(i) * time.Hour), Open: c - 0.2, High: c + 0.3, Low: c - 0.4, Close: c}
	}
	// the forming bar collapses; decisions must not see it
	bars[len(bars)-1].Close = 1
	bars[len(bars)-1].Low = 1

	ev, err := Evaluate("X", bars, DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, StateUptrend, ev.State)
	assert.Equal(t, bars[len(bars)-2], ev.Bar)
	assert.NotEmpty(t, ev.Dump())
}

// waveBars trends by slope per bar with a sine swing on top. Each bar opens
// at the previous close.
func waveBars(n int, base, slope, amp, period float64) []models.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, n)
	prev := base
	for i := range bars {
		c := base + slope*float64(i) + amp*math.Sin(float64(i)/period)
		bars[i] = models.Bar{
			OpenTime: start.Add(time.Duration(i) * time.Hour),
			Open:     prev,
			High:     math.Max(prev, c) + 0.2,
			Low:      math.Min(prev, c) - 0.2,
			Close:    c,
		}
		prev = c
	}
	return bars
}

func TestEvaluateLongFromBars(t *testing.T) {
	t.Parallel()

	p := DefaultParams()
	bars := waveBars(256, 100, 0.3, 5, 3)
	snaps, err := indicators.Compute(bars, p.Indicators)
	require.NoError(t, err)

	ev, err := Evaluate("BTC/USDT", bars, p)
	require.NoError(t, err)
	require.True(t, ev.Ok, ev.Dump())

	i := len(bars) - 2
	entry := bars[i].Close
	stop := snaps[i-1].SwingLow * 0.995
	assert.Equal(t, StateUptrend, ev.State)
	assert.Equal(t, models.SideLong, ev.Signal.Side)
	assert.InDelta(t, entry, ev.Signal.Entry, 1e-12)
	assert.InDelta(t, stop, ev.Signal.Stop, 1e-9)
	assert.InDelta(t, entry+(entry-stop)*1.5, ev.Signal.Target, 1e-9)
}

func TestEvaluateShortFromBars(t *testing.T) {
	t.Parallel()

	p := DefaultParams()
	bars := waveBars(265, 200, -0.3, 5, 3)
	snaps, err := indicators.Compute(bars, p.Indicators)
	require.NoError(t, err)

	ev, err := Evaluate("ETH/USDT", bars, p)
	require.NoError(t, err)
	require.True(t, ev.Ok, ev.Dump())

	i := len(bars) - 2
	entry := bars[i].Close
	stop := snaps[i-1].SwingHigh * 1.005
	assert.Equal(t, StateDowntrend, ev.State)
	assert.Equal(t, models.SideShort, ev.Signal.Side)
	assert.InDelta(t, entry, ev.Signal.Entry, 1e-12)
	assert.InDelta(t, stop, ev.Signal.Stop, 1e-9)
	assert.InDelta(t, entry-(stop-entry)*1.5, ev.Signal.Target, 1e-9)
}

func TestEvaluateStopLagsOneBar(t *testing.T) {
	t.Parallel()

	p := DefaultParams()
	bars := waveBars(256, 100, 0.3, 5, 3)
	i := len(bars) - 2
	// a deep wick on the signal bar moves its own swing low only
	bars[i].Low -= 20

	snaps, err := indicators.Compute(bars, p.Indicators)
	require.NoError(t, err)
	require.Less(t, snaps[i].SwingLow, snaps[i-1].SwingLow)

	ev, err := Evaluate("BTC/USDT", bars, p)
	require.NoError(t, err)
	require.True(t, ev.Ok, ev.Dump())
	assert.InDelta(t, snaps[i-1].SwingLow*0.995, ev.Signal.Stop, 1e-9)
}
