package strategy

import (
	"fmt"

	"signal_bot/internal/indicators"
	"signal_bot/internal/models"
)

// State: trend classification of the last closed bar, for logs.
type State string

const (
	StateUptrend   State = "UPTREND"
	StateDowntrend State = "DOWNTREND"
	StateSideways  State = "SIDEWAYS"
)

// Reason codes carried on signals and persisted with the trade.
const (
	ReasonTrendPullbackLong  = "TREND_PULLBACK_LONG"
	ReasonTrendPullbackShort = "TREND_PULLBACK_SHORT"
)

// Params of the trend/pullback strategy. Passed by value, never mutated.
type Params struct {
	Indicators indicators.Params

	RSILongMin  float64 // 40
	RSILongMax  float64 // 70
	RSIShortMin float64 // 30
	RSIShortMax float64 // 60

	FibLevel float64 // retracement of the swing range, 0.5

	StopBufferLong  float64 // LONG stop = swingLow * (1 - buf), 0.005
	StopBufferShort float64 // SHORT stop = swingHigh * (1 + buf), 0.005

	RR float64 // target = entry ± RR * 1R, 1.5
}

func DefaultParams() Params {
	return Params{
		Indicators:      indicators.DefaultParams(),
		RSILongMin:      40,
		RSILongMax:      70,
		RSIShortMin:     30,
		RSIShortMax:     60,
		FibLevel:        0.5,
		StopBufferLong:  0.005,
		StopBufferShort: 0.005,
		RR:              1.5,
	}
}

// Classify the bar against both EMAs.
func Classify(close float64, cur indicators.Snapshot) State {
	switch {
	case close > cur.EMASlow && close > cur.EMAFast:
		return StateUptrend
	case close < cur.EMASlow && close < cur.EMAFast:
		return StateDowntrend
	default:
		return StateSideways
	}
}

// Decide looks at the last closed bar. cur is that bar's snapshot, prev is
// the snapshot of the bar before it: swing levels are taken with one bar of
// lag so the bar's own extreme is never its reference.
//
// Trend states are disjoint, so at most one side can fire.
func Decide(symbol string, latest models.Bar, cur, prev indicators.Snapshot, p Params) (models.Signal, bool) {
	entry := latest.Close
	if entry <= 0 {
		return models.Signal{}, false
	}

	swingHigh, swingLow := prev.SwingHigh, prev.SwingLow
	fib := swingHigh - p.FibLevel*(swingHigh-swingLow)

	switch Classify(entry, cur) {
	case StateUptrend:
		if !(cur.RSI > p.RSILongMin && cur.RSI < p.RSILongMax) {
			return models.Signal{}, false
		}
		if cur.MACD <= cur.MACDSignal || entry < fib {
			return models.Signal{}, false
		}
		stop := swingLow * (1 - p.StopBufferLong)
		if stop <= 0 || stop >= entry {
			return models.Signal{}, false
		}
		return models.Signal{
			Symbol: symbol,
			Side:   models.SideLong,
			Reason: fmt.Sprintf("%s rsi=%.1f macd>sig fib50=%.6f", ReasonTrendPullbackLong, cur.RSI, fib),
			Entry:  entry,
			Stop:   stop,
			Target: entry + (entry-stop)*p.RR,
		}, true

	case StateDowntrend:
		if !(cur.RSI > p.RSIShortMin && cur.RSI < p.RSIShortMax) {
			return models.Signal{}, false
		}
		if cur.MACD >= cur.MACDSignal || entry > fib {
			return models.Signal{}, false
		}
		stop := swingHigh * (1 + p.StopBufferShort)
		if stop <= entry {
			return models.Signal{}, false
		}
		return models.Signal{
			Symbol: symbol,
			Side:   models.SideShort,
			Reason: fmt.Sprintf("%s rsi=%.1f macd<sig fib50=%.6f", ReasonTrendPullbackShort, cur.RSI, fib),
			Entry:  entry,
			Stop:   stop,
			Target: entry - (stop-entry)*p.RR,
		}, true
	}

	return models.Signal{}, false
}

// Evaluation is the full result for one symbol and cycle.
type Evaluation struct {
	Signal   models.Signal
	Ok       bool
	State    State
	Bar      models.Bar
	Snapshot indicators.Snapshot
}

// Evaluate computes indicators over the window and decides on the last
// closed bar (bars[len-2]); the last bar is still forming and is ignored.
func Evaluate(symbol string, bars []models.Bar, p Params) (Evaluation, error) {
	snaps, err := indicators.Compute(bars, p.Indicators)
	if err != nil {
		return Evaluation{}, err
	}
	if len(bars) < 3 {
		return Evaluation{}, fmt.Errorf("%w: have %d bars", indicators.ErrInsufficientData, len(bars))
	}

	i := len(bars) - 2
	latest, cur, prev := bars[i], snaps[i], snaps[i-1]

	sig, ok := Decide(symbol, latest, cur, prev, p)
	return Evaluation{
		Signal:   sig,
		Ok:       ok,
		State:    Classify(latest.Close, cur),
		Bar:      latest,
		Snapshot: cur,
	}, nil
}

// Dump: one-line state for logs.
func (e Evaluation) Dump() string {
	s := e.Snapshot
	return fmt.Sprintf("%s close=%.6f ema50=%.6f ema200=%.6f rsi=%.1f macd=%.6f sig=%.6f atr=%.6f",
		e.State, e.Bar.Close, s.EMAFast, s.EMASlow, s.RSI, s.MACD, s.MACDSignal, s.ATR)
}
