package risk

import (
	"fmt"
	"math"
)

// Params: static account settings. Balance is configured, never queried
// from a broker; the result is advisory.
type Params struct {
	BalanceUSD       float64 // e.g. 50
	RiskFraction     float64 // 0.02 => lose 2% of balance at the stop
	LeverageCap      int     // upper bound for leverage
	SafetyMultiplier float64 // liquidation distance = stop distance * safety, 1.5
	MinMarginUSD     float64 // exchange-realistic minimum margin, 0 = off
}

func DefaultParams() Params {
	return Params{
		BalanceUSD:       50,
		RiskFraction:     0.02,
		LeverageCap:      20,
		SafetyMultiplier: 1.5,
	}
}

// Result of Size.
type Result struct {
	NotionalUSD     float64
	Leverage        int
	MarginUSD       float64
	StopDistancePct float64
}

// Degenerate reports the neutral result: nothing to size.
func (r Result) Degenerate() bool { return r.NotionalUSD <= 0 }

func (r Result) String() string {
	return fmt.Sprintf("notional=%.2f lev=%dx margin=%.2f stop=%.3f%%",
		r.NotionalUSD, r.Leverage, r.MarginUSD, r.StopDistancePct*100)
}

var neutral = Result{Leverage: 1}

// Size converts (entry, stop) into notional, leverage and margin so that a
// stop-out costs BalanceUSD*RiskFraction. entry == stop yields the neutral
// result, never an unbounded leverage.
func Size(entry, stop float64, p Params) Result {
	// 1) stop distance
	if entry <= 0 || stop <= 0 || math.IsNaN(entry) || math.IsNaN(stop) {
		return neutral
	}
	stopDist := math.Abs(entry - stop)
	if stopDist == 0 {
		return neutral
	}
	stopDistPct := stopDist / entry

	// 2) money at risk
	riskAmount := p.BalanceUSD * p.RiskFraction
	if riskAmount <= 0 {
		return Result{Leverage: 1, StopDistancePct: stopDistPct}
	}

	// 3) position value that loses riskAmount at the stop
	notional := riskAmount / stopDistPct

	// 4) leverage so liquidation sits farther than the stop
	safety := p.SafetyMultiplier
	if safety <= 0 {
		safety = 1
	}
	lev := int(math.Floor(1 / (stopDistPct * safety)))
	if p.LeverageCap > 0 && lev > p.LeverageCap {
		lev = p.LeverageCap
	}
	if lev < 1 {
		lev = 1
	}

	// 5) margin, scaled up to the exchange minimum if needed
	margin := notional / float64(lev)
	if p.MinMarginUSD > 0 && margin < p.MinMarginUSD {
		margin = p.MinMarginUSD
		notional = margin * float64(lev)
	}

	return Result{
		NotionalUSD:     notional,
		Leverage:        lev,
		MarginUSD:       margin,
		StopDistancePct: stopDistPct,
	}
}

// RR: reward to risk of a planned trade.
func RR(entry, stop, target float64) float64 {
	risk := math.Abs(entry - stop)
	if risk == 0 {
		return 0
	}
	return math.Abs(target-entry) / risk
}
