package models

import (
	"fmt"
	"time"
)

// Status of a trade record. OPEN is the only non-terminal state.
type Status string

const (
	StatusOpen Status = "OPEN"
	StatusTP   Status = "TP"
	StatusSL   Status = "SL"
)

func (s Status) Terminal() bool { return s == StatusTP || s == StatusSL }

// TradeRecord is the persisted unit of truth for an opened signal.
// Entry, Target and Stop are fixed at creation; only Status (plus the
// close fields) changes, exactly once.
type TradeRecord struct {
	ID        string    `json:"id"`
	OpenedAt  time.Time `json:"opened_at"`
	ClosedAt  time.Time `json:"closed_at"`
	Symbol    string    `json:"symbol"`
	Side      Side      `json:"side"`
	Entry     float64   `json:"entry"`
	Target    float64   `json:"target"`
	Stop      float64   `json:"stop"`
	Status    Status    `json:"status"`
	ExitPrice float64   `json:"exit_price,omitempty"`

	Leverage    int     `json:"leverage"`
	MarginUSD   float64 `json:"margin_usd"`
	NotionalUSD float64 `json:"notional_usd"`
	Reason      string  `json:"reason"`
}

// Quote is what we know about price since the last check.
// High/Low are optional extremes observed after the trade was opened.
type Quote struct {
	Last float64
	High float64
	Low  float64
}

// LastQuote builds a quote from a single last price.
func LastQuote(px float64) Quote { return Quote{Last: px, High: px, Low: px} }

func (q Quote) high() float64 {
	if q.High > q.Last {
		return q.High
	}
	return q.Last
}

func (q Quote) low() float64 {
	if q.Low > 0 && q.Low < q.Last {
		return q.Low
	}
	return q.Last
}

// Evaluate returns the status the record should move to for the given quote.
// Terminal records always stay as they are. When both target and stop were
// reached (gap between checks) SL wins.
func (t TradeRecord) Evaluate(q Quote) (Status, float64) {
	if t.Status != StatusOpen || q.Last <= 0 {
		return t.Status, 0
	}

	var hitTP, hitSL bool
	switch t.Side {
	case SideLong:
		hitTP = q.high() >= t.Target
		hitSL = q.low() <= t.Stop
	case SideShort:
		hitTP = q.low() <= t.Target
		hitSL = q.high() >= t.Stop
	default:
		return t.Status, 0
	}

	switch {
	case hitSL:
		return StatusSL, t.Stop
	case hitTP:
		return StatusTP, t.Target
	default:
		return StatusOpen, 0
	}
}

// Close moves an OPEN record to a terminal status. It is a no-op for
// anything else and reports whether the record changed.
func (t *TradeRecord) Close(status Status, exit float64, at time.Time) bool {
	if t.Status != StatusOpen || !status.Terminal() {
		return false
	}
	t.Status = status
	t.ExitPrice = exit
	t.ClosedAt = at
	return true
}

// RMultiple of a closed trade.
func (t TradeRecord) RMultiple() float64 {
	risk := t.Entry - t.Stop
	move := t.ExitPrice - t.Entry
	if t.Side == SideShort {
		risk = t.Stop - t.Entry
		move = t.Entry - t.ExitPrice
	}
	if risk <= 0 || t.ExitPrice == 0 {
		return 0
	}
	return move / risk
}

func (t TradeRecord) String() string {
	return fmt.Sprintf("%s %s %s entry=%.6f tp=%.6f sl=%.6f lev=%dx",
		t.Symbol, t.Side, t.Status, t.Entry, t.Target, t.Stop, t.Leverage)
}
