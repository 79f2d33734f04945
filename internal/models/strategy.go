package models

import "time"

// Side of a signal or trade.
type Side string

const (
	SideNone  Side = ""
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Bar is one OHLCV candle. The last bar of a fetched window is still forming.
type Bar struct {
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// Signal: strategy answer for the last closed bar.
type Signal struct {
	Symbol string
	Side   Side
	Reason string
	Entry  float64
	Stop   float64
	Target float64
}

// Risk is the price distance between entry and stop (1R).
func (s Signal) Risk() float64 {
	if s.Side == SideShort {
		return s.Stop - s.Entry
	}
	return s.Entry - s.Stop
}
