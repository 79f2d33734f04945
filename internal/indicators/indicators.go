// Package indicators computes per-bar indicator snapshots from a bar window.
// Everything is recomputed from the full window on each call; nothing is
// kept between calls.
package indicators

import (
	"errors"
	"fmt"
	"math"

	"signal_bot/internal/models"
)

// ErrInsufficientData: fewer bars than the configured window.
var ErrInsufficientData = errors.New("insufficient bars")

// Params for Compute. Zero values fall back to the defaults.
type Params struct {
	Window      int // minimum bars required, 200
	EMAFast     int // 50
	EMASlow     int // 200
	RSIPeriod   int // 14
	MACDFast    int // 12
	MACDSlow    int // 26
	MACDSignal  int // 9
	ATRPeriod   int // 14
	SwingPeriod int // 20
}

func DefaultParams() Params {
	return Params{
		Window:      200,
		EMAFast:     50,
		EMASlow:     200,
		RSIPeriod:   14,
		MACDFast:    12,
		MACDSlow:    26,
		MACDSignal:  9,
		ATRPeriod:   14,
		SwingPeriod: 20,
	}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.Window <= 0 {
		p.Window = d.Window
	}
	if p.EMAFast <= 0 {
		p.EMAFast = d.EMAFast
	}
	if p.EMASlow <= 0 {
		p.EMASlow = d.EMASlow
	}
	if p.RSIPeriod <= 0 {
		p.RSIPeriod = d.RSIPeriod
	}
	if p.MACDFast <= 0 {
		p.MACDFast = d.MACDFast
	}
	if p.MACDSlow <= 0 {
		p.MACDSlow = d.MACDSlow
	}
	if p.MACDSignal <= 0 {
		p.MACDSignal = d.MACDSignal
	}
	if p.ATRPeriod <= 0 {
		p.ATRPeriod = d.ATRPeriod
	}
	if p.SwingPeriod <= 0 {
		p.SwingPeriod = d.SwingPeriod
	}
	return p
}

// Snapshot holds indicator values aligned with one bar.
type Snapshot struct {
	EMAFast    float64
	EMASlow    float64
	RSI        float64
	MACD       float64
	MACDSignal float64
	MACDHist   float64
	ATR        float64
	SwingHigh  float64
	SwingLow   float64
}

// Compute returns one snapshot per input bar.
func Compute(bars []models.Bar, p Params) ([]Snapshot, error) {
	p = p.withDefaults()
	if len(bars) < p.Window {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientData, len(bars), p.Window)
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	emaFast := EMA(closes, p.EMAFast)
	emaSlow := EMA(closes, p.EMASlow)
	rsi := RSI(closes, p.RSIPeriod)
	macd, signal, hist := MACD(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)
	atr := ATR(bars, p.ATRPeriod)
	hi, lo := Swing(bars, p.SwingPeriod)

	out := make([]Snapshot, len(bars))
	for i := range bars {
		out[i] = Snapshot{
			EMAFast:    emaFast[i],
			EMASlow:    emaSlow[i],
			RSI:        rsi[i],
			MACD:       macd[i],
			MACDSignal: signal[i],
			MACDHist:   hist[i],
			ATR:        atr[i],
			SwingHigh:  hi[i],
			SwingLow:   lo[i],
		}
	}
	return out, nil
}

// EMA: recursive smoothing with alpha = 2/(n+1), seeded with the first value.
func EMA(xs []float64, period int) []float64 {
	if period <= 1 {
		period = 1
	}
	return ewm(xs, 2.0/(float64(period)+1))
}

// ewm is the adjust=false exponential mean: out[0]=xs[0], out[i]=a*x+(1-a)*out[i-1].
func ewm(xs []float64, alpha float64) []float64 {
	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out
	}
	out[0] = xs[0]
	for i := 1; i < len(xs); i++ {
		out[i] = alpha*xs[i] + (1-alpha)*out[i-1]
	}
	return out
}

// RSI with Wilder smoothing (alpha = 1/period). The first bar has no change
// and is seeded with zero gain/loss. Zero average loss means RSI = 100.
func RSI(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	if len(closes) == 0 {
		return out
	}
	if period <= 0 {
		period = 14
	}
	alpha := 1.0 / float64(period)

	var avgGain, avgLoss float64
	for i := range closes {
		gain, loss := 0.0, 0.0
		if i > 0 {
			change := closes[i] - closes[i-1]
			if change > 0 {
				gain = change
			} else {
				loss = -change
			}
		}
		switch i {
		case 0:
		case 1:
			avgGain, avgLoss = gain, loss
		default:
			avgGain = alpha*gain + (1-alpha)*avgGain
			avgLoss = alpha*loss + (1-alpha)*avgLoss
		}
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss <= 0 {
		return 100
	}
	rs := avgGain / avgLoss
	v := 100 - 100/(1+rs)
	if math.IsNaN(v) {
		return 100
	}
	return math.Max(0, math.Min(100, v))
}

// MACD returns macd line, signal line and histogram.
func MACD(closes []float64, fast, slow, signal int) ([]float64, []float64, []float64) {
	f := EMA(closes, fast)
	s := EMA(closes, slow)
	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = f[i] - s[i]
	}
	sig := EMA(line, signal)
	hist := make([]float64, len(closes))
	for i := range closes {
		hist[i] = line[i] - sig[i]
	}
	return line, sig, hist
}

// ATR: Wilder-smoothed true range. The first bar's TR is its high-low range.
func ATR(bars []models.Bar, period int) []float64 {
	if period <= 0 {
		period = 14
	}
	tr := make([]float64, len(bars))
	for i, b := range bars {
		if i == 0 {
			tr[i] = b.High - b.Low
			continue
		}
		tr[i] = trueRange(b, bars[i-1].Close)
	}
	return ewm(tr, 1.0/float64(period))
}

func trueRange(b models.Bar, prevClose float64) float64 {
	return math.Max(b.High-b.Low, math.Max(math.Abs(b.High-prevClose), math.Abs(b.Low-prevClose)))
}

// Swing returns rolling max(high) and min(low) over the trailing period,
// current bar included. Before the window fills it uses what is available.
func Swing(bars []models.Bar, period int) ([]float64, []float64) {
	if period <= 0 {
		period = 20
	}
	hi := make([]float64, len(bars))
	lo := make([]float64, len(bars))
	for i := range bars {
		start := i - period + 1
		if start < 0 {
			start = 0
		}
		h, l := bars[start].High, bars[start].Low
		for _, b := range bars[start+1 : i+1] {
			if b.High > h {
				h = b.High
			}
			if b.Low < l {
				l = b.Low
			}
		}
		hi[i], lo[i] = h, l
	}
	return hi, lo
}
