package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal_bot/internal/models"
)

func makeBars(closes []float64) []models.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		bars[i] = models.Bar{
			OpenTime: start.Add(time.Duration(i) * time.Hour),
			Open:     open,
			High:     math.Max(open, c) + 0.5,
			Low:      math.Min(open, c) - 0.5,
			Close:    c,
			Volume:   1000,
		}
	}
	return bars
}

func zigzag(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 10*math.Sin(float64(i)/7) + float64(i%3)
	}
	return out
}

func TestComputeInsufficientData(t *testing.T) {
	t.Parallel()

	_, err := Compute(makeBars(zigzag(199)), DefaultParams())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestComputeAlignedAndDeterministic(t *testing.T) {
	t.Parallel()

	bars := makeBars(zigzag(250))
	a, err := Compute(bars, DefaultParams())
	require.NoError(t, err)
	b, err := Compute(bars, DefaultParams())
	require.NoError(t, err)

	assert.Len(t, a, len(bars))
	assert.Equal(t, a, b)
}

func TestEMASeedAndConstant(t *testing.T) {
	t.Parallel()

	xs := []float64{10, 10, 10, 10}
	assert.Equal(t, []float64{10, 10, 10, 10}, EMA(xs, 3))

	ys := EMA([]float64{1, 2}, 3)
	assert.InDelta(t, 1.0, ys[0], 1e-12)
	assert.InDelta(t, 1.5, ys[1], 1e-12) // alpha = 0.5
}

func TestRSIBounds(t *testing.T) {
	t.Parallel()

	for _, v := range RSI(zigzag(300), 14) {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
		assert.False(t, math.IsNaN(v))
	}
}

func TestRSIAllGainsIs100(t *testing.T) {
	t.Parallel()

	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = float64(100 + i)
	}
	for _, v := range RSI(closes, 14) {
		assert.Equal(t, 100.0, v)
	}

	// flat series: zero average loss as well
	for _, v := range RSI([]float64{5, 5, 5, 5}, 14) {
		assert.Equal(t, 100.0, v)
	}
}

func TestRSIAllLossesIsZero(t *testing.T) {
	t.Parallel()

	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = float64(100 - i)
	}
	rsi := RSI(closes, 14)
	assert.InDelta(t, 0.0, rsi[len(rsi)-1], 1e-9)
}

func TestMACDHistogram(t *testing.T) {
	t.Parallel()

	closes := zigzag(120)
	line, sig, hist := MACD(closes, 12, 26, 9)
	for i := range closes {
		assert.InDelta(t, line[i]-sig[i], hist[i], 1e-12)
	}
	assert.Equal(t, 0.0, line[0])
}

func TestATRConstantRange(t *testing.T) {
	t.Parallel()

	bars := make([]models.Bar, 40)
	for i := range bars {
		bars[i] = models.Bar{Open: 100, High: 101, Low: 99, Close: 100}
	}
	for _, v := range ATR(bars, 14) {
		assert.InDelta(t, 2.0, v, 1e-12)
	}
}

func TestATRUsesPreviousClose(t *testing.T) {
	t.Parallel()

	bars := []models.Bar{
		{High: 101, Low: 99, Close: 100},
		{High: 112, Low: 110, Close: 111}, // gap up: TR = 112-100
	}
	atr := ATR(bars, 2)
	assert.InDelta(t, 2.0, atr[0], 1e-12)
	assert.InDelta(t, 0.5*12+0.5*2, atr[1], 1e-12)
}

func TestSwingRollingWindow(t *testing.T) {
	t.Parallel()

	bars := make([]models.Bar, 25)
	for i := range bars {
		bars[i] = models.Bar{High: float64(100 + i), Low: float64(50 + i)}
	}
	bars[3].High = 500
	bars[3].Low = 1

	hi, lo := Swing(bars, 20)
	assert.Equal(t, 500.0, hi[22]) // bars 3..22
	assert.Equal(t, 1.0, lo[22])
	assert.Equal(t, 123.0, hi[23]) // bar 3 left the window
	assert.Equal(t, 54.0, lo[23])
}
