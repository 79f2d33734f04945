package helper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormTF(t *testing.T) {
	assert.Equal(t, "1h", NormTF("60m"))
	assert.Equal(t, "1h", NormTF(" 1H "))
	assert.Equal(t, "15m", NormTF("candle15m"))
	assert.Equal(t, "1d", NormTF("24h"))
}

func TestTFDuration(t *testing.T) {
	d, ok := TFDuration("1h")
	assert.True(t, ok)
	assert.Equal(t, time.Hour, d)

	_, ok = TFDuration("7m")
	assert.False(t, ok)
}

func TestNormSymbol(t *testing.T) {
	for _, in := range []string{"BTC/USDT", "btc/usdt", "BTC/USDT:USDT", "BTC-USDT", "BTCUSDT"} {
		assert.Equal(t, "BTCUSDT", NormSymbol(in), in)
	}
}
