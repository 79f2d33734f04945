package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"signal_bot/internal/models"
)

func TestSummarize(t *testing.T) {
	recs := []models.TradeRecord{
		{Symbol: "SOL/USDT", Side: models.SideLong, Status: models.StatusOpen, MarginUSD: 2.5},
		{Symbol: "ETH/USDT", Side: models.SideLong, Entry: 100, Stop: 90, Target: 115, Status: models.StatusTP, ExitPrice: 115, MarginUSD: 1},
		{Symbol: "BTC/USDT", Side: models.SideShort, Entry: 100, Stop: 110, Target: 85, Status: models.StatusSL, ExitPrice: 110, MarginUSD: 3},
		{Symbol: "XRP/USDT", Side: models.SideLong, Entry: 1, Stop: 0.9, Target: 1.15, Status: models.StatusTP, ExitPrice: 1.15, MarginUSD: 4},
	}

	s := Summarize(recs)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 1, s.Active)
	assert.Equal(t, 2, s.Wins)
	assert.Equal(t, 1, s.Losses)
	assert.InDelta(t, 2.0/3.0, s.WinRate, 1e-9)
	assert.InDelta(t, 2.5, s.LastMargin, 1e-9)
	assert.InDelta(t, 2.0, s.NetR, 1e-9)

	assert.Equal(t, Summary{}, Summarize(nil))
}
