package audit

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal_bot/internal/models"
)

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVAppendsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.csv")
	opened := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	rec := models.TradeRecord{
		ID:          "01J0000000000000000000000",
		OpenedAt:    opened,
		Symbol:      "ETH/USDT",
		Side:        models.SideShort,
		Entry:       2500.1,
		Target:      2400,
		Stop:        2550.35,
		Status:      models.StatusOpen,
		Leverage:    7,
		MarginUSD:   3.333333,
		NotionalUSD: 23.3333,
		Reason:      "TREND_PULLBACK_SHORT",
	}

	sink, err := NewCSV(path)
	require.NoError(t, err)
	sink.AppendRow(context.Background(), rec)

	rec.Status, rec.ExitPrice, rec.ClosedAt = models.StatusTP, 2400, opened.Add(3*time.Hour)
	sink.AppendRow(context.Background(), rec)
	require.NoError(t, sink.Close())

	rows := readRows(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, []string{
		"2026-03-01T10:00:00Z", "ETH/USDT", "SHORT", "2500.1", "2400", "2550.35", "OPEN",
		"TREND_PULLBACK_SHORT", "3.33", "7", "23.33", "", "01J0000000000000000000000",
	}, rows[1])
	assert.Equal(t, "2026-03-01T13:00:00Z", rows[2][0])
	assert.Equal(t, "TP", rows[2][6])
	assert.Equal(t, "2400", rows[2][11])
}

func TestCSVReopenKeepsSingleHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.csv")
	rec := models.TradeRecord{Symbol: "BTC/USDT", Side: models.SideLong, Status: models.StatusOpen}

	for i := 0; i < 2; i++ {
		sink, err := NewCSV(path)
		require.NoError(t, err)
		sink.AppendRow(context.Background(), rec)
		require.NoError(t, sink.Close())
	}

	rows := readRows(t, path)
	assert.Len(t, rows, 3)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, "BTC/USDT", rows[2][1])
}
