package audit

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"signal_bot/internal/models"
	"signal_bot/pkg/logger"
)

// Sink receives one row per trade event (open, TP, SL). Failures are logged
// inside the sink and never reach the cycle.
type Sink interface {
	AppendRow(ctx context.Context, rec models.TradeRecord)
}

var Header = []string{
	"time", "symbol", "side", "entry", "tp", "sl", "status", "reason",
	"margin", "leverage", "notional", "exit", "id",
}

// CSV appends rows to a file, writing the header once for a new file.
type CSV struct {
	mu sync.Mutex
	f  *os.File
	w  *csv.Writer
}

func NewCSV(path string) (*CSV, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat audit log: %w", err)
	}

	w := csv.NewWriter(f)
	if st.Size() == 0 {
		if err := w.Write(Header); err != nil {
			_ = f.Close()
			return nil, err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return &CSV{f: f, w: w}, nil
}

func (c *CSV) AppendRow(_ context.Context, rec models.TradeRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.w.Write(Row(rec)); err != nil {
		logger.Error("[AUDIT] write %s %s: %v", rec.Symbol, rec.Status, err)
		return
	}
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		logger.Error("[AUDIT] flush %s %s: %v", rec.Symbol, rec.Status, err)
	}
}

func (c *CSV) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		_ = c.f.Close()
		return err
	}
	return c.f.Close()
}

// Row renders a record in Header order. time is the event time: opened_at
// for OPEN rows, closed_at once terminal.
func Row(rec models.TradeRecord) []string {
	at := rec.OpenedAt
	exit := ""
	if rec.Status.Terminal() {
		at = rec.ClosedAt
		exit = d(rec.ExitPrice)
	}
	return []string{
		at.UTC().Format(time.RFC3339),
		rec.Symbol,
		string(rec.Side),
		d(rec.Entry),
		d(rec.Target),
		d(rec.Stop),
		string(rec.Status),
		rec.Reason,
		decimal.NewFromFloat(rec.MarginUSD).StringFixed(2),
		strconv.Itoa(rec.Leverage),
		decimal.NewFromFloat(rec.NotionalUSD).StringFixed(2),
		exit,
		rec.ID,
	}
}

func d(v float64) string {
	return decimal.NewFromFloat(v).Round(8).String()
}

// Nop drops every row, used when audit.path is empty.
type Nop struct{}

func (Nop) AppendRow(context.Context, models.TradeRecord) {}
