package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"signal_bot/internal/models"
)

// Memory keeps the trade log in process. One mutex covers check-and-append
// and resolution, so it is safe for concurrent cycles.
type Memory struct {
	mu      sync.Mutex
	records []models.TradeRecord
	open    map[string]int // symbol -> index of its OPEN record

	now func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		open: make(map[string]int),
		now:  time.Now,
	}
}

func (m *Memory) HasOpenPosition(_ context.Context, symbol string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.open[symbol]
	return ok, nil
}

func (m *Memory) OpenPosition(_ context.Context, symbol string) (models.TradeRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.open[symbol]
	if !ok {
		return models.TradeRecord{}, false, nil
	}
	return m.records[i], true, nil
}

func (m *Memory) Open(_ context.Context, rec *models.TradeRecord) error {
	if err := validate(rec); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.open[rec.Symbol]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicatePosition, rec.Symbol)
	}
	prepare(rec, m.now)
	m.records = append(m.records, *rec)
	m.open[rec.Symbol] = len(m.records) - 1
	return nil
}

func (m *Memory) Resolve(_ context.Context, symbol string, q models.Quote) (models.TradeRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.open[symbol]
	if !ok {
		return models.TradeRecord{}, false, nil
	}
	rec := &m.records[i]
	status, exit := rec.Evaluate(q)
	if !rec.Close(status, exit, m.now().UTC()) {
		return *rec, false, nil
	}
	delete(m.open, symbol)
	return *rec, true, nil
}

func (m *Memory) OpenTrades(_ context.Context) ([]models.TradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.TradeRecord, 0, len(m.open))
	for _, r := range m.records {
		if r.Status == models.StatusOpen {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) List(_ context.Context, limit int) ([]models.TradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.records)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.TradeRecord, 0, n)
	for i := len(m.records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
