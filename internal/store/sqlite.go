package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"signal_bot/internal/models"
)

// SQLite is the file-backed trade log. A single connection plus the
// partial unique index make check-and-append atomic.
type SQLite struct {
	db *sql.DB
	mu sync.Mutex

	now func() time.Time
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %w", ErrUnavailable, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: apply schema: %w", ErrUnavailable, err)
	}

	return &SQLite{db: db, now: time.Now}, nil
}

func (s *SQLite) HasOpenPosition(ctx context.Context, symbol string) (bool, error) {
	_, ok, err := s.OpenPosition(ctx, symbol)
	return ok, err
}

func (s *SQLite) OpenPosition(ctx context.Context, symbol string) (models.TradeRecord, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tradeColumns+` FROM trades WHERE symbol = ? AND status = 'OPEN' LIMIT 1`, symbol)
	rec, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TradeRecord{}, false, nil
	}
	if err != nil {
		return models.TradeRecord{}, false, fmt.Errorf("%w: select open %s: %w", ErrUnavailable, symbol, err)
	}
	return rec, true, nil
}

func (s *SQLite) Open(ctx context.Context, rec *models.TradeRecord) (err error) {
	if err := validate(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrUnavailable, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var n int
	if err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM trades WHERE symbol = ? AND status = 'OPEN'`, rec.Symbol).Scan(&n); err != nil {
		return fmt.Errorf("%w: check open %s: %w", ErrUnavailable, rec.Symbol, err)
	}
	if n > 0 {
		return fmt.Errorf("%w: %s", ErrDuplicatePosition, rec.Symbol)
	}

	draft := *rec
	prepare(&draft, s.now)
	_, err = tx.ExecContext(ctx, `INSERT INTO trades (`+tradeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		draft.ID, draft.OpenedAt, nullTime(draft), draft.Symbol, string(draft.Side),
		draft.Entry, draft.Target, draft.Stop,
		string(draft.Status), draft.ExitPrice, draft.Leverage, draft.MarginUSD, draft.NotionalUSD, draft.Reason,
	)
	if err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("%w: %s", ErrDuplicatePosition, rec.Symbol)
		}
		return fmt.Errorf("%w: insert %s: %w", ErrUnavailable, rec.Symbol, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrUnavailable, err)
	}
	*rec = draft
	return nil
}

func (s *SQLite) Resolve(ctx context.Context, symbol string, q models.Quote) (rec models.TradeRecord, changed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.TradeRecord{}, false, fmt.Errorf("%w: begin: %w", ErrUnavailable, err)
	}
	defer func() {
		if err != nil || !changed {
			_ = tx.Rollback()
		}
	}()

	rec, err = scanTrade(tx.QueryRowContext(ctx,
		`SELECT `+tradeColumns+` FROM trades WHERE symbol = ? AND status = 'OPEN' LIMIT 1`, symbol))
	if errors.Is(err, sql.ErrNoRows) {
		return models.TradeRecord{}, false, nil
	}
	if err != nil {
		return models.TradeRecord{}, false, fmt.Errorf("%w: select open %s: %w", ErrUnavailable, symbol, err)
	}

	closed := rec
	status, exit := closed.Evaluate(q)
	if !closed.Close(status, exit, s.now().UTC()) {
		return rec, false, nil
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE trades SET status = ?, exit_price = ?, closed_at = ? WHERE id = ? AND status = 'OPEN'`,
		string(closed.Status), closed.ExitPrice, closed.ClosedAt, closed.ID)
	if err != nil {
		return models.TradeRecord{}, false, fmt.Errorf("%w: update %s: %w", ErrUnavailable, closed.ID, err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return rec, false, nil
	}
	changed = true
	if err = tx.Commit(); err != nil {
		return models.TradeRecord{}, false, fmt.Errorf("%w: commit: %w", ErrUnavailable, err)
	}
	return closed, true, nil
}

func (s *SQLite) OpenTrades(ctx context.Context) ([]models.TradeRecord, error) {
	return s.query(ctx, `SELECT `+tradeColumns+` FROM trades WHERE status = 'OPEN' ORDER BY opened_at`)
}

func (s *SQLite) List(ctx context.Context, limit int) ([]models.TradeRecord, error) {
	if limit <= 0 {
		return s.query(ctx, `SELECT `+tradeColumns+` FROM trades ORDER BY opened_at DESC, id DESC`)
	}
	return s.query(ctx, `SELECT `+tradeColumns+` FROM trades ORDER BY opened_at DESC, id DESC LIMIT ?`, limit)
}

func (s *SQLite) query(ctx context.Context, q string, args ...any) ([]models.TradeRecord, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", ErrUnavailable, err)
	}
	defer rows.Close()

	var out []models.TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan: %w", ErrUnavailable, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %w", ErrUnavailable, err)
	}
	return out, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
