package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pkgerrors "github.com/pkg/errors"

	"signal_bot/internal/models"
	"signal_bot/pkg/db"
)

const pgUniqueViolation = "23505"

// Postgres keeps the trade log in a postgres table. Opening takes a
// transaction-scoped advisory lock on the symbol, so concurrent cycles for
// one symbol serialize on the check-and-append.
type Postgres struct {
	db db.TxManager

	now func() time.Time
}

func NewPostgres(ctx context.Context, txm db.TxManager) (*Postgres, error) {
	if _, err := txm.Conn().Exec(ctx, postgresSchema); err != nil {
		return nil, pkgerrors.Wrap(errors.Join(ErrUnavailable, err), "apply schema")
	}
	return &Postgres{db: txm, now: time.Now}, nil
}

func lockSymbol(ctx context.Context, tx pgx.Tx, symbol string) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, symbol)
	return err
}

func (p *Postgres) HasOpenPosition(ctx context.Context, symbol string) (bool, error) {
	_, ok, err := p.OpenPosition(ctx, symbol)
	return ok, err
}

func (p *Postgres) OpenPosition(ctx context.Context, symbol string) (models.TradeRecord, bool, error) {
	rec, err := scanTrade(p.db.Conn().QueryRow(ctx,
		`SELECT `+tradeColumns+` FROM trades WHERE symbol = $1 AND status = 'OPEN' LIMIT 1`, symbol))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.TradeRecord{}, false, nil
	}
	if err != nil {
		return models.TradeRecord{}, false, pkgerrors.Wrapf(errors.Join(ErrUnavailable, err), "select open %s", symbol)
	}
	return rec, true, nil
}

func (p *Postgres) Open(ctx context.Context, rec *models.TradeRecord) error {
	if err := validate(rec); err != nil {
		return err
	}

	draft := *rec
	prepare(&draft, p.now)

	var duplicate bool
	err := p.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		if err := lockSymbol(ctxTx, tx, draft.Symbol); err != nil {
			return err
		}

		var n int
		if err := tx.QueryRow(ctxTx,
			`SELECT COUNT(*) FROM trades WHERE symbol = $1 AND status = 'OPEN'`, draft.Symbol).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			duplicate = true
			return ErrDuplicatePosition
		}

		_, err := tx.Exec(ctxTx, `INSERT INTO trades (`+tradeColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			draft.ID, draft.OpenedAt, nullTime(draft), draft.Symbol, string(draft.Side),
			draft.Entry, draft.Target, draft.Stop,
			string(draft.Status), draft.ExitPrice, draft.Leverage, draft.MarginUSD, draft.NotionalUSD, draft.Reason,
		)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			duplicate = true
			return ErrDuplicatePosition
		}
		return err
	})
	if duplicate {
		return fmt.Errorf("%w: %s", ErrDuplicatePosition, draft.Symbol)
	}
	if err != nil {
		return pkgerrors.Wrapf(errors.Join(ErrUnavailable, err), "open %s", draft.Symbol)
	}

	*rec = draft
	return nil
}

func (p *Postgres) Resolve(ctx context.Context, symbol string, q models.Quote) (models.TradeRecord, bool, error) {
	var (
		out     models.TradeRecord
		changed bool
	)
	err := p.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		rec, err := scanTrade(tx.QueryRow(ctxTx,
			`SELECT `+tradeColumns+` FROM trades WHERE symbol = $1 AND status = 'OPEN' LIMIT 1 FOR UPDATE`, symbol))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		out = rec

		status, exit := rec.Evaluate(q)
		if !rec.Close(status, exit, p.now().UTC()) {
			return nil
		}

		tag, err := tx.Exec(ctxTx,
			`UPDATE trades SET status = $1, exit_price = $2, closed_at = $3 WHERE id = $4 AND status = 'OPEN'`,
			string(rec.Status), rec.ExitPrice, rec.ClosedAt, rec.ID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 1 {
			out, changed = rec, true
		}
		return nil
	})
	if err != nil {
		return models.TradeRecord{}, false, pkgerrors.Wrapf(errors.Join(ErrUnavailable, err), "resolve %s", symbol)
	}
	return out, changed, nil
}

func (p *Postgres) OpenTrades(ctx context.Context) ([]models.TradeRecord, error) {
	return p.query(ctx, `SELECT `+tradeColumns+` FROM trades WHERE status = 'OPEN' ORDER BY opened_at`)
}

func (p *Postgres) List(ctx context.Context, limit int) ([]models.TradeRecord, error) {
	if limit <= 0 {
		return p.query(ctx, `SELECT `+tradeColumns+` FROM trades ORDER BY opened_at DESC, id DESC`)
	}
	return p.query(ctx, `SELECT `+tradeColumns+` FROM trades ORDER BY opened_at DESC, id DESC LIMIT $1`, limit)
}

func (p *Postgres) query(ctx context.Context, q string, args ...any) ([]models.TradeRecord, error) {
	var out []models.TradeRecord
	err := p.db.RunRepeatableRead(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctxTx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			rec, err := scanTrade(rows)
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, pkgerrors.Wrap(errors.Join(ErrUnavailable, err), "list trades")
	}
	return out, nil
}

// Close is a no-op: the pool belongs to the postgres module.
func (p *Postgres) Close() error { return nil }
