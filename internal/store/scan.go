package store

import (
	"database/sql"

	"signal_bot/internal/models"
)

// rowScanner is satisfied by *sql.Row, *sql.Rows, pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrade(row rowScanner) (models.TradeRecord, error) {
	var (
		rec          models.TradeRecord
		closedAt     sql.NullTime
		side, status string
		leverage     int64
	)
	err := row.Scan(
		&rec.ID, &rec.OpenedAt, &closedAt, &rec.Symbol, &side,
		&rec.Entry, &rec.Target, &rec.Stop,
		&status, &rec.ExitPrice, &leverage, &rec.MarginUSD, &rec.NotionalUSD, &rec.Reason,
	)
	if err != nil {
		return models.TradeRecord{}, err
	}
	rec.Side = models.Side(side)
	rec.Status = models.Status(status)
	rec.Leverage = int(leverage)
	rec.OpenedAt = rec.OpenedAt.UTC()
	if closedAt.Valid {
		rec.ClosedAt = closedAt.Time.UTC()
	}
	return rec, nil
}

func nullTime(rec models.TradeRecord) sql.NullTime {
	if rec.ClosedAt.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: rec.ClosedAt, Valid: true}
}
