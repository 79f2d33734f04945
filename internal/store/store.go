// Package store owns every TradeRecord. It is the only place where a record
// is appended or its status changes.
package store

import (
	"context"
	"errors"
	"time"

	"signal_bot/internal/models"
	"signal_bot/pkg/id"
)

var (
	// ErrDuplicatePosition: an OPEN record already exists for the symbol.
	ErrDuplicatePosition = errors.New("open position already exists")
	// ErrUnavailable: the trade log cannot be read or written.
	ErrUnavailable = errors.New("trade store unavailable")
	// ErrInvalidRecord: the record cannot be opened as given.
	ErrInvalidRecord = errors.New("invalid trade record")
)

// Store is the persistent trade log.
type Store interface {
	// HasOpenPosition is true iff a non-terminal record exists for symbol.
	HasOpenPosition(ctx context.Context, symbol string) (bool, error)
	// OpenPosition returns the OPEN record for symbol, if any.
	OpenPosition(ctx context.Context, symbol string) (models.TradeRecord, bool, error)
	// Open appends rec as OPEN. The open-position check and the append are one
	// atomic step; a concurrent second open for the same symbol gets
	// ErrDuplicatePosition.
	Open(ctx context.Context, rec *models.TradeRecord) error
	// Resolve moves the symbol's OPEN record to TP or SL if the quote crossed
	// target or stop. changed is false when nothing transitioned, including
	// when there is no OPEN record.
	Resolve(ctx context.Context, symbol string, q models.Quote) (rec models.TradeRecord, changed bool, err error)
	// OpenTrades lists all OPEN records.
	OpenTrades(ctx context.Context) ([]models.TradeRecord, error)
	// List returns the newest records first; limit <= 0 means all.
	List(ctx context.Context, limit int) ([]models.TradeRecord, error)
	Close() error
}

func validate(rec *models.TradeRecord) error {
	if rec == nil || rec.Symbol == "" {
		return ErrInvalidRecord
	}
	if rec.Side != models.SideLong && rec.Side != models.SideShort {
		return ErrInvalidRecord
	}
	if rec.Entry <= 0 || rec.Stop <= 0 || rec.Target <= 0 {
		return ErrInvalidRecord
	}
	return nil
}

// prepare fills the creation fields of a record about to be opened.
func prepare(rec *models.TradeRecord, now func() time.Time) {
	if rec.ID == "" {
		rec.ID = id.New()
	}
	if rec.OpenedAt.IsZero() {
		rec.OpenedAt = now().UTC()
	}
	rec.Status = models.StatusOpen
	rec.ClosedAt = time.Time{}
	rec.ExitPrice = 0
}
