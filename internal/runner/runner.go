package runner

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"

	"signal_bot/internal/audit"
	"signal_bot/internal/exchange"
	"signal_bot/internal/metrics"
	"signal_bot/internal/models"
	"signal_bot/internal/notify"
	"signal_bot/internal/risk"
	"signal_bot/internal/store"
	"signal_bot/internal/strategy"
	"signal_bot/pkg/logger"
)

// Config is fixed for the runner's lifetime.
type Config struct {
	Symbols   []string
	Timeframe string
	BarCount  int
	Strategy  strategy.Params
	Risk      risk.Params
}

// Observer is told about every finished cycle (health state).
type Observer interface {
	CycleDone(at time.Time, symbols, failed int)
}

// Report of one cycle.
type Report struct {
	Started  time.Time
	Duration time.Duration
	Symbols  int
	Failed   int
	Opened   []models.TradeRecord
	Closed   []models.TradeRecord
}

type Runner struct {
	cfg Config

	market   exchange.MarketData
	store    store.Store
	notifier notify.Notifier
	audit    audit.Sink
	observer Observer

	evaluate func(symbol string, bars []models.Bar, p strategy.Params) (strategy.Evaluation, error)
	now      func() time.Time
}

func New(cfg Config, md exchange.MarketData, st store.Store, n notify.Notifier, a audit.Sink) *Runner {
	if a == nil {
		a = audit.Nop{}
	}
	return &Runner{
		cfg:      cfg,
		market:   md,
		store:    st,
		notifier: n,
		audit:    a,
		evaluate: strategy.Evaluate,
		now:      time.Now,
	}
}

func (r *Runner) SetObserver(o Observer) { r.observer = o }

func (r *Runner) Symbols() []string { return r.cfg.Symbols }

// errKind labels per-symbol failures for logs and metrics.
type errKind string

const (
	kindMarket errKind = "market"
	kindData   errKind = "data"
	kindStore  errKind = "store"
	kindPanic  errKind = "panic"
)

type symbolError struct {
	kind errKind
	err  error
}

func (e *symbolError) Error() string { return fmt.Sprintf("%s: %v", e.kind, e.err) }
func (e *symbolError) Unwrap() error { return e.err }

func fail(kind errKind, err error) error { return &symbolError{kind: kind, err: err} }

type symbolResult struct {
	opened *models.TradeRecord
	closed *models.TradeRecord
}

// RunCycle walks the symbols one by one. A failing symbol is logged and
// skipped; the rest of the cycle goes on. Cycles may overlap: the store's
// atomic open keeps one OPEN record per symbol.
func (r *Runner) RunCycle(ctx context.Context) Report {
	span, ctx := opentracing.StartSpanFromContext(ctx, "runner.cycle")
	defer span.Finish()

	rep := Report{Started: r.now(), Symbols: len(r.cfg.Symbols)}
	logger.Info("[CYCLE] start, %d symbols", len(r.cfg.Symbols))

	for _, symbol := range r.cfg.Symbols {
		if ctx.Err() != nil {
			break
		}
		res, err := r.processSymbol(ctx, symbol)
		if res.closed != nil {
			rep.Closed = append(rep.Closed, *res.closed)
		}
		if res.opened != nil {
			rep.Opened = append(rep.Opened, *res.opened)
		}
		if err != nil {
			rep.Failed++
			r.reportFailure(symbol, err)
		}
	}

	rep.Duration = r.now().Sub(rep.Started)
	metrics.CyclesTotal.Inc()
	metrics.CycleSeconds.Observe(rep.Duration.Seconds())
	span.SetTag("symbols", rep.Symbols)
	span.SetTag("failed", rep.Failed)
	if r.observer != nil {
		r.observer.CycleDone(rep.Started, rep.Symbols, rep.Failed)
	}

	logger.Info("[CYCLE] done in %s: opened=%d closed=%d failed=%d",
		rep.Duration.Round(time.Millisecond), len(rep.Opened), len(rep.Closed), rep.Failed)
	return rep
}

func (r *Runner) reportFailure(symbol string, err error) {
	kind := kindData
	var se *symbolError
	if errors.As(err, &se) {
		kind = se.kind
	}
	metrics.InstrumentErrorsTotal.WithLabelValues(symbol, string(kind)).Inc()

	switch kind {
	case kindStore, kindPanic:
		logger.Error("[%s] %v", symbol, err)
	default:
		logger.Warn("[%s] skipped: %v", symbol, err)
	}
}

func (r *Runner) processSymbol(ctx context.Context, symbol string) (res symbolResult, err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "runner.symbol")
	span.SetTag("symbol", symbol)
	defer func() {
		if p := recover(); p != nil {
			logger.Error("[%s] panic: %v\n%s", symbol, p, debug.Stack())
			err = fail(kindPanic, fmt.Errorf("%v", p))
		}
		if err != nil {
			ext.Error.Set(span, true)
			span.SetTag("error.message", err.Error())
		}
		span.Finish()
	}()

	// 1) market data
	bars, err := r.market.FetchBars(ctx, symbol, r.cfg.Timeframe, r.cfg.BarCount)
	if err != nil {
		return res, fail(kindMarket, err)
	}
	last, err := r.market.FetchLastPrice(ctx, symbol)
	if err != nil {
		return res, fail(kindMarket, err)
	}

	// 2) resolve the open trade before anything new is considered
	closed, err := r.resolve(ctx, symbol, bars, last)
	if err != nil {
		return res, err
	}
	res.closed = closed

	has, err := r.store.HasOpenPosition(ctx, symbol)
	if err != nil {
		return res, fail(kindStore, err)
	}
	if has {
		logger.Debug("[%s] position open, no new signal", symbol)
		return res, nil
	}

	// 3) decide
	ev, err := r.evaluate(symbol, bars, r.cfg.Strategy)
	if err != nil {
		return res, fail(kindData, err)
	}
	span.SetTag("state", string(ev.State))
	logger.Info("[%s] %s", symbol, ev.Dump())
	if !ev.Ok {
		return res, nil
	}

	// 4) size
	sig := ev.Signal
	size := risk.Size(sig.Entry, sig.Stop, r.cfg.Risk)
	if size.Degenerate() {
		logger.Info("[%s] %s signal with zero stop distance, not opened", symbol, sig.Side)
		return res, nil
	}

	// 5) open
	rec := &models.TradeRecord{
		Symbol:      symbol,
		Side:        sig.Side,
		Entry:       sig.Entry,
		Target:      sig.Target,
		Stop:        sig.Stop,
		Leverage:    size.Leverage,
		MarginUSD:   size.MarginUSD,
		NotionalUSD: size.NotionalUSD,
		Reason:      sig.Reason,
	}
	if err := r.store.Open(ctx, rec); err != nil {
		if errors.Is(err, store.ErrDuplicatePosition) {
			logger.Info("[%s] already has an open trade, signal dropped", symbol)
			return res, nil
		}
		return res, fail(kindStore, err)
	}

	logger.Info("[%s] OPEN %s entry=%.6f sl=%.6f tp=%.6f 1R=%.6f rr=%.2f %s", symbol, rec.Side,
		rec.Entry, rec.Stop, rec.Target, sig.Risk(), risk.RR(sig.Entry, sig.Stop, sig.Target), size)
	metrics.SignalsTotal.WithLabelValues(symbol, string(rec.Side)).Inc()
	r.notifier.Send(ctx, notify.SignalMessage(*rec, string(ev.State)))
	r.audit.AppendRow(ctx, *rec)

	res.opened = rec
	return res, nil
}

// resolve moves the symbol's OPEN trade to TP or SL if price got there.
// Extremes come from bars opened after the trade plus the last price.
func (r *Runner) resolve(ctx context.Context, symbol string, bars []models.Bar, last float64) (*models.TradeRecord, error) {
	open, ok, err := r.store.OpenPosition(ctx, symbol)
	if err != nil {
		return nil, fail(kindStore, err)
	}
	if !ok {
		return nil, nil
	}

	rec, changed, err := r.store.Resolve(ctx, symbol, QuoteSince(bars, open.OpenedAt, last))
	if err != nil {
		return nil, fail(kindStore, err)
	}
	if !changed {
		return nil, nil
	}

	logger.Info("[%s] %s hit, exit=%.6f (%.2fR)", symbol, rec.Status, rec.ExitPrice, rec.RMultiple())
	metrics.TradesClosedTotal.WithLabelValues(symbol, string(rec.Status)).Inc()
	r.notifier.Send(ctx, notify.CloseMessage(rec))
	r.audit.AppendRow(ctx, rec)
	return &rec, nil
}

// QuoteSince builds a quote from the last price and the high/low of every
// bar that opened at or after since.
func QuoteSince(bars []models.Bar, since time.Time, last float64) models.Quote {
	q := models.LastQuote(last)
	for _, b := range bars {
		if b.OpenTime.Before(since) {
			continue
		}
		if b.High > q.High {
			q.High = b.High
		}
		if b.Low > 0 && b.Low < q.Low {
			q.Low = b.Low
		}
	}
	return q
}
