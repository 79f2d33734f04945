package exchange

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"signal_bot/internal/helper"
	"signal_bot/internal/models"
)

// ErrUnavailable wraps every transport, status and decode failure.
var ErrUnavailable = errors.New("market data unavailable")

// MarketData is all the engine needs from an exchange.
type MarketData interface {
	// FetchBars returns up to limit bars, oldest first. The last bar is
	// the one still forming.
	FetchBars(ctx context.Context, symbol, timeframe string, limit int) ([]models.Bar, error)
	FetchLastPrice(ctx context.Context, symbol string) (float64, error)
}

const maxKlines = 1500

// Client talks to the Binance USDT-M futures public REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrUnavailable, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, path, err)
	}
	defer resp.Body.Close()

	rb, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrUnavailable, path, err)
	}
	if resp.StatusCode/100 != 2 {
		var ae apiError
		if sonic.Unmarshal(rb, &ae) == nil && ae.Msg != "" {
			return nil, fmt.Errorf("%w: %s: http %d code=%d msg=%s", ErrUnavailable, path, resp.StatusCode, ae.Code, ae.Msg)
		}
		return nil, fmt.Errorf("%w: %s: http %d", ErrUnavailable, path, resp.StatusCode)
	}
	return rb, nil
}

// FetchBars loads klines. Rows are
// [openTime, open, high, low, close, volume, closeTime, ...].
func (c *Client) FetchBars(ctx context.Context, symbol, timeframe string, limit int) ([]models.Bar, error) {
	tf := helper.NormTF(timeframe)
	if _, ok := helper.TFDuration(tf); !ok {
		return nil, fmt.Errorf("%w: unsupported timeframe %q", ErrUnavailable, timeframe)
	}
	if limit <= 0 || limit > maxKlines {
		limit = maxKlines
	}

	q := url.Values{}
	q.Set("symbol", helper.NormSymbol(symbol))
	q.Set("interval", tf)
	q.Set("limit", strconv.Itoa(limit))

	rb, err := c.get(ctx, "/fapi/v1/klines", q)
	if err != nil {
		return nil, err
	}

	var rows [][]any
	if err := sonic.Unmarshal(rb, &rows); err != nil {
		return nil, fmt.Errorf("%w: decode klines: %w", ErrUnavailable, err)
	}

	bars := make([]models.Bar, 0, len(rows))
	for i, row := range rows {
		bar, err := parseKline(row)
		if err != nil {
			return nil, fmt.Errorf("%w: kline %d of %s: %w", ErrUnavailable, i, symbol, err)
		}
		bars = append(bars, bar)
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].OpenTime.Before(bars[j].OpenTime) })
	return bars, nil
}

func parseKline(row []any) (models.Bar, error) {
	if len(row) < 6 {
		return models.Bar{}, fmt.Errorf("short row: %d fields", len(row))
	}
	openMs, ok := row[0].(float64)
	if !ok {
		return models.Bar{}, fmt.Errorf("open time %v", row[0])
	}

	var vals [5]float64
	for k := 0; k < 5; k++ {
		v, err := num(row[k+1])
		if err != nil {
			return models.Bar{}, err
		}
		vals[k] = v
	}

	return models.Bar{
		OpenTime: time.UnixMilli(int64(openMs)).UTC(),
		Open:     vals[0],
		High:     vals[1],
		Low:      vals[2],
		Close:    vals[3],
		Volume:   vals[4],
	}, nil
}

func num(v any) (float64, error) {
	switch t := v.(type) {
	case string:
		return strconv.ParseFloat(t, 64)
	case float64:
		return t, nil
	default:
		return 0, fmt.Errorf("unexpected value %v", v)
	}
}

// FetchLastPrice returns the last traded price.
func (c *Client) FetchLastPrice(ctx context.Context, symbol string) (float64, error) {
	q := url.Values{}
	q.Set("symbol", helper.NormSymbol(symbol))

	rb, err := c.get(ctx, "/fapi/v1/ticker/price", q)
	if err != nil {
		return 0, err
	}

	var t struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := sonic.Unmarshal(rb, &t); err != nil {
		return 0, fmt.Errorf("%w: decode ticker: %w", ErrUnavailable, err)
	}
	px, err := strconv.ParseFloat(t.Price, 64)
	if err != nil || px <= 0 {
		return 0, fmt.Errorf("%w: bad price %q for %s", ErrUnavailable, t.Price, symbol)
	}
	return px, nil
}
