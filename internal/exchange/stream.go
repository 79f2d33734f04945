package exchange

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"signal_bot/internal/helper"
	"signal_bot/internal/models"
	"signal_bot/pkg/logger"
)

const (
	streamReadTimeout = 2 * time.Minute
	maxBackoff        = 30 * time.Second
)

type cachedPrice struct {
	px float64
	at time.Time
}

// PriceStream keeps the latest mark price per symbol from the combined
// <sym>@markPrice@1s websocket stream. Bars always come from rest; prices
// come from the cache while fresh, from rest otherwise.
type PriceStream struct {
	rest    MarketData
	wsURL   string
	symbols []string
	maxAge  time.Duration

	dialer    *websocket.Dialer
	connected atomic.Bool

	mu     sync.RWMutex
	prices map[string]cachedPrice

	now func() time.Time
}

func NewPriceStream(rest MarketData, wsURL string, symbols []string, maxAge time.Duration) *PriceStream {
	if maxAge <= 0 {
		maxAge = 10 * time.Second
	}
	return &PriceStream{
		rest:    rest,
		wsURL:   strings.TrimRight(wsURL, "/"),
		symbols: symbols,
		maxAge:  maxAge,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		prices:  make(map[string]cachedPrice),
		now:     time.Now,
	}
}

func (s *PriceStream) FetchBars(ctx context.Context, symbol, timeframe string, limit int) ([]models.Bar, error) {
	return s.rest.FetchBars(ctx, symbol, timeframe, limit)
}

func (s *PriceStream) FetchLastPrice(ctx context.Context, symbol string) (float64, error) {
	if px, ok := s.Cached(symbol); ok {
		return px, nil
	}
	return s.rest.FetchLastPrice(ctx, symbol)
}

// Cached returns the streamed price if it is fresh enough.
func (s *PriceStream) Cached(symbol string) (float64, bool) {
	s.mu.RLock()
	c, ok := s.prices[helper.NormSymbol(symbol)]
	s.mu.RUnlock()
	if !ok || s.now().Sub(c.at) > s.maxAge {
		return 0, false
	}
	return c.px, true
}

func (s *PriceStream) Connected() bool { return s.connected.Load() }

func (s *PriceStream) set(symbol string, px float64) {
	s.mu.Lock()
	s.prices[symbol] = cachedPrice{px: px, at: s.now()}
	s.mu.Unlock()
}

func (s *PriceStream) streamURL() string {
	streams := make([]string, 0, len(s.symbols))
	for _, sym := range s.symbols {
		streams = append(streams, strings.ToLower(helper.NormSymbol(sym))+"@markPrice@1s")
	}
	return s.wsURL + "/stream?streams=" + strings.Join(streams, "/")
}

// Run keeps the stream connected until ctx is done.
func (s *PriceStream) Run(ctx context.Context) {
	if len(s.symbols) == 0 {
		return
	}
	u := s.streamURL()
	retry := 0
	for {
		if ctx.Err() != nil {
			return
		}

		logger.Info("[WS] connect mark price, %d symbols", len(s.symbols))
		conn, _, err := s.dialer.DialContext(ctx, u, nil)
		if err != nil {
			retry++
			logger.Warn("[WS] dial error: %v", err)
			if !sleepCtx(ctx, backoff(retry)) {
				return
			}
			continue
		}
		retry = 0
		s.connected.Store(true)

		err = s.read(ctx, conn)
		s.connected.Store(false)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		logger.Warn("[WS] read error: %v", err)
		retry++
		if !sleepCtx(ctx, backoff(retry)) {
			return
		}
	}
}

type markPriceFrame struct {
	Stream string `json:"stream"`
	Data   struct {
		Event  string `json:"e"`
		Symbol string `json:"s"`
		Price  string `json:"p"`
	} `json:"data"`
}

func (s *PriceStream) read(ctx context.Context, conn *websocket.Conn) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var frame markPriceFrame
		if err := sonic.Unmarshal(msg, &frame); err != nil {
			continue
		}
		if frame.Data.Event != "markPriceUpdate" || frame.Data.Symbol == "" {
			continue
		}
		px, err := strconv.ParseFloat(frame.Data.Price, 64)
		if err != nil || px <= 0 {
			continue
		}
		s.set(strings.ToUpper(frame.Data.Symbol), px)
	}
}

func backoff(retry int) time.Duration {
	d := time.Duration(300*retry) * time.Millisecond
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
