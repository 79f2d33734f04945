package health

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/health/service"
	"signal_bot/internal/notify"
	"signal_bot/internal/runner"
	"signal_bot/internal/store"
)

func get(t *testing.T, h http.Handler, method, path string) (int, string) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, path, nil))
	body, err := io.ReadAll(rr.Result().Body)
	require.NoError(t, err)
	return rr.Code, string(body)
}

func TestReadyAfterFirstCycle(t *testing.T) {
	state := service.NewState()
	mux := NewMux(muxParams{State: state, Store: store.NewMemory()})

	code, _ := get(t, mux, http.MethodGet, "/livez")
	assert.Equal(t, http.StatusOK, code)

	code, _ = get(t, mux, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	state.CycleDone(time.Unix(1700000000, 0), 3, 1)

	code, body := get(t, mux, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", body)

	code, body = get(t, mux, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, code)
	var h map[string]any
	require.NoError(t, sonic.UnmarshalString(body, &h))
	assert.Equal(t, true, h["ready"])
	assert.EqualValues(t, 1, h["cycles"])
	assert.EqualValues(t, 1, h["lastFailed"])
	assert.EqualValues(t, 1700000000, h["lastCycleUnix"])
	assert.Nil(t, h["streamConnected"])
}

func TestStreamStatus(t *testing.T) {
	state := service.NewState()
	state.SetStreamCheck(func() bool { return true })
	mux := NewMux(muxParams{State: state, Store: store.NewMemory()})

	_, body := get(t, mux, http.MethodGet, "/healthz")
	var h map[string]any
	require.NoError(t, sonic.UnmarshalString(body, &h))
	assert.Equal(t, true, h["streamConnected"])
}

func TestTradesSummary(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	require.NoError(t, st.Open(ctx, &models.TradeRecord{
		Symbol: "BTC/USDT", Side: models.SideLong, Entry: 100, Target: 103, Stop: 98,
		Leverage: 20, MarginUSD: 2.5, NotionalUSD: 50, Reason: "TREND_PULLBACK_LONG",
	}))
	_, changed, err := st.Resolve(ctx, "BTC/USDT", models.LastQuote(104))
	require.NoError(t, err)
	require.True(t, changed)
	require.NoError(t, st.Open(ctx, &models.TradeRecord{
		Symbol: "ETH/USDT", Side: models.SideShort, Entry: 100, Target: 97, Stop: 102,
		Leverage: 20, MarginUSD: 1.5, NotionalUSD: 30, Reason: "TREND_PULLBACK_SHORT",
	}))

	mux := NewMux(muxParams{State: service.NewState(), Store: st})
	code, body := get(t, mux, http.MethodGet, "/trades")
	require.Equal(t, http.StatusOK, code)

	var resp tradesResponse
	require.NoError(t, sonic.UnmarshalString(body, &resp))
	assert.Equal(t, 2, resp.Summary.Total)
	assert.Equal(t, 1, resp.Summary.Active)
	assert.Equal(t, 1, resp.Summary.Wins)
	assert.InDelta(t, 1.5, resp.Summary.LastMargin, 1e-9)
	require.Len(t, resp.Recent, 2)
	assert.Equal(t, "ETH/USDT", resp.Recent[0].Symbol)
}

func TestCycleTrigger(t *testing.T) {
	state := service.NewState()

	mux := NewMux(muxParams{State: state, Store: store.NewMemory()})
	code, _ := get(t, mux, http.MethodPost, "/cycle")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	cfg := &config.Config{}
	cfg.Engine.Interval = time.Minute
	st := store.NewMemory()
	r := runner.New(runner.Config{}, nil, st, notify.NewStdout(), nil)
	loop := runner.NewLoop(cfg, r, st, notify.NewStdout())

	mux = NewMux(muxParams{State: state, Store: st, Loop: loop})
	code, _ = get(t, mux, http.MethodGet, "/cycle")
	assert.Equal(t, http.StatusMethodNotAllowed, code)

	code, _ = get(t, mux, http.MethodPost, "/cycle")
	assert.Equal(t, http.StatusAccepted, code)
	code, _ = get(t, mux, http.MethodPost, "/cycle")
	assert.Equal(t, http.StatusConflict, code)
}
