package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/fx"

	"signal_bot/internal/exchange"
	"signal_bot/internal/metrics"
	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/health/service"
	"signal_bot/internal/runner"
	"signal_bot/internal/store"
	"signal_bot/pkg/logger"
)

const recentTrades = 20

type Config struct {
	Addr string // e.g. ":8080"
}

func NewConfig(cfg *config.Config) Config {
	return Config{Addr: net.JoinHostPort(cfg.Service.Host, strconv.Itoa(cfg.Service.AdminPort))}
}

type muxParams struct {
	fx.In

	State *service.State
	Store store.Store
	Loop  *runner.Loop `optional:"true"`
}

type tradesResponse struct {
	Summary store.Summary        `json:"summary"`
	Recent  []models.TradeRecord `json:"recent"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}

func NewMux(p muxParams) *http.ServeMux {
	state := p.State
	mux := http.NewServeMux()

	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// ready once the first cycle has finished
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if !state.Ready() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"ready":           state.Ready(),
			"uptimeSec":       int64(state.Uptime().Seconds()),
			"cycles":          state.Cycles(),
			"lastSymbols":     state.LastSymbols(),
			"lastFailed":      state.LastFailed(),
			"streamConnected": state.StreamConnected(),
			"lastCycleUnix": func() int64 {
				t := state.LastCycle()
				if t.IsZero() {
					return 0
				}
				return t.Unix()
			}(),
		}
		writeJSON(w, http.StatusOK, resp)
	})

	mux.Handle("/metrics", metrics.Handler())

	mux.HandleFunc("/trades", func(w http.ResponseWriter, r *http.Request) {
		all, err := p.Store.List(r.Context(), 0)
		if err != nil {
			logger.Error("[HEALTH] list trades: %v", err)
			http.Error(w, "trade store unavailable", http.StatusServiceUnavailable)
			return
		}
		resp := tradesResponse{Summary: store.Summarize(all), Recent: all}
		if len(resp.Recent) > recentTrades {
			resp.Recent = resp.Recent[:recentTrades]
		}
		writeJSON(w, http.StatusOK, resp)
	})

	mux.HandleFunc("/cycle", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if p.Loop == nil {
			http.Error(w, "scheduler not running", http.StatusServiceUnavailable)
			return
		}
		if !p.Loop.Trigger() {
			writeJSON(w, http.StatusConflict, map[string]any{"queued": false})
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"queued": true})
	})

	return mux
}

func RunHTTP(lc fx.Lifecycle, cfg Config, mux *http.ServeMux) {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return fmt.Errorf("admin listen %s: %w", cfg.Addr, err)
			}
			logger.Info("[HEALTH] admin http on %s", ln.Addr())
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("[HEALTH] serve: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

// observe feeds cycle results and stream status into the health state.
func observe(state *service.State, r *runner.Runner, md exchange.MarketData) {
	r.SetObserver(state)
	if ps, ok := md.(*exchange.PriceStream); ok {
		state.SetStreamCheck(ps.Connected)
	}
}

func Module() fx.Option {
	return fx.Module("health",
		fx.Provide(
			service.NewState,
			NewConfig,
			NewMux,
		),
		fx.Invoke(observe, RunHTTP),
	)
}
