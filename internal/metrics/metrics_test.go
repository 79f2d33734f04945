package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesCounters(t *testing.T) {
	SignalsTotal.WithLabelValues("BTC/USDT", "LONG").Inc()
	assert.GreaterOrEqual(t, testutil.ToFloat64(SignalsTotal.WithLabelValues("BTC/USDT", "LONG")), 1.0)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "signal_signals_total")
	assert.Contains(t, string(body), "signal_cycles_total")
}
