package metrics

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordQuote(t *testing.T) {
	c := New(DefaultConfig())
	c.RecordQuote("BTCUSDT", 100.5, 12, 35, 0.2)
	c.RecordQuote("BTCUSDT", 100.7, 14, 30, 0.25)

	if got := testutil.ToFloat64(c.reservationPrice.WithLabelValues("BTCUSDT")); got != 100.7 {
		t.Errorf("Expected reservation price 100.7, got %f", got)
	}
	assert.Equal(t, 14.0, testutil.ToFloat64(c.spreadBps.WithLabelValues("BTCUSDT")))
	assert.Equal(t, 30.0, testutil.ToFloat64(c.riskScore.WithLabelValues("BTCUSDT")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.quotesGenerated.WithLabelValues("BTCUSDT")))
}

func TestRecordMarketAndCounters(t *testing.T) {
	c := New(DefaultConfig())
	c.RecordMarket("ETHUSDT", 2500.1, -0.4, 55, 0.3, 12)
	c.RecordSuppressed("ETHUSDT", "crossed")
	c.RecordSuppressed("ETHUSDT", "crossed")
	c.RecordHedge("ETHUSDT", "HEDGE")
	c.RecordStale("ETHUSDT", "stale")
	c.RecordError("ETHUSDT")
	c.ObserveTickLatency(300 * time.Microsecond)

	assert.Equal(t, -0.4, testutil.ToFloat64(c.imbalance.WithLabelValues("ETHUSDT")))
	assert.Equal(t, 55.0, testutil.ToFloat64(c.adverseScore.WithLabelValues("ETHUSDT")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.quotesSuppressed.WithLabelValues("ETHUSDT", "crossed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.hedgeRecommendations.WithLabelValues("ETHUSDT", "HEDGE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.staleSnapshots.WithLabelValues("ETHUSDT", "stale")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tickErrors.WithLabelValues("ETHUSDT")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.tickLatency))
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := New(DefaultConfig())
	c.RecordQuote("BTCUSDT", 1, 2, 3, 0.1)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `qe_engine_quotes_generated_total{symbol="BTCUSDT"} 1`), body)
}

func TestCollectorsAreIsolated(t *testing.T) {
	a, b := New(DefaultConfig()), New(DefaultConfig())
	a.RecordError("X")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.tickErrors.WithLabelValues("X")))
}

func TestStartMetricsServerReportsBindError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, errs := StartMetricsServer(ctx, ln.Addr().String(), New(DefaultConfig()).Handler())

	select {
	case err := <-errs:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("expected bind error for an occupied port")
	}
}

func TestStartMetricsServerShutdownIsSilent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	_, errs := StartMetricsServer(ctx, "127.0.0.1:0", New(DefaultConfig()).Handler())
	cancel()

	select {
	case err := <-errs:
		t.Fatalf("unexpected error after shutdown: %v", err)
	case <-time.After(200 * time.Millisecond):
	}
}
