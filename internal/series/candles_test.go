package series

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meterfi/dex-stats-api/internal/chains"
	"github.com/meterfi/dex-stats-api/internal/subgraph"
)

// pricesServer answers priceCandles queries with rows derived from the
// requested token, newest first, so reversal is observable.
func pricesServer(t *testing.T, rows int, fail bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		var req struct {
			Query string `json:"query"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Contains(t, req.Query, "orderDirection: desc")

		candles := make([]string, 0, rows)
		for i := rows; i >= 1; i-- {
			candles = append(candles, fmt.Sprintf(
				`{"timestamp":%d,"open":"%d","high":"%d","low":"%d","close":"%d"}`,
				int64(i)*300, i, i+1, i-1, i))
		}
		fmt.Fprintf(w, `{"data":{"priceCandles":[%s]}}`, strings.Join(candles, ","))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testStore(t *testing.T, meterRows, avaxRows int, meterFail bool) *CandleStore {
	t.Helper()
	meter := pricesServer(t, meterRows, meterFail)
	avax := pricesServer(t, avaxRows, false)

	set := subgraph.NewSet(chains.NewRegistry(chains.Endpoints{
		Prices: map[chains.ChainID]string{
			chains.Metertest: meter.URL,
			chains.Avalanche: avax.URL,
		},
	}), 5*time.Second, 0)
	return NewCandleStore(set, []chains.ChainID{chains.Metertest, chains.Avalanche}, 5000)
}

func TestRefreshStoresChronologicalSeries(t *testing.T) {
	store := testStore(t, 3, 3, false)
	defer store.Stop()

	store.Refresh(context.Background())

	candles := store.PricesLimit(100, chains.Metertest, "MTR", "1h")
	require.Len(t, candles, 3)
	assert.Equal(t, int64(300), candles[0].Time)
	assert.Equal(t, int64(600), candles[1].Time)
	assert.Equal(t, int64(900), candles[2].Time)
	assert.Equal(t, "1", candles[0].Open)
	assert.Equal(t, "2", candles[0].High)
	assert.Equal(t, "0", candles[0].Low)
	assert.Equal(t, "1", candles[0].Close)
}

func TestRefreshAdvancesLastUpdated(t *testing.T) {
	store := testStore(t, 1, 1, false)
	defer store.Stop()

	assert.Zero(t, store.LastUpdated())
	store.Refresh(context.Background())
	assert.Greater(t, store.LastUpdated(), int64(0))
}

func TestRefreshPartialFailureKeepsGoing(t *testing.T) {
	store := testStore(t, 0, 2, true)
	defer store.Stop()

	store.Refresh(context.Background())

	// Meter fetches failed but the Avalanche series still landed.
	assert.Empty(t, store.PricesLimit(100, chains.Metertest, "MTR", "1h"))
	assert.Len(t, store.PricesLimit(100, chains.Avalanche, "AVAX", "1h"), 2)
	assert.Greater(t, store.LastUpdated(), int64(0))
}

func TestPricesLimitTailsTheSeries(t *testing.T) {
	store := testStore(t, 5, 5, false)
	defer store.Stop()
	store.Refresh(context.Background())

	candles := store.PricesLimit(2, chains.Metertest, "MTR", "5m")
	require.Len(t, candles, 2)
	// The newest two candles survive the cut.
	assert.Equal(t, int64(1200), candles[0].Time)
	assert.Equal(t, int64(1500), candles[1].Time)
}

func TestPricesLimitFallsBackAcrossSources(t *testing.T) {
	store := testStore(t, 2, 2, false)
	defer store.Stop()
	store.Refresh(context.Background())

	// AVAX is only indexed on Avalanche; preferring Meter must still find it.
	candles := store.PricesLimit(100, chains.Metertest, "AVAX", "1d")
	assert.Len(t, candles, 2)

	// Unknown symbol everywhere comes back empty, not nil-panicking.
	assert.Empty(t, store.PricesLimit(100, chains.Metertest, "DOGE", "1d"))
}

func TestPricesLimitBeforeFirstRefresh(t *testing.T) {
	store := testStore(t, 2, 2, false)
	defer store.Stop()

	assert.Empty(t, store.PricesLimit(100, chains.Metertest, "MTR", "1h"))
	assert.Zero(t, store.LastUpdated())
}
