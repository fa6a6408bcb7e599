package series

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/meterfi/dex-stats-api/internal/chains"
	"github.com/meterfi/dex-stats-api/internal/model"
	"github.com/meterfi/dex-stats-api/internal/subgraph"
	"github.com/meterfi/dex-stats-api/internal/validation"
)

// candleTokens maps candle symbols to the token address each prices subgraph
// indexes them under.
var candleTokens = map[chains.ChainID]map[string]string{
	chains.Metertest: {
		"MTR":  "0xfac315d105e5a7fe2174b3eb1f95c257a9a5e271",
		"MTRG": "0x8a419ef4941355476cf04933e90bf3bbf2f73814",
	},
	chains.Avalanche: {
		"AVAX": "0xb31f66aa3c1e785363f0875a1b74e27b85fd66c7",
		"BNB":  "0x264c1383ea520f73dd837f915ef3a732e204a493",
		"UNI":  "0x8ebaf22b6f053dffeaf46f4dd9efa95d89ba8580",
		"LINK": "0x5947bb275c521040051d82396192181b413227a3",
	},
}

type candleKey struct {
	chain  chains.ChainID
	symbol string
	period string
}

// CandleStore keeps per-(chain, symbol, period) price series refreshed from
// the prices subgraphs in the background. Reads never trigger a fetch;
// candles change at most once per period, so a scheduled refresh is enough.
type CandleStore struct {
	graphs     *subgraph.Set
	sources    []chains.ChainID
	queryLimit int

	series      *xsync.Map[candleKey, []model.Candle]
	lastUpdated atomic.Int64

	pool pond.Pool
	cron *cron.Cron
}

// NewCandleStore creates a store refreshing the given source chains.
// queryLimit bounds each subgraph fetch.
func NewCandleStore(graphs *subgraph.Set, sources []chains.ChainID, queryLimit int) *CandleStore {
	return &CandleStore{
		graphs:     graphs,
		sources:    sources,
		queryLimit: queryLimit,
		series:     xsync.NewMap[candleKey, []model.Candle](),
		pool:       pond.NewPool(8),
	}
}

// Start schedules background refreshes and runs the first one immediately.
func (s *CandleStore) Start(ctx context.Context, spec string) error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(spec, func() {
		s.Refresh(ctx)
	}); err != nil {
		return err
	}
	s.cron.Start()
	go s.Refresh(ctx)
	return nil
}

// Stop halts the refresh schedule and waits for in-flight fetches.
func (s *CandleStore) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	s.pool.StopAndWait()
}

// Refresh re-fetches every tracked series through a bounded worker group.
// Failed series keep their previous data; the update timestamp advances only
// when at least one series was refreshed.
func (s *CandleStore) Refresh(ctx context.Context) {
	group := s.pool.NewGroup()
	var refreshed atomic.Int64

	for _, chain := range s.sources {
		symbols, ok := candleTokens[chain]
		if !ok {
			continue
		}
		for symbol, token := range symbols {
			for period := range validation.ValidPeriods {
				key := candleKey{chain: chain, symbol: symbol, period: period}
				group.SubmitErr(func() error {
					if err := s.refreshSeries(ctx, key, token); err != nil {
						logrus.WithFields(logrus.Fields{
							"chain":  key.chain,
							"symbol": key.symbol,
							"period": key.period,
						}).Warnf("candle refresh failed: %v", err)
						return nil
					}
					refreshed.Add(1)
					return nil
				})
			}
		}
	}
	_ = group.Wait()

	if refreshed.Load() > 0 {
		s.lastUpdated.Store(time.Now().Unix())
	}
}

type candleRow struct {
	Timestamp int64  `json:"timestamp"`
	Open      string `json:"open"`
	High      string `json:"high"`
	Low       string `json:"low"`
	Close     string `json:"close"`
}

func (s *CandleStore) refreshSeries(ctx context.Context, key candleKey, token string) error {
	client, err := s.graphs.Prices(key.chain)
	if err != nil {
		return err
	}

	document := fmt.Sprintf(`{
		priceCandles(
			first: %d
			orderBy: timestamp
			orderDirection: desc
			where: { period: "%s", token: "%s" }
		) { timestamp open high low close }
	}`, s.queryLimit, key.period, token)

	var data struct {
		PriceCandles []candleRow `json:"priceCandles"`
	}
	if err := client.Query(ctx, document, &data); err != nil {
		return err
	}

	// Rows arrive newest first; candles are served chronologically.
	candles := make([]model.Candle, len(data.PriceCandles))
	for i, row := range data.PriceCandles {
		candles[len(data.PriceCandles)-1-i] = model.Candle{
			Time:  row.Timestamp,
			Open:  row.Open,
			High:  row.High,
			Low:   row.Low,
			Close: row.Close,
		}
	}
	s.series.Store(key, candles)
	return nil
}

// PricesLimit returns up to limit candles for the symbol and period,
// chronological, taken from the preferable chain's series when it indexes the
// symbol and from the other supported sources otherwise. The preference is
// advisory; validation of the source itself happens at the API boundary.
func (s *CandleStore) PricesLimit(limit int, preferable chains.ChainID, symbol, period string) []model.Candle {
	order := make([]chains.ChainID, 0, len(s.sources)+1)
	order = append(order, preferable)
	for _, chain := range s.sources {
		if chain != preferable {
			order = append(order, chain)
		}
	}

	for _, chain := range order {
		candles, ok := s.series.Load(candleKey{chain: chain, symbol: symbol, period: period})
		if !ok || len(candles) == 0 {
			continue
		}
		if len(candles) > limit {
			candles = candles[len(candles)-limit:]
		}
		return candles
	}
	return []model.Candle{}
}

// LastUpdated returns the unix time of the last successful refresh, or 0 if
// none has completed.
func (s *CandleStore) LastUpdated() int64 {
	return s.lastUpdated.Load()
}
