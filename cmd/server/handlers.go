package main

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/meterfi/dex-stats-api/internal/apierr"
	"github.com/meterfi/dex-stats-api/internal/chains"
	"github.com/meterfi/dex-stats-api/internal/contract"
	"github.com/meterfi/dex-stats-api/internal/model"
	"github.com/meterfi/dex-stats-api/internal/otel"
	"github.com/meterfi/dex-stats-api/internal/tokens"
	"github.com/meterfi/dex-stats-api/internal/validation"
)

// priceFeedScale lifts the Witnet feed reading to the 18-decimal USD scale
// the dashboard expects (feed is 6 decimals short of 18, twice over).
var priceFeedScale = big.NewInt(1_000_000_000_000)

// apiHandler is a route handler that reports failures instead of writing
// them; the wrapper resolves every error to HTTP exactly once.
type apiHandler func(w http.ResponseWriter, r *http.Request) error

// api adapts an apiHandler into the uniform error contract: the status comes
// from the structured error kind (500 for anything else), production mode
// emits only client-error messages, development mode the full detail.
func (s *Server) api(route string, h apiHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}
		logrus.WithField("route", route).Warnf("request failed: %v", err)
		otel.RecordError(r.Context(), err)
		if s.metrics != nil {
			s.metrics.requestErrors.WithLabelValues(route).Inc()
		}

		status := apierr.StatusOf(err)
		body := ""
		if s.config.IsProduction() {
			var ae *apierr.Error
			if status == http.StatusBadRequest && errors.As(err, &ae) {
				body = ae.Message
			}
		} else {
			body = err.Error()
		}

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

// sendPlain serializes v as JSON under text/plain, matching the historical
// behavior the dashboard depends on.
func sendPlain(w http.ResponseWriter, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/plain")
	_, err = w.Write(body)
	return err
}

func sendText(w http.ResponseWriter, body string) error {
	w.Header().Set("Content-Type", "text/plain")
	_, err := w.Write([]byte(body))
	return err
}

func (s *Server) handleSupply(w http.ResponseWriter, r *http.Request) error {
	supply, err := s.reader.TotalSupply(r.Context(), chains.Metertest, "GMX")
	if err != nil {
		return err
	}
	return sendText(w, contract.FormatUnits(supply, 18))
}

func (s *Server) handleUIVersion(w http.ResponseWriter, r *http.Request) error {
	return sendText(w, "1.0")
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) error {
	entries, err := s.snapshots.TokenEntries(r.Context(), chains.Metertest)
	if err != nil {
		return err
	}
	return sendPlain(w, entries)
}

func (s *Server) handleFeesSummary(w http.ResponseWriter, r *http.Request) error {
	summary, err := s.snapshots.FeesSummary(r.Context(), chains.Metertest)
	if err != nil {
		return err
	}
	return sendPlain(w, summary)
}

func (s *Server) handleHourlyVolume(w http.ResponseWriter, r *http.Request) error {
	volumes, err := s.volumes.HourlyVolumes(r.Context())
	if err != nil {
		return err
	}
	return sendPlain(w, volumes)
}

func (s *Server) handleDailyVolume(w http.ResponseWriter, r *http.Request) error {
	volumes, err := s.volumes.DailyVolumes(r.Context())
	if err != nil {
		return err
	}
	return sendPlain(w, volumes)
}

func (s *Server) handleTotalVolume(w http.ResponseWriter, r *http.Request) error {
	volumes, err := s.volumes.TotalVolumes(r.Context())
	if err != nil {
		return err
	}
	return sendPlain(w, volumes)
}

func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) error {
	account, err := validation.NormalizeAccount(r.URL.Query().Get("account"))
	if err != nil {
		return err
	}
	actions, err := s.volumes.Actions(r.Context(), account)
	if err != nil {
		return err
	}
	return sendPlain(w, actions)
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	mtr, err := tokens.BySymbol(chains.Metertest, "MTR")
	if err != nil {
		return err
	}
	mtrg, err := tokens.BySymbol(chains.Metertest, "MTRG")
	if err != nil {
		return err
	}

	mtrPrice, err := s.reader.LastPrice(ctx, chains.Metertest, "IWitnetFeed_MTR")
	if err != nil {
		return err
	}
	mtrgPrice, err := s.reader.LastPrice(ctx, chains.Metertest, "IWitnetFeed_MTRG")
	if err != nil {
		return err
	}

	payload := map[string]string{
		mtr.Address:  new(big.Int).Mul(mtrPrice, priceFeedScale).String(),
		mtrg.Address: new(big.Int).Mul(mtrgPrice, priceFeedScale).String(),
	}
	return sendPlain(w, payload)
}

func (s *Server) handleCandles(w http.ResponseWriter, r *http.Request) error {
	period := strings.ToLower(r.URL.Query().Get("period"))
	if err := validation.CheckPeriod(period); err != nil {
		return err
	}

	symbol := mux.Vars(r)["symbol"]
	if err := validation.CheckCandleSymbol(symbol); err != nil {
		return err
	}

	source, err := validation.CheckCandleSource(r.URL.Query().Get("preferableChainId"))
	if err != nil {
		return err
	}

	prices := s.candles.PricesLimit(s.config.CandleQueryLimit, source, symbol, period)

	w.Header().Set("Cache-Control", "max-age=60")
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(model.CandleResponse{
		Prices:    prices,
		Period:    period,
		UpdatedAt: s.candles.LastUpdated(),
	})
}

func (s *Server) handlePositionStats(w http.ResponseWriter, r *http.Request) error {
	return sendPlain(w, model.PositionStats{
		TotalShortPositionCollaterals: "0",
		TotalLongPositionCollaterals:  "0",
		TotalActivePositions:          5709,
		TotalShortPositionSizes:       "0",
		TotalLongPositionSizes:        "0",
	})
}

func (s *Server) handleOrdersIndices(w http.ResponseWriter, r *http.Request) error {
	return sendPlain(w, model.OrderIndices{
		Swap:     []string{},
		Increase: []string{},
		Decrease: []string{},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "OK",
		"version": version,
	})
}
