// Package validation holds the enumerated legal sets for client-supplied
// request parameters and the checks that enforce them. Every rejection lists
// the valid options so the dashboard can surface them directly.
package validation

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/meterfi/dex-stats-api/internal/apierr"
	"github.com/meterfi/dex-stats-api/internal/chains"
)

// ValidPeriods enumerates the candle bucket sizes the price index maintains.
var ValidPeriods = map[string]bool{
	"5m":  true,
	"15m": true,
	"1h":  true,
	"4h":  true,
	"1d":  true,
}

// ValidCandleSymbols enumerates the symbols with an indexed price history.
var ValidCandleSymbols = map[string]bool{
	"MTR":  true,
	"MTRG": true,
	"BNB":  true,
	"UNI":  true,
	"LINK": true,
	"AVAX": true,
}

// ValidCandleSources enumerates the chains a caller may nominate as the
// preferable price-history origin.
var ValidCandleSources = map[chains.ChainID]bool{
	chains.Metertest: true,
	chains.Avalanche: true,
}

var accountRegex = regexp.MustCompile(`^0x[0-9a-f]{40}$`)

// CheckPeriod validates a candle period against ValidPeriods.
func CheckPeriod(period string) error {
	if ValidPeriods[period] {
		return nil
	}
	return apierr.New(apierr.KindValidation,
		"Invalid period. Valid periods are %s", strings.Join(sortedKeys(ValidPeriods), ","))
}

// CheckCandleSymbol validates a symbol against ValidCandleSymbols.
func CheckCandleSymbol(symbol string) error {
	if ValidCandleSymbols[symbol] {
		return nil
	}
	return apierr.New(apierr.KindValidation,
		"Invalid symbol %s. Valid symbols are %s", symbol, strings.Join(sortedKeys(ValidCandleSymbols), ","))
}

// CheckCandleSource validates a raw preferableChainId value and returns the
// parsed chain id.
func CheckCandleSource(raw string) (chains.ChainID, error) {
	id, err := strconv.Atoi(raw)
	if err == nil && ValidCandleSources[chains.ChainID(id)] {
		return chains.ChainID(id), nil
	}
	return 0, apierr.New(apierr.KindValidation,
		"Invalid preferableChainId %s. Valid options are %s", raw, strings.Join(sourceList(), ", "))
}

// NormalizeAccount lower-cases an optional account filter and checks its
// shape. An empty value is legal and means no filter.
func NormalizeAccount(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	account := strings.ToLower(raw)
	if !accountRegex.MatchString(account) {
		return "", apierr.New(apierr.KindValidation, "Invalid account %s. Expected a 0x-prefixed address", raw)
	}
	return account, nil
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sourceList() []string {
	ids := make([]int, 0, len(ValidCandleSources))
	for id := range ValidCandleSources {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strconv.Itoa(id)
	}
	return out
}
