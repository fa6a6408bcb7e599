// Package tokens holds the static per-chain catalog of tradable tokens. The
// catalog is loaded once per process and never mutated; its declaration order
// is the positional join key against on-chain reader output.
package tokens

import (
	"github.com/meterfi/dex-stats-api/internal/apierr"
	"github.com/meterfi/dex-stats-api/internal/chains"
)

// TokenRecord describes one tradable token with its risk parameters.
type TokenRecord struct {
	Name               string
	Symbol             string
	Address            string
	Decimals           int
	PriceDecimals      int
	IsStable           bool
	IsShortable        bool
	TokenWeight        int
	BufferAmount       int64
	MaxUsdgAmount      int64
	MaxGlobalLongSize  int64
	MaxGlobalShortSize int64
	SpreadBasisPoints  int
	MinProfitBps       int
}

// catalogs lists tokens per chain, in the order the vault reader expects.
var catalogs = map[chains.ChainID][]TokenRecord{
	chains.Metertest: {
		{
			Name:               "MTR",
			Symbol:             "MTR",
			Address:            "0xfAC315d105E5A7fe2174B3EB1f95C257A9A5e271",
			Decimals:           18,
			PriceDecimals:      18,
			IsStable:           false,
			IsShortable:        true,
			TokenWeight:        7000,
			BufferAmount:       200_000,
			MaxUsdgAmount:      5_000_000,
			MaxGlobalLongSize:  1_000_000,
			MaxGlobalShortSize: 500_000,
			SpreadBasisPoints:  0,
			MinProfitBps:       0,
		},
		{
			Name:               "MTRG",
			Symbol:             "MTRG",
			Address:            "0x8a419ef4941355476cf04933e90bf3bbf2f73814",
			Decimals:           18,
			PriceDecimals:      18,
			IsStable:           false,
			IsShortable:        true,
			TokenWeight:        20000,
			BufferAmount:       5500,
			MaxUsdgAmount:      30_000_000,
			MaxGlobalLongSize:  15_000_000,
			MaxGlobalShortSize: 8_000_000,
			SpreadBasisPoints:  0,
			MinProfitBps:       0,
		},
	},
}

// Catalog returns the ordered token list for a chain. The returned slice must
// not be mutated by callers.
func Catalog(chain chains.ChainID) ([]TokenRecord, error) {
	list, ok := catalogs[chain]
	if !ok {
		return nil, apierr.New(apierr.KindUnknownChain, "no token catalog for chain %d", chain)
	}
	return list, nil
}

// BySymbol looks up a single token in a chain's catalog.
func BySymbol(chain chains.ChainID, symbol string) (TokenRecord, error) {
	list, err := Catalog(chain)
	if err != nil {
		return TokenRecord{}, err
	}
	for _, t := range list {
		if t.Symbol == symbol {
			return t, nil
		}
	}
	return TokenRecord{}, apierr.New(apierr.KindValidation, "unknown token %s on chain %d", symbol, chain)
}
