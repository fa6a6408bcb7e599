// Package snapshot joins the static token catalog with live vault state into
// per-request snapshots and derives the protocol fee summary. Snapshots are
// never cached; every call re-reads the chain.
package snapshot

import (
	"context"
	"math/big"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/meterfi/dex-stats-api/internal/apierr"
	"github.com/meterfi/dex-stats-api/internal/chains"
	"github.com/meterfi/dex-stats-api/internal/contract"
	"github.com/meterfi/dex-stats-api/internal/model"
	"github.com/meterfi/dex-stats-api/internal/tokens"
)

// VaultReader is the contract-read capability the builder depends on.
type VaultReader interface {
	ReadVaultTokenInfo(ctx context.Context, chain chains.ChainID, toks []tokens.TokenRecord) ([]contract.VaultTokenInfo, error)
	ReadFees(ctx context.Context, chain chains.ChainID, toks []tokens.TokenRecord) ([]*big.Int, error)
}

// TokenInfo pairs a catalog record with its decoded vault state.
type TokenInfo struct {
	tokens.TokenRecord
	contract.VaultTokenInfo
}

// Builder constructs market snapshots for a chain.
type Builder struct {
	reader VaultReader
}

// NewBuilder creates a Builder over the given reader.
func NewBuilder(reader VaultReader) *Builder {
	return &Builder{reader: reader}
}

// BuildSnapshot reads the vault state for every catalog token and returns it
// keyed by token address. Catalog order is authoritative: the positional
// index is the join key, so a length disagreement is a read fault.
func (b *Builder) BuildSnapshot(ctx context.Context, chain chains.ChainID) (map[string]TokenInfo, error) {
	catalog, err := tokens.Catalog(chain)
	if err != nil {
		return nil, err
	}
	infos, err := b.reader.ReadVaultTokenInfo(ctx, chain, catalog)
	if err != nil {
		return nil, err
	}
	if len(infos) != len(catalog) {
		return nil, apierr.New(apierr.KindContractRead,
			"vault info count %d does not match catalog size %d", len(infos), len(catalog))
	}

	snap := make(map[string]TokenInfo, len(catalog))
	for i, t := range catalog {
		snap[t.Address] = TokenInfo{TokenRecord: t, VaultTokenInfo: infos[i]}
	}
	return snap, nil
}

// TokenEntries builds the /api/tokens payload in catalog order.
func (b *Builder) TokenEntries(ctx context.Context, chain chains.ChainID) ([]model.TokenEntry, error) {
	catalog, err := tokens.Catalog(chain)
	if err != nil {
		return nil, err
	}
	snap, err := b.BuildSnapshot(ctx, chain)
	if err != nil {
		return nil, err
	}

	entries := make([]model.TokenEntry, 0, len(catalog))
	for _, t := range catalog {
		info := snap[t.Address]
		entries = append(entries, model.TokenEntry{
			ID: t.Address,
			Data: model.TokenData{
				PoolAmount:       info.PoolAmount.String(),
				ReservedAmount:   info.ReservedAmount.String(),
				RedemptionAmount: info.RedemptionAmount.String(),
				Weight:           info.Weight.String(),
				MinPrice:         info.MinPrice.String(),
				MaxPrice:         info.MaxPrice.String(),
				GuaranteedUsd:    info.GuaranteedUsd.String(),
				MaxPrimaryPrice:  info.MaxPrimaryPrice.String(),
				MinPrimaryPrice:  info.MinPrimaryPrice.String(),
			},
		})
	}
	return entries, nil
}

// FeesSummary converts each token's accumulated fee to USD using the minPrice
// from a snapshot built in the same call, then sums. Arithmetic stays in
// big.Int end to end; no floats touch monetary values.
func (b *Builder) FeesSummary(ctx context.Context, chain chains.ChainID) (model.FeesSummary, error) {
	catalog, err := tokens.Catalog(chain)
	if err != nil {
		return model.FeesSummary{}, err
	}
	// The fee conversion needs prices from a snapshot taken now, not one left
	// over from an earlier request.
	snap, err := b.BuildSnapshot(ctx, chain)
	if err != nil {
		return model.FeesSummary{}, err
	}
	fees, err := b.reader.ReadFees(ctx, chain, catalog)
	if err != nil {
		return model.FeesSummary{}, err
	}
	if len(fees) != len(catalog) {
		return model.FeesSummary{}, apierr.New(apierr.KindContractRead,
			"fee count %d does not match catalog size %d", len(fees), len(catalog))
	}

	total := new(big.Int)
	for i, t := range catalog {
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(t.Decimals)), nil)
		feeUsd := new(big.Int).Mul(fees[i], snap[t.Address].MinPrice)
		feeUsd.Quo(feeUsd, scale)
		total.Add(total, feeUsd)
	}
	logrus.WithField("totalFees", total.String()).Debug("fees summary computed")

	return model.FeesSummary{
		LastUpdatedAt: time.Now().Unix(),
		TotalFees:     total.String(),
	}, nil
}
