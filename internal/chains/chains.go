// Package chains holds the per-network registry: contract addresses, RPC
// endpoints and subgraph endpoints, keyed by chain id. The tables are built
// once at startup and are read-only afterwards.
package chains

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/meterfi/dex-stats-api/internal/apierr"
)

// ChainID identifies a supported network.
type ChainID int

// Supported networks.
const (
	Metertest ChainID = 83
	Arbitrum  ChainID = 42161
	Avalanche ChainID = 43114
)

// Supported lists every chain id the service knows about.
var Supported = []ChainID{Metertest, Arbitrum, Avalanche}

// addressTable maps symbolic keys to deployed contract addresses per chain.
var addressTable = map[ChainID]map[string]string{
	Metertest: {
		"GMX":              "0x635bB9a3FeE749dcfC4beaE64DbcE7a24201C478",
		"MTR":              "0xfAC315d105E5A7fe2174B3EB1f95C257A9A5e271",
		"MTRG":             "0x8a419ef4941355476cf04933e90bf3bbf2f73814",
		"Vault":            "0x7Fa4BbAe9B2Ab6bbBCee96CcC0b0F9c6d53E1f9b",
		"Reader":           "0x3D3fD6B7C7d2B59C0784Fb07Bb4E8E6A6Cb5E4F2",
		"RewardReader":     "0x95801D11abfce3db2D9fEE98436241aB3Fa2E864",
		"GLP":              "0x11698092eeA7782a3d961F78f71C759664B6C718",
		"GlpManager":       "0x94dB843CB32842b81D1102D77f5F5F946Ce2a2D1",
		"IWitnetFeed_MTR":  "0xCd5CB72EF809059Fa10773c6a4E13C9aa7D1983f",
		"IWitnetFeed_MTRG": "0x10312f9cc653c09E30789e053be322D17b0C7cF5",
	},
}

// Endpoints carries the upstream URLs consumed by the registry. The keys are
// the supported chain ids; a missing key means the chain has no endpoint of
// that kind.
type Endpoints struct {
	RPC    map[ChainID]string
	Prices map[ChainID]string
	Stats  map[ChainID]string
}

// DefaultEndpoints returns the deployment defaults. Individual URLs are
// overridable through configuration before the registry is built.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		RPC: map[ChainID]string{
			Metertest: "https://rpctest.meter.io",
		},
		Prices: map[ChainID]string{
			Metertest: "http://graphtest.meter.io:8000/subgraphs/name/gmx/gmx-price",
			Arbitrum:  "https://api.thegraph.com/subgraphs/name/gmx-io/gmx-arbitrum-prices",
			Avalanche: "https://api.thegraph.com/subgraphs/name/gmx-io/gmx-avalanche-prices",
		},
		Stats: map[ChainID]string{
			Metertest: "http://graphtest.meter.io:8000/subgraphs/name/gmx/gmx-stats",
		},
	}
}

// Registry resolves chain-scoped addresses and endpoints with fail-fast
// semantics. Safe for unlimited concurrent readers.
type Registry struct {
	addresses map[ChainID]map[string]common.Address
	endpoints Endpoints
}

// NewRegistry builds the registry from the static address table and the given
// endpoints.
func NewRegistry(eps Endpoints) *Registry {
	addrs := make(map[ChainID]map[string]common.Address, len(addressTable))
	for chain, table := range addressTable {
		parsed := make(map[string]common.Address, len(table))
		for key, hex := range table {
			parsed[key] = common.HexToAddress(hex)
		}
		addrs[chain] = parsed
	}
	return &Registry{addresses: addrs, endpoints: eps}
}

// Known reports whether the chain id is configured at all.
func (r *Registry) Known(chain ChainID) bool {
	if _, ok := r.addresses[chain]; ok {
		return true
	}
	if _, ok := r.endpoints.Prices[chain]; ok {
		return true
	}
	_, ok := r.endpoints.RPC[chain]
	return ok
}

// Address resolves a symbolic key to a contract address.
func (r *Registry) Address(chain ChainID, key string) (common.Address, error) {
	table, ok := r.addresses[chain]
	if !ok {
		return common.Address{}, apierr.New(apierr.KindUnknownChain, "unknown chain %d", chain)
	}
	addr, ok := table[key]
	if !ok {
		return common.Address{}, apierr.New(apierr.KindUnknownAddressKey, "unknown address key %s for chain %d", key, chain)
	}
	return addr, nil
}

// RPCEndpoint resolves the JSON-RPC URL for a chain.
func (r *Registry) RPCEndpoint(chain ChainID) (string, error) {
	url, ok := r.endpoints.RPC[chain]
	if !ok {
		return "", apierr.New(apierr.KindUnknownChain, "no RPC endpoint for chain %d", chain)
	}
	return url, nil
}

// PricesSubgraph resolves the prices subgraph URL for a chain.
func (r *Registry) PricesSubgraph(chain ChainID) (string, error) {
	url, ok := r.endpoints.Prices[chain]
	if !ok {
		return "", apierr.New(apierr.KindUnknownChain, "no prices subgraph for chain %d", chain)
	}
	return url, nil
}

// StatsSubgraph resolves the stats subgraph URL for a chain.
func (r *Registry) StatsSubgraph(chain ChainID) (string, error) {
	url, ok := r.endpoints.Stats[chain]
	if !ok {
		return "", apierr.New(apierr.KindUnknownChain, "no stats subgraph for chain %d", chain)
	}
	return url, nil
}
