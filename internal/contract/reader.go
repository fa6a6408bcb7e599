// Package contract issues read-only calls against the vault reader, token and
// price-feed contracts, and owns the decoding of their flattened results.
package contract

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	"github.com/meterfi/dex-stats-api/internal/apierr"
	"github.com/meterfi/dex-stats-api/internal/chains"
	"github.com/meterfi/dex-stats-api/internal/tokens"
)

// vaultPropsLength is the stride of the flattened getVaultTokenInfo result.
const vaultPropsLength = 10

const readerABIJSON = `[
	{"name":"getVaultTokenInfo","type":"function","stateMutability":"view",
	 "inputs":[{"name":"_vault","type":"address"},{"name":"_weth","type":"address"},
	           {"name":"_usdgAmount","type":"uint256"},{"name":"_tokens","type":"address[]"}],
	 "outputs":[{"name":"","type":"uint256[]"}]},
	{"name":"getFees","type":"function","stateMutability":"view",
	 "inputs":[{"name":"_vault","type":"address"},{"name":"_tokens","type":"address[]"}],
	 "outputs":[{"name":"","type":"uint256[]"}]}
]`

const erc20ABIJSON = `[
	{"name":"totalSupply","type":"function","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

const witnetFeedABIJSON = `[
	{"name":"lastPrice","type":"function","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"int256"}]}
]`

var (
	readerABI = mustParseABI(readerABIJSON)
	erc20ABI  = mustParseABI(erc20ABIJSON)
	witnetABI = mustParseABI(witnetFeedABIJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// VaultTokenInfo is the decoded per-token vault state, each field a big
// unsigned integer in the token's native on-chain scale.
type VaultTokenInfo struct {
	PoolAmount       *big.Int
	ReservedAmount   *big.Int
	UsdgAmount       *big.Int
	RedemptionAmount *big.Int
	Weight           *big.Int
	MinPrice         *big.Int
	MaxPrice         *big.Int
	GuaranteedUsd    *big.Int
	MaxPrimaryPrice  *big.Int
	MinPrimaryPrice  *big.Int
}

// Reader issues eth_call reads against a chain's contracts. Clients are
// dialed lazily per chain and reused; every call carries the configured
// timeout.
type Reader struct {
	registry *chains.Registry
	timeout  time.Duration

	mu      sync.Mutex
	clients map[chains.ChainID]*ethclient.Client
}

// NewReader creates a Reader bound to the given registry.
func NewReader(registry *chains.Registry, timeout time.Duration) *Reader {
	return &Reader{
		registry: registry,
		timeout:  timeout,
		clients:  make(map[chains.ChainID]*ethclient.Client),
	}
}

func (r *Reader) client(chain chains.ChainID) (*ethclient.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[chain]; ok {
		return c, nil
	}
	url, err := r.registry.RPCEndpoint(chain)
	if err != nil {
		return nil, err
	}
	c, err := ethclient.Dial(url)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindContractRead, err, "dialing RPC for chain %d", chain)
	}
	r.clients[chain] = c
	return c, nil
}

func (r *Reader) call(ctx context.Context, chain chains.ChainID, to common.Address, data []byte) ([]byte, error) {
	c, err := r.client(chain)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	out, err := c.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindContractRead, err, "eth_call to %s on chain %d", to.Hex(), chain)
	}
	return out, nil
}

// ReadVaultTokenInfo performs one batched reader call for the given tokens
// and decodes the flat result, preserving input order.
func (r *Reader) ReadVaultTokenInfo(ctx context.Context, chain chains.ChainID, toks []tokens.TokenRecord) ([]VaultTokenInfo, error) {
	readerAddr, err := r.registry.Address(chain, "Reader")
	if err != nil {
		return nil, err
	}
	vaultAddr, err := r.registry.Address(chain, "Vault")
	if err != nil {
		return nil, err
	}
	refAddr, err := r.registry.Address(chain, "MTR")
	if err != nil {
		return nil, err
	}

	addrs := make([]common.Address, len(toks))
	for i, t := range toks {
		addrs[i] = common.HexToAddress(t.Address)
	}

	data, err := readerABI.Pack("getVaultTokenInfo", vaultAddr, refAddr, expandDecimals(1, 18), addrs)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindContractRead, err, "packing getVaultTokenInfo")
	}
	out, err := r.call(ctx, chain, readerAddr, data)
	if err != nil {
		return nil, err
	}
	flat, err := unpackUintArray(readerABI, "getVaultTokenInfo", out)
	if err != nil {
		return nil, err
	}
	logrus.Debugf("getVaultTokenInfo returned %d words for %d tokens", len(flat), len(toks))
	return decodeVaultTokenInfo(flat, len(toks))
}

// ReadFees returns one flat fee amount per token, in input order.
func (r *Reader) ReadFees(ctx context.Context, chain chains.ChainID, toks []tokens.TokenRecord) ([]*big.Int, error) {
	readerAddr, err := r.registry.Address(chain, "Reader")
	if err != nil {
		return nil, err
	}
	vaultAddr, err := r.registry.Address(chain, "Vault")
	if err != nil {
		return nil, err
	}

	addrs := make([]common.Address, len(toks))
	for i, t := range toks {
		addrs[i] = common.HexToAddress(t.Address)
	}

	data, err := readerABI.Pack("getFees", vaultAddr, addrs)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindContractRead, err, "packing getFees")
	}
	out, err := r.call(ctx, chain, readerAddr, data)
	if err != nil {
		return nil, err
	}
	fees, err := unpackUintArray(readerABI, "getFees", out)
	if err != nil {
		return nil, err
	}
	if len(fees) != len(toks) {
		return nil, apierr.New(apierr.KindContractRead,
			"getFees returned %d amounts for %d tokens", len(fees), len(toks))
	}
	return fees, nil
}

// TotalSupply reads totalSupply() of the registry address under key.
func (r *Reader) TotalSupply(ctx context.Context, chain chains.ChainID, key string) (*big.Int, error) {
	addr, err := r.registry.Address(chain, key)
	if err != nil {
		return nil, err
	}
	data, err := erc20ABI.Pack("totalSupply")
	if err != nil {
		return nil, apierr.Wrap(apierr.KindContractRead, err, "packing totalSupply")
	}
	out, err := r.call(ctx, chain, addr, data)
	if err != nil {
		return nil, err
	}
	vals, err := erc20ABI.Unpack("totalSupply", out)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindContractRead, err, "decoding totalSupply")
	}
	supply, ok := vals[0].(*big.Int)
	if !ok {
		return nil, apierr.New(apierr.KindContractRead, "unexpected totalSupply result type")
	}
	return supply, nil
}

// LastPrice reads lastPrice() of the price feed under key.
func (r *Reader) LastPrice(ctx context.Context, chain chains.ChainID, key string) (*big.Int, error) {
	addr, err := r.registry.Address(chain, key)
	if err != nil {
		return nil, err
	}
	data, err := witnetABI.Pack("lastPrice")
	if err != nil {
		return nil, apierr.Wrap(apierr.KindContractRead, err, "packing lastPrice")
	}
	out, err := r.call(ctx, chain, addr, data)
	if err != nil {
		return nil, err
	}
	vals, err := witnetABI.Unpack("lastPrice", out)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindContractRead, err, "decoding lastPrice")
	}
	price, ok := vals[0].(*big.Int)
	if !ok {
		return nil, apierr.New(apierr.KindContractRead, "unexpected lastPrice result type")
	}
	return price, nil
}

func unpackUintArray(parsed abi.ABI, method string, out []byte) ([]*big.Int, error) {
	vals, err := parsed.Unpack(method, out)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindContractRead, err, "decoding %s", method)
	}
	flat, ok := vals[0].([]*big.Int)
	if !ok {
		return nil, apierr.New(apierr.KindContractRead, "unexpected %s result type", method)
	}
	return flat, nil
}

// decodeVaultTokenInfo splits the flattened reader result into one record per
// token. The length must be exactly vaultPropsLength per token; anything else
// is a decoding fault, never a truncated success.
func decodeVaultTokenInfo(flat []*big.Int, tokenCount int) ([]VaultTokenInfo, error) {
	if len(flat) != tokenCount*vaultPropsLength {
		return nil, apierr.New(apierr.KindContractRead,
			"vault token info length %d, want %d for %d tokens",
			len(flat), tokenCount*vaultPropsLength, tokenCount)
	}
	infos := make([]VaultTokenInfo, tokenCount)
	for i := 0; i < tokenCount; i++ {
		base := i * vaultPropsLength
		infos[i] = VaultTokenInfo{
			PoolAmount:       flat[base],
			ReservedAmount:   flat[base+1],
			UsdgAmount:       flat[base+2],
			RedemptionAmount: flat[base+3],
			Weight:           flat[base+4],
			MinPrice:         flat[base+5],
			MaxPrice:         flat[base+6],
			GuaranteedUsd:    flat[base+7],
			MaxPrimaryPrice:  flat[base+8],
			MinPrimaryPrice:  flat[base+9],
		}
	}
	return infos, nil
}

// expandDecimals returns n * 10^decimals.
func expandDecimals(n int64, decimals int) *big.Int {
	exp := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return exp.Mul(exp, big.NewInt(n))
}

// FormatUnits renders n as a decimal string with the given number of
// fractional digits, trimming trailing zeros but always keeping at least one
// fractional digit, matching the dashboard's expectations.
func FormatUnits(n *big.Int, decimals int) string {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	abs := new(big.Int).Abs(n)
	whole, frac := new(big.Int).QuoRem(abs, scale, new(big.Int))

	fracStr := frac.Text(10)
	for len(fracStr) < decimals {
		fracStr = "0" + fracStr
	}
	fracStr = strings.TrimRight(fracStr, "0")
	if fracStr == "" {
		fracStr = "0"
	}

	sign := ""
	if n.Sign() < 0 {
		sign = "-"
	}
	return sign + whole.Text(10) + "." + fracStr
}
