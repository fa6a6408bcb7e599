package chains

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meterfi/dex-stats-api/internal/apierr"
)

func newTestRegistry() *Registry {
	return NewRegistry(DefaultEndpoints())
}

func TestAddressLookup(t *testing.T) {
	r := newTestRegistry()

	addr, err := r.Address(Metertest, "Vault")
	require.NoError(t, err)
	assert.NotEqual(t, addr.Hex(), "0x0000000000000000000000000000000000000000")

	gmx, err := r.Address(Metertest, "GMX")
	require.NoError(t, err)
	assert.Equal(t, "0x635bB9a3FeE749dcfC4beaE64DbcE7a24201C478", gmx.Hex())
}

func TestAddressUnknownChain(t *testing.T) {
	r := newTestRegistry()

	_, err := r.Address(ChainID(999), "Vault")
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindUnknownChain))
}

func TestAddressUnknownKey(t *testing.T) {
	r := newTestRegistry()

	_, err := r.Address(Metertest, "NoSuchContract")
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindUnknownAddressKey))
}

func TestEndpointLookups(t *testing.T) {
	r := newTestRegistry()

	rpc, err := r.RPCEndpoint(Metertest)
	require.NoError(t, err)
	assert.Equal(t, "https://rpctest.meter.io", rpc)

	for _, chain := range Supported {
		url, err := r.PricesSubgraph(chain)
		require.NoError(t, err, "chain %d", chain)
		assert.NotEmpty(t, url)
	}

	_, err = r.StatsSubgraph(Avalanche)
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindUnknownChain))

	_, err = r.RPCEndpoint(ChainID(1))
	require.Error(t, err)
}

func TestKnown(t *testing.T) {
	r := newTestRegistry()
	assert.True(t, r.Known(Metertest))
	assert.True(t, r.Known(Avalanche))
	assert.False(t, r.Known(ChainID(1)))
}
