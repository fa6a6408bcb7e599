package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindUnknownChain, http.StatusInternalServerError},
		{KindUnknownAddressKey, http.StatusInternalServerError},
		{KindContractRead, http.StatusInternalServerError},
		{KindUpstreamQuery, http.StatusInternalServerError},
		{KindValidation, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.Status())
		})
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindContractRead, cause, "eth_call to %s", "0xabc")

	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "ContractReadError")
	assert.Contains(t, err.Error(), "eth_call to 0xabc")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestIsKind(t *testing.T) {
	err := New(KindValidation, "Invalid period")
	assert.True(t, IsKind(err, KindValidation))
	assert.False(t, IsKind(err, KindContractRead))

	wrapped := fmt.Errorf("handling request: %w", err)
	assert.True(t, IsKind(wrapped, KindValidation))

	assert.False(t, IsKind(errors.New("plain"), KindValidation))
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusOf(New(KindValidation, "bad")))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(New(KindUpstreamQuery, "down")))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("untyped")))
}
