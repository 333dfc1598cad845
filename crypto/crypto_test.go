package crypto_test

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/light-verifier/crypto"
)

func TestAddressHash(t *testing.T) {
	testCases := map[string]struct {
		pubKey string
		addr   string
	}{
		"validator": {
			pubKey: "GQEC/HB4sDBAVhHtUzyv4yct9ZGnudaP209QQBSTfSQ=",
			addr:   "6AE5C701F508EB5B63343858E068C5843F28105F",
		},
		"next validator": {
			pubKey: "3wf60CidQcsIO7TksXzEZsJefMUFF73k6nP1YeEo9to=",
			addr:   "C479DB6F37AB9757035CFBE10B687E27668EE7DF",
		},
	}

	for name, tc := range testCases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			bz, err := base64.StdEncoding.DecodeString(tc.pubKey)
			require.NoError(t, err)

			addr := crypto.AddressHash(bz)
			assert.Len(t, addr, crypto.AddressSize)
			assert.Equal(t, tc.addr, addr.String())
			assert.Equal(t, crypto.Checksum(bz)[:crypto.AddressSize], []byte(addr))
		})
	}
}

func TestCRandBytes(t *testing.T) {
	assert.Len(t, crypto.CRandBytes(32), 32)
	assert.NotEqual(t, crypto.CRandBytes(32), crypto.CRandBytes(32))
}
