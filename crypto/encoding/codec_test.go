package encoding_test

import (
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tendermint/light-verifier/crypto"
	"github.com/tendermint/light-verifier/crypto/ed25519"
	"github.com/tendermint/light-verifier/crypto/encoding"
	"github.com/tendermint/light-verifier/libs/bytes"
)

// mockUnsupportedPubKey is a mock type to test unsupported key handling
type mockUnsupportedPubKey struct{}

func (mockUnsupportedPubKey) Bytes() []byte {
	return []byte{}
}

func (mockUnsupportedPubKey) Address() bytes.HexBytes {
	return bytes.HexBytes{}
}

func (mockUnsupportedPubKey) Equals(crypto.PubKey) bool {
	return false
}

func (mockUnsupportedPubKey) Type() string {
	return "mockUnsupportedPubKey"
}

func (mockUnsupportedPubKey) TypeTag() string {
	return "test/mockUnsupportedPubKey"
}

func (mockUnsupportedPubKey) VerifySignature(msg []byte, sig []byte) bool {
	return false
}

func TestPubKeyToProto(t *testing.T) {
	raw, err := base64.StdEncoding.DecodeString("GQEC/HB4sDBAVhHtUzyv4yct9ZGnudaP209QQBSTfSQ=")
	require.NoError(t, err)

	bz, err := encoding.PubKeyToProto(ed25519.PubKey(raw))
	require.NoError(t, err)
	require.Equal(t,
		"0a20190102fc7078b030405611ed533cafe3272df591a7b9d68fdb4f504014937d24",
		hex.EncodeToString(bz))

	_, err = encoding.PubKeyToProto(ed25519.PubKey([]byte("short")))
	require.Error(t, err)

	_, err = encoding.PubKeyToProto(mockUnsupportedPubKey{})
	require.Error(t, err)
}
