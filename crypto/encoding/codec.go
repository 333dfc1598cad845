package encoding

import (
	"fmt"

	"github.com/tendermint/light-verifier/crypto"
	"github.com/tendermint/light-verifier/crypto/ed25519"
	"github.com/tendermint/light-verifier/libs/protoio"
)

// Field numbers of the tendermint.crypto.PublicKey oneof.
const (
	publicKeyEd25519 = 1
)

// PubKeyToProto takes crypto.PubKey and returns the wire encoding of the
// matching tendermint.crypto.PublicKey message.
func PubKeyToProto(k crypto.PubKey) ([]byte, error) {
	switch k := k.(type) {
	case ed25519.PubKey:
		if len(k) != ed25519.PubKeySize {
			return nil, fmt.Errorf("invalid size for PubKeyEd25519. Got %d, expected %d",
				len(k), ed25519.PubKeySize)
		}
		return protoio.NewWriter().Message(publicKeyEd25519, k).Marshal(), nil
	default:
		return nil, fmt.Errorf("toproto: key type %v is not supported", k)
	}
}
