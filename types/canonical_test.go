package types

import (
	"bytes"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoteSignBytes(t *testing.T) {
	lb := loadLightBlock(t, "untrusted_block.json")

	signBytes, err := lb.Commit.VoteSignBytes(testChainID, 0)
	require.NoError(t, err)
	assert.Equal(t,
		"6e080211040000000000000019010000000000000022480a20d0e7b0c678e290da835bb26ee826472d66b6a3"+
			"06801e5fe0803c5320c554610a122408011220d0e7b0c678e290da835bb26ee826472d66b6a306801e5fe0"+
			"803c5320c554610a2a020804320a746573742d636861696e",
		hex.EncodeToString(signBytes))

	val := lb.ValidatorSet.Validators[0]
	assert.True(t, val.PubKey.VerifySignature(signBytes, lb.Commit.Signatures[0].Signature))
}

func TestVoteSignBytesNilBlock(t *testing.T) {
	blockHash, err := hex.DecodeString("D0E7B0C678E290DA835BB26EE826472D66B6A306801E5FE0803C5320C554610A")
	require.NoError(t, err)

	commit := NewCommit(4, 1, makeBlockID(blockHash), []CommitSig{{
		BlockIDFlag: BlockIDFlagNil,
		Timestamp:   time.Unix(4, 0).UTC(),
	}})
	signBytes, err := commit.VoteSignBytes(testChainID, 0)
	require.NoError(t, err)

	assert.Equal(t,
		"2408021104000000000000001901000000000000002a020804320a746573742d636861696e",
		hex.EncodeToString(signBytes))
	assert.False(t, bytes.Contains(signBytes, blockHash))
}

func TestVoteSignBytesZeroValues(t *testing.T) {
	signBytes, err := VoteSignBytes("", UnknownType, 0, 0, BlockID{}, time.Unix(0, 0).UTC())
	require.NoError(t, err)
	// Only the timestamp is always emitted.
	assert.Equal(t, "022a00", hex.EncodeToString(signBytes))
}

func TestVoteSignBytesDependOnEveryField(t *testing.T) {
	blockID := makeBlockID(bytes.Repeat([]byte{0xAB}, 32))
	ts := time.Unix(1000, 500).UTC()

	base, err := VoteSignBytes(testChainID, PrecommitType, 10, 2, blockID, ts)
	require.NoError(t, err)

	variants := map[string]func() ([]byte, error){
		"chain id": func() ([]byte, error) { return VoteSignBytes("other", PrecommitType, 10, 2, blockID, ts) },
		"type":     func() ([]byte, error) { return VoteSignBytes(testChainID, PrevoteType, 10, 2, blockID, ts) },
		"height":   func() ([]byte, error) { return VoteSignBytes(testChainID, PrecommitType, 11, 2, blockID, ts) },
		"round":    func() ([]byte, error) { return VoteSignBytes(testChainID, PrecommitType, 10, 3, blockID, ts) },
		"block id": func() ([]byte, error) {
			return VoteSignBytes(testChainID, PrecommitType, 10, 2, BlockID{}, ts)
		},
		"timestamp": func() ([]byte, error) {
			return VoteSignBytes(testChainID, PrecommitType, 10, 2, blockID, ts.Add(time.Nanosecond))
		},
	}
	for name, variant := range variants {
		variant := variant
		t.Run(name, func(t *testing.T) {
			bz, err := variant()
			require.NoError(t, err)
			assert.NotEqual(t, base, bz)
		})
	}
}
