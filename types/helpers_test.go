package types

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tendermint/light-verifier/crypto"
	"github.com/tendermint/light-verifier/crypto/ed25519"
	"github.com/tendermint/light-verifier/version"
)

const testChainID = "test-chain"

func loadLightBlock(t *testing.T, name string) *LightBlock {
	t.Helper()

	bz, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	lb, err := DecodeLightBlock(bz)
	require.NoError(t, err)
	return lb
}

func randValidatorSet(n int, power int64) (*ValidatorSet, []crypto.PrivKey) {
	var (
		vals  = make([]*Validator, n)
		privs = make([]crypto.PrivKey, n)
	)
	for i := range vals {
		privs[i] = ed25519.GenPrivKey()
		vals[i] = NewValidator(privs[i].PubKey(), power)
	}
	return NewValidatorSet(vals), privs
}

func makeHeader(height int64, vals *ValidatorSet) *Header {
	return &Header{
		Version:            version.Consensus{Block: version.BlockProtocol},
		ChainID:            testChainID,
		Height:             height,
		Time:               time.Unix(height, 0).UTC(),
		ValidatorsHash:     vals.Hash(),
		NextValidatorsHash: vals.Hash(),
		ConsensusHash:      crypto.Checksum([]byte("cons")),
		ProposerAddress:    vals.Validators[0].Address,
	}
}

func makeBlockID(hash []byte) BlockID {
	return BlockID{
		Hash:          hash,
		PartSetHeader: PartSetHeader{Total: 1, Hash: crypto.Checksum([]byte("parts"))},
	}
}

// makeCommit builds a commit for header in which privs[i] votes in slot i.
// A nil key leaves its slot absent.
func makeCommit(t *testing.T, header *Header, privs []crypto.PrivKey) *Commit {
	t.Helper()

	commit := NewCommit(header.Height, 0, makeBlockID(header.Hash()), make([]CommitSig, len(privs)))
	for i, priv := range privs {
		if priv == nil {
			commit.Signatures[i] = NewCommitSigAbsent()
			continue
		}
		commit.Signatures[i] = CommitSig{
			BlockIDFlag:      BlockIDFlagCommit,
			ValidatorAddress: priv.PubKey().Address(),
			Timestamp:        header.Time,
		}
		signCommitSig(t, commit, i, priv)
	}
	return commit
}

func signCommitSig(t *testing.T, commit *Commit, idx int, priv crypto.PrivKey) {
	t.Helper()

	signBytes, err := commit.VoteSignBytes(testChainID, int32(idx))
	require.NoError(t, err)
	sig, err := priv.Sign(signBytes)
	require.NoError(t, err)
	commit.Signatures[idx].Signature = sig
}
