package light_test

import (
	"os"
	"path/filepath"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tendermint/light-verifier/crypto"
	"github.com/tendermint/light-verifier/crypto/ed25519"
	"github.com/tendermint/light-verifier/types"
	"github.com/tendermint/light-verifier/version"
)

// testingT is satisfied by both *testing.T and *rapid.T.
type testingT interface {
	require.TestingT
	Helper()
}

// privKeys is a helper type for testing.
//
// It lets us simulate signing with many keys.  The main use case is to create
// a set, and call GenLightBlock to get a properly signed block for testing.
//
// You can set different weights of validators each time you call ToValidators,
// and can optionally extend the validator set later with Extend.
type privKeys []crypto.PrivKey

// genPrivKeys produces an array of private keys to generate commits.
func genPrivKeys(n int) privKeys {
	res := make(privKeys, n)
	for i := range res {
		res[i] = ed25519.GenPrivKey()
	}
	return res
}

// Extend adds n more keys (to remove, just take a slice).
func (pkz privKeys) Extend(n int) privKeys {
	extra := genPrivKeys(n)
	return append(pkz[:len(pkz):len(pkz)], extra...)
}

// ToValidators produces a valset from the set of keys.
// The first key has weight `init` and it increases by `inc` every step
// so we can have all the same weight, or a simple linear distribution
// (should be enough for testing).
func (pkz privKeys) ToValidators(init, inc int64) *types.ValidatorSet {
	res := make([]*types.Validator, len(pkz))
	for i, k := range pkz {
		res[i] = types.NewValidator(k.PubKey(), init+int64(i)*inc)
	}
	return types.NewValidatorSet(res)
}

// signHeader properly signs the header with all keys from first to last
// exclusive. Keys outside valSet are skipped.
func (pkz privKeys) signHeader(t testingT, header *types.Header, valSet *types.ValidatorSet, first, last int) *types.Commit {
	t.Helper()

	commit := &types.Commit{
		Height: header.Height,
		Round:  1,
		BlockID: types.BlockID{
			Hash:          header.Hash(),
			PartSetHeader: types.PartSetHeader{Total: 1, Hash: crypto.CRandBytes(32)},
		},
		Signatures: make([]types.CommitSig, valSet.Size()),
	}
	for i := range commit.Signatures {
		commit.Signatures[i] = types.NewCommitSigAbsent()
	}

	// Fill in the votes we want.
	for i := first; i < last && i < len(pkz); i++ {
		addr := pkz[i].PubKey().Address()
		idx, _ := valSet.GetByAddress(addr)
		if idx < 0 {
			continue
		}
		commit.Signatures[idx] = types.CommitSig{
			BlockIDFlag:      types.BlockIDFlagCommit,
			ValidatorAddress: addr,
			Timestamp:        header.Time,
		}
		commit.Signatures[idx].Signature = sign(t, pkz[i], commit, header.ChainID, idx)
	}

	return commit
}

func sign(t testingT, key crypto.PrivKey, commit *types.Commit, chainID string, idx int32) []byte {
	t.Helper()

	signBytes, err := commit.VoteSignBytes(chainID, idx)
	require.NoError(t, err)
	sig, err := key.Sign(signBytes)
	require.NoError(t, err)
	return sig
}

func genHeader(chainID string, height int64, bTime time.Time,
	valset, nextValset *types.ValidatorSet, appHash, consHash, resHash []byte) *types.Header {

	return &types.Header{
		Version: version.Consensus{Block: version.BlockProtocol, App: 0},
		ChainID: chainID,
		Height:  height,
		Time:    bTime,
		// LastBlockID
		// LastCommitHash
		ValidatorsHash:     valset.Hash(),
		NextValidatorsHash: nextValset.Hash(),
		AppHash:            appHash,
		ConsensusHash:      consHash,
		LastResultsHash:    resHash,
		ProposerAddress:    valset.Validators[0].Address,
	}
}

// GenSignedHeader calls genHeader and signHeader and combines them into a SignedHeader.
func (pkz privKeys) GenSignedHeader(t testingT, chainID string, height int64, bTime time.Time,
	valset, nextValset *types.ValidatorSet, first, last int) *types.SignedHeader {

	t.Helper()

	header := genHeader(chainID, height, bTime, valset, nextValset,
		hash("app_hash"), hash("cons_hash"), hash("results_hash"))
	return &types.SignedHeader{
		Header: header,
		Commit: pkz.signHeader(t, header, valset, first, last),
	}
}

// GenLightBlock signs a header at height with keys[first:last] and bundles
// it with both validator sets.
func (pkz privKeys) GenLightBlock(t testingT, chainID string, height int64, bTime time.Time,
	valset, nextValset *types.ValidatorSet, first, last int) *types.LightBlock {

	t.Helper()

	return &types.LightBlock{
		SignedHeader:     pkz.GenSignedHeader(t, chainID, height, bTime, valset, nextValset, first, last),
		ValidatorSet:     valset,
		NextValidatorSet: nextValset,
		Provider:         "test",
	}
}

func hash(s string) []byte {
	return crypto.Checksum([]byte(s))
}

// loadLightBlock decodes a block from testdata.
func loadLightBlock(t testingT, name string) *types.LightBlock {
	t.Helper()

	bz, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	lb, err := types.DecodeLightBlock(bz)
	require.NoError(t, err)
	return lb
}
