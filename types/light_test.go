package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/light-verifier/crypto"
)

func TestDecodeLightBlock(t *testing.T) {
	lb := loadLightBlock(t, "untrusted_block.json")

	assert.EqualValues(t, 4, lb.Height)
	assert.Equal(t, testChainID, lb.ChainID)
	assert.Equal(t, "BADFADAD0BEFEEDC0C0ADEADBEEFC0FFEEFACADE", lb.Provider)
	assert.True(t, lb.LastBlockID.IsNil())
	assert.Empty(t, lb.AppHash)
	require.Len(t, lb.Commit.Signatures, 1)
	assert.True(t, lb.Commit.Signatures[0].ForBlock())

	require.NoError(t, lb.ValidateBasic(testChainID))
	require.NoError(t, lb.ValidateValidatorSets())
}

func TestDecodeLightBlockMalformed(t *testing.T) {
	for name, data := range map[string]string{
		"not json":         `{"signed_header":`,
		"bad height":       `{"signed_header":{"header":{"height":4}}}`,
		"bad hex":          `{"signed_header":{"header":{"validators_hash":"XYZ"}}}`,
		"bad key type":     `{"validator_set":{"validators":[{"pub_key":{"type":"unknown","value":""}}]}}`,
		"bad block flag":   `{"signed_header":{"commit":{"signatures":[{"block_id_flag":"commit"}]}}}`,
		"bad voting power": `{"validator_set":{"validators":[{"voting_power":"many"}]}}`,
	} {
		data := data
		t.Run(name, func(t *testing.T) {
			_, err := DecodeLightBlock([]byte(data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrSchema))
		})
	}
}

func TestLightBlockValidateBasic(t *testing.T) {
	vals, privs := randValidatorSet(3, 10)

	testCases := []struct {
		name      string
		malleate  func(lb *LightBlock)
		expectErr bool
	}{
		{"valid", func(lb *LightBlock) {}, false},
		{"missing signed header", func(lb *LightBlock) { lb.SignedHeader = nil }, true},
		{"missing validator set", func(lb *LightBlock) { lb.ValidatorSet = nil }, true},
		{"missing next validator set", func(lb *LightBlock) { lb.NextValidatorSet = nil }, false},
		{"empty next validator set", func(lb *LightBlock) { lb.NextValidatorSet = NewValidatorSet(nil) }, true},
		{"too few commit slots", func(lb *LightBlock) {
			lb.Commit.Signatures = lb.Commit.Signatures[:2]
		}, true},
		{"only absent votes", func(lb *LightBlock) {
			for i := range lb.Commit.Signatures {
				lb.Commit.Signatures[i] = NewCommitSigAbsent()
			}
		}, true},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			header := makeHeader(6, vals)
			lb := &LightBlock{
				SignedHeader:     &SignedHeader{Header: header, Commit: makeCommit(t, header, privs)},
				ValidatorSet:     vals,
				NextValidatorSet: vals,
			}
			tc.malleate(lb)
			err := lb.ValidateBasic(testChainID)
			if tc.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	header := makeHeader(6, vals)
	lb := &LightBlock{
		SignedHeader: &SignedHeader{Header: header, Commit: makeCommit(t, header, privs[:2])},
		ValidatorSet: vals,
	}
	var sizeErr ErrInvalidCommitSignatures
	require.ErrorAs(t, lb.ValidateBasic(testChainID), &sizeErr)
	assert.Equal(t, NewErrInvalidCommitSignatures(3, 2), sizeErr)
}

func TestLightBlockValidateValidatorSets(t *testing.T) {
	lb := loadLightBlock(t, "untrusted_block.json")
	trusted := loadLightBlock(t, "trusted_block.json")

	swapped := *lb
	swapped.ValidatorSet = lb.NextValidatorSet
	var mismatch ErrValidatorsHashMismatch
	require.ErrorAs(t, swapped.ValidateValidatorSets(), &mismatch)
	assert.Equal(t, "validators_hash", mismatch.Field)
	assert.EqualValues(t, 4, mismatch.Height)

	swapped = *lb
	swapped.NextValidatorSet = trusted.NextValidatorSet
	require.ErrorAs(t, swapped.ValidateValidatorSets(), &mismatch)
	assert.Equal(t, "next_validators_hash", mismatch.Field)

	swapped = *lb
	swapped.NextValidatorSet = nil
	assert.NoError(t, swapped.ValidateValidatorSets())
}

func TestLightBlockString(t *testing.T) {
	lb := loadLightBlock(t, "untrusted_block.json")
	s := lb.String()
	assert.Contains(t, s, "LightBlock{")
	assert.Contains(t, s, crypto.Address(lb.ProposerAddress).String())
}
