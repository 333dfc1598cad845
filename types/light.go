package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// LightBlock is a SignedHeader, the ValidatorSet that signed it and the
// ValidatorSet for the next height. It is the basis of the light client.
type LightBlock struct {
	*SignedHeader    `json:"signed_header"`
	ValidatorSet     *ValidatorSet `json:"validator_set"`
	NextValidatorSet *ValidatorSet `json:"next_validator_set"`
	// Provider identifies where the block came from. Diagnostics only.
	Provider string `json:"provider"`
}

// DecodeLightBlock parses the JSON form of a LightBlock. Errors wrap
// ErrSchema.
func DecodeLightBlock(data []byte) (*LightBlock, error) {
	lb := new(LightBlock)
	if err := json.Unmarshal(data, lb); err != nil {
		return nil, fmt.Errorf("%w: light block: %v", ErrSchema, err)
	}
	return lb, nil
}

// ValidateBasic checks that the data is correct and consistent
//
// This does no verification of the signatures and does not compare the
// validator sets with the hashes in the header; see ValidateValidatorSets.
func (lb LightBlock) ValidateBasic(chainID string) error {
	if lb.SignedHeader == nil {
		return errors.New("missing signed header")
	}
	if lb.ValidatorSet == nil {
		return errors.New("missing validator set")
	}

	if err := lb.SignedHeader.ValidateBasic(chainID); err != nil {
		return fmt.Errorf("invalid signed header: %w", err)
	}
	if err := lb.ValidatorSet.ValidateBasic(); err != nil {
		return fmt.Errorf("invalid validator set: %w", err)
	}
	if lb.NextValidatorSet != nil {
		if err := lb.NextValidatorSet.ValidateBasic(); err != nil {
			return fmt.Errorf("invalid next validator set: %w", err)
		}
	}

	// one commit slot per validator
	if size, sigs := lb.ValidatorSet.Size(), len(lb.Commit.Signatures); size != sigs {
		return NewErrInvalidCommitSignatures(size, sigs)
	}
	for _, cs := range lb.Commit.Signatures {
		if !cs.Absent() {
			return nil
		}
	}
	return errors.New("commit has no signatures")
}

// ValidateValidatorSets makes sure the validator sets are the ones the
// header commits to. The next validator set is only checked when present.
//
// The sets must have passed ValidateBasic.
func (lb LightBlock) ValidateValidatorSets() error {
	if valSetHash := lb.ValidatorSet.Hash(); !bytes.Equal(lb.SignedHeader.ValidatorsHash, valSetHash) {
		return ErrValidatorsHashMismatch{
			Field:    "validators_hash",
			Height:   lb.Height,
			Expected: lb.SignedHeader.ValidatorsHash,
			Actual:   valSetHash,
		}
	}
	if lb.NextValidatorSet != nil {
		if hash := lb.NextValidatorSet.Hash(); !bytes.Equal(lb.SignedHeader.NextValidatorsHash, hash) {
			return ErrValidatorsHashMismatch{
				Field:    "next_validators_hash",
				Height:   lb.Height,
				Expected: lb.SignedHeader.NextValidatorsHash,
				Actual:   hash,
			}
		}
	}
	return nil
}

// String returns a string representation of the LightBlock
func (lb LightBlock) String() string {
	return lb.StringIndented("")
}

// StringIndented returns an indented string representation of the LightBlock
//
// SignedHeader
// ValidatorSet
// NextValidatorSet
func (lb LightBlock) StringIndented(indent string) string {
	return fmt.Sprintf(`LightBlock{
%s  %v
%s  %v
%s  %v
%s  Provider: %s
%s}`,
		indent, lb.SignedHeader.StringIndented(indent+"  "),
		indent, lb.ValidatorSet.StringIndented(indent+"  "),
		indent, lb.NextValidatorSet.StringIndented(indent+"  "),
		indent, lb.Provider,
		indent)
}
