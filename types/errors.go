package types

import (
	"errors"
	"fmt"
)

// ErrSchema wraps input that could not be decoded at all.
var ErrSchema = errors.New("malformed input")

// ErrInvalidCommitHeight is returned when we encounter a commit with an
// unexpected height.
type ErrInvalidCommitHeight struct {
	Expected int64
	Actual   int64
}

func NewErrInvalidCommitHeight(expected, actual int64) ErrInvalidCommitHeight {
	return ErrInvalidCommitHeight{
		Expected: expected,
		Actual:   actual,
	}
}

func (e ErrInvalidCommitHeight) Error() string {
	return fmt.Sprintf("invalid commit -- wrong height: %v vs %v", e.Expected, e.Actual)
}

// ErrInvalidCommitSignatures is returned when we encounter a commit where
// the number of signatures doesn't match the number of validators.
type ErrInvalidCommitSignatures struct {
	Expected int
	Actual   int
}

func NewErrInvalidCommitSignatures(expected, actual int) ErrInvalidCommitSignatures {
	return ErrInvalidCommitSignatures{
		Expected: expected,
		Actual:   actual,
	}
}

func (e ErrInvalidCommitSignatures) Error() string {
	return fmt.Sprintf("invalid commit -- wrong set size: %v vs %v", e.Expected, e.Actual)
}

// ErrNotEnoughVotingPowerSigned is returned when not enough validators signed
// a commit.
type ErrNotEnoughVotingPowerSigned struct {
	Tally VotingPowerTally
}

func (e ErrNotEnoughVotingPowerSigned) Error() string {
	return fmt.Sprintf("invalid commit -- insufficient voting power: %v", e.Tally)
}

// ErrUnknownSigner is returned when a commit carries a vote from an address
// that is not in the validator set.
type ErrUnknownSigner struct {
	Index   int
	Address Address
}

func (e ErrUnknownSigner) Error() string {
	return fmt.Sprintf("invalid commit -- signature #%d from unknown validator %v", e.Index, e.Address)
}

// ErrDuplicateSignature is returned when one validator signed a commit more
// than once.
type ErrDuplicateSignature struct {
	Address Address
	First   int
	Second  int
}

func (e ErrDuplicateSignature) Error() string {
	return fmt.Sprintf("invalid commit -- double vote from %v (#%d and #%d)", e.Address, e.First, e.Second)
}

// ErrInvalidSignature is returned when a committed signature does not verify.
type ErrInvalidSignature struct {
	Index     int
	Address   Address
	Signature []byte
}

func (e ErrInvalidSignature) Error() string {
	return fmt.Sprintf("wrong signature (#%d) from %v: %X", e.Index, e.Address, e.Signature)
}

// ErrValidatorsHashMismatch is returned when a validator set does not hash to
// the value committed to in a header.
type ErrValidatorsHashMismatch struct {
	Field    string
	Height   int64
	Expected []byte
	Actual   []byte
}

func (e ErrValidatorsHashMismatch) Error() string {
	return fmt.Sprintf("%s at height %d does not match: header has %X, validator set hashes to %X",
		e.Field, e.Height, e.Expected, e.Actual)
}
