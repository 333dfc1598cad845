package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/tendermint/light-verifier/crypto/merkle"
	tmmath "github.com/tendermint/light-verifier/libs/math"
)

const (
	// MaxTotalVotingPower - the maximum allowed total voting power.
	// Chains enforce this bound so proposer priorities never overflow; a set
	// above it cannot come from a valid chain.
	MaxTotalVotingPower = int64(math.MaxInt64) / 8
)

// ValidatorSet represent a set of *Validator at a given height.
//
// The validators can be fetched by address or index.
// The index is in order of the commit signatures: slot i of a commit belongs
// to Validators[i].
//
// NOTE: Not goroutine-safe.
// NOTE: All get/set to validators should copy the value for safety.
type ValidatorSet struct {
	// NOTE: persisted via reflect, must be exported.
	Validators []*Validator `json:"validators"`

	// cached (unexported)
	totalVotingPower int64
	// total_voting_power as found on the wire; 0 when it was not supplied.
	declaredTotalVotingPower int64
}

type validatorSetJSON struct {
	Validators       []*Validator `json:"validators"`
	TotalVotingPower int64        `json:"total_voting_power,string"`
}

// NewValidatorSet initializes a ValidatorSet by copying over the values from
// `valz`, a list of Validators. If valz is nil or empty, the new ValidatorSet
// will have an empty list of Validators.
//
// The addresses of validators in `valz` must be unique otherwise ValidateBasic
// reports an error.
func NewValidatorSet(valz []*Validator) *ValidatorSet {
	vals := &ValidatorSet{
		Validators: validatorListCopy(valz),
	}
	vals.updateTotalVotingPower()
	return vals
}

func (vals ValidatorSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(validatorSetJSON{
		Validators:       vals.Validators,
		TotalVotingPower: vals.TotalVotingPower(),
	})
}

func (vals *ValidatorSet) UnmarshalJSON(data []byte) error {
	var vj validatorSetJSON
	if err := json.Unmarshal(data, &vj); err != nil {
		return err
	}
	vals.Validators = vj.Validators
	vals.declaredTotalVotingPower = vj.TotalVotingPower
	vals.updateTotalVotingPower()
	return nil
}

// ValidateBasic checks the set is non-empty, that every member is well
// formed and unique, and that the total voting power is within bounds and
// agrees with the declared total, if one was supplied.
func (vals *ValidatorSet) ValidateBasic() error {
	if vals.IsNilOrEmpty() {
		return errors.New("validator set is nil or empty")
	}

	seen := make(map[string]int, len(vals.Validators))
	sum := int64(0)
	for idx, val := range vals.Validators {
		if err := val.ValidateBasic(); err != nil {
			return fmt.Errorf("invalid validator #%d: %w", idx, err)
		}
		if first, ok := seen[string(val.Address)]; ok {
			return fmt.Errorf("duplicate validator %v (#%d and #%d)", val.Address, first, idx)
		}
		seen[string(val.Address)] = idx

		var overflow bool
		sum, overflow = tmmath.SafeAdd(sum, val.VotingPower)
		if overflow || sum > MaxTotalVotingPower {
			return fmt.Errorf("total voting power cannot be guarded to not exceed %v", MaxTotalVotingPower)
		}
	}

	if sum == 0 {
		return errors.New("validator set has no voting power")
	}
	if declared := vals.declaredTotalVotingPower; declared != 0 && declared != sum {
		return fmt.Errorf("declared total voting power %d does not match the sum of validator powers %d", declared, sum)
	}

	return nil
}

// IsNilOrEmpty returns true if validator set is nil or empty.
func (vals *ValidatorSet) IsNilOrEmpty() bool {
	return vals == nil || len(vals.Validators) == 0
}

// Makes a copy of the validator list.
func validatorListCopy(valsList []*Validator) []*Validator {
	if valsList == nil {
		return nil
	}
	valsCopy := make([]*Validator, len(valsList))
	for i, val := range valsList {
		valsCopy[i] = val.Copy()
	}
	return valsCopy
}

// Copy each validator into a new ValidatorSet.
func (vals *ValidatorSet) Copy() *ValidatorSet {
	return &ValidatorSet{
		Validators:               validatorListCopy(vals.Validators),
		totalVotingPower:         vals.totalVotingPower,
		declaredTotalVotingPower: vals.declaredTotalVotingPower,
	}
}

// GetByAddress returns an index of the validator with address and validator
// itself (copy) if found. Otherwise, -1 and nil are returned.
func (vals *ValidatorSet) GetByAddress(address []byte) (index int32, val *Validator) {
	for idx, val := range vals.Validators {
		if bytes.Equal(val.Address, address) {
			return int32(idx), val.Copy()
		}
	}
	return -1, nil
}

// GetByIndex returns the validator's address and the validator itself (copy)
// by index.
// It returns nil values if index is less than 0 or greater or equal to
// len(ValidatorSet.Validators).
func (vals *ValidatorSet) GetByIndex(index int32) (address []byte, val *Validator) {
	if index < 0 || int(index) >= len(vals.Validators) {
		return nil, nil
	}
	val = vals.Validators[index]
	return val.Address, val.Copy()
}

// Size returns the length of the validator set.
func (vals *ValidatorSet) Size() int {
	if vals == nil {
		return 0
	}
	return len(vals.Validators)
}

// Forces recalculation of the set's total voting power.
// The sum is clipped at MaxInt64; ValidateBasic rejects such sets.
func (vals *ValidatorSet) updateTotalVotingPower() {
	sum := int64(0)
	for _, val := range vals.Validators {
		if val == nil {
			continue
		}
		sum = tmmath.SafeAddClip(sum, val.VotingPower)
	}
	vals.totalVotingPower = sum
}

// TotalVotingPower returns the sum of the voting powers of all validators.
func (vals *ValidatorSet) TotalVotingPower() int64 {
	if vals == nil {
		return 0
	}
	return vals.totalVotingPower
}

// Hash returns the Merkle root hash build using validators (as leaves) in the
// set.
//
// See merkle.HashFromByteSlices.
func (vals *ValidatorSet) Hash() []byte {
	bzs := make([][]byte, len(vals.Validators))
	for i, val := range vals.Validators {
		bzs[i] = val.Bytes()
	}
	return merkle.HashFromByteSlices(bzs)
}

// Iterate will run the given function over the set.
func (vals *ValidatorSet) Iterate(fn func(index int, val *Validator) bool) {
	for i, val := range vals.Validators {
		stop := fn(i, val.Copy())
		if stop {
			break
		}
	}
}

// String returns a string representation of ValidatorSet.
//
// See StringIndented.
func (vals *ValidatorSet) String() string {
	return vals.StringIndented("")
}

// StringIndented returns an intended String.
//
// See Validator#String.
func (vals *ValidatorSet) StringIndented(indent string) string {
	if vals == nil {
		return "nil-ValidatorSet"
	}
	var valStrings []string
	vals.Iterate(func(index int, val *Validator) bool {
		valStrings = append(valStrings, val.String())
		return false
	})
	return fmt.Sprintf(`ValidatorSet{
%s  Validators:
%s    %v
%s}`,
		indent,
		indent, strings.Join(valStrings, "\n"+indent+"    "),
		indent)
}
