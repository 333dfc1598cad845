package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tendermint/light-verifier/crypto"
	ce "github.com/tendermint/light-verifier/crypto/encoding"
	"github.com/tendermint/light-verifier/internal/jsontypes"
	"github.com/tendermint/light-verifier/libs/protoio"
)

// Validator is a member of a validator set.
// NOTE: The ProposerPriority is not included in Validator.Bytes();
// it is decoded for completeness and never used during verification.
type Validator struct {
	Address     Address
	PubKey      crypto.PubKey
	VotingPower int64

	ProposerPriority int64
}

type validatorJSON struct {
	Address          Address         `json:"address"`
	PubKey           json.RawMessage `json:"pub_key,omitempty"`
	VotingPower      int64           `json:"voting_power,string"`
	ProposerPriority int64           `json:"proposer_priority,string"`
}

func (v Validator) MarshalJSON() ([]byte, error) {
	val := validatorJSON{
		Address:          v.Address,
		VotingPower:      v.VotingPower,
		ProposerPriority: v.ProposerPriority,
	}
	if v.PubKey != nil {
		pk, err := jsontypes.Marshal(v.PubKey)
		if err != nil {
			return nil, err
		}
		val.PubKey = pk
	}
	return json.Marshal(val)
}

func (v *Validator) UnmarshalJSON(data []byte) error {
	var val validatorJSON
	if err := json.Unmarshal(data, &val); err != nil {
		return err
	}
	if err := jsontypes.Unmarshal(val.PubKey, &v.PubKey); err != nil {
		return fmt.Errorf("pub_key: %w", err)
	}
	v.Address = val.Address
	v.VotingPower = val.VotingPower
	v.ProposerPriority = val.ProposerPriority
	return nil
}

// NewValidator returns a new validator with the given pubkey and voting power.
func NewValidator(pubKey crypto.PubKey, votingPower int64) *Validator {
	return &Validator{
		Address:          pubKey.Address(),
		PubKey:           pubKey,
		VotingPower:      votingPower,
		ProposerPriority: 0,
	}
}

// ValidateBasic performs basic validation.
func (v *Validator) ValidateBasic() error {
	if v == nil {
		return errors.New("nil validator")
	}
	if v.PubKey == nil {
		return errors.New("validator does not have a public key")
	}
	if _, err := ce.PubKeyToProto(v.PubKey); err != nil {
		return fmt.Errorf("validator public key: %w", err)
	}

	if v.VotingPower < 0 {
		return errors.New("validator has negative voting power")
	}
	if v.VotingPower > MaxTotalVotingPower {
		return fmt.Errorf("validator voting power %d exceeds the maximum %d", v.VotingPower, MaxTotalVotingPower)
	}

	if len(v.Address) != crypto.AddressSize {
		return fmt.Errorf("validator address is the wrong size: %v", v.Address)
	}
	if addr := v.PubKey.Address(); !bytes.Equal(v.Address, addr) {
		return fmt.Errorf("validator address %v is not derived from its public key (%v)", v.Address, addr)
	}

	return nil
}

// Copy creates a new copy of the validator.
// Panics if the validator is nil.
func (v *Validator) Copy() *Validator {
	vCopy := *v
	return &vCopy
}

// String returns a string representation of String.
//
// 1. address
// 2. public key
// 3. voting power
// 4. proposer priority
func (v *Validator) String() string {
	if v == nil {
		return "nil-Validator"
	}
	return fmt.Sprintf("Validator{%v %v VP:%v A:%v}",
		v.Address,
		v.PubKey,
		v.VotingPower,
		v.ProposerPriority)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler
func (v *Validator) MarshalZerologObject(e *zerolog.Event) {
	if v == nil {
		return
	}
	e.Str("address", v.Address.ShortString())
	e.Int64("voting_power", v.VotingPower)

	if v.PubKey != nil {
		e.Str("pub_key_type", v.PubKey.Type())
	}
}

// ValidatorListString returns a prettified validator list for logging purposes.
func ValidatorListString(vals []*Validator) string {
	chunks := make([]string, len(vals))
	for i, val := range vals {
		chunks[i] = fmt.Sprintf("%s:%d", val.Address, val.VotingPower)
	}

	return strings.Join(chunks, ",")
}

// Bytes computes the unique encoding of a validator with a given voting power.
// These are the bytes that gets hashed in consensus. It excludes address
// as its redundant with the pubkey. This also excludes ProposerPriority
// which changes every round.
func (v *Validator) Bytes() []byte {
	pk, err := ce.PubKeyToProto(v.PubKey)
	if err != nil {
		panic(err)
	}

	return protoio.NewWriter().
		Message(1, pk).
		Varint(2, v.VotingPower).
		Marshal()
}
