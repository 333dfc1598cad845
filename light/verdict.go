package light

import (
	"errors"
	"fmt"

	"github.com/tendermint/light-verifier/types"
)

// Kind is the outcome of a verification.
type Kind int

const (
	Success Kind = iota
	SchemaError
	Expired
	NonMonotonic
	FutureHeader
	UnknownSigner
	DuplicateSignature
	SignatureInvalid
	InsufficientCommitPower
	InsufficientTrustOverlap
	ValidatorSetMismatch
)

var kindNames = map[Kind]string{
	Success:                  "Success",
	SchemaError:              "SchemaError",
	Expired:                  "Expired",
	NonMonotonic:             "NonMonotonic",
	FutureHeader:             "FutureHeader",
	UnknownSigner:            "UnknownSigner",
	DuplicateSignature:       "DuplicateSignature",
	SignatureInvalid:         "SignatureInvalid",
	InsufficientCommitPower:  "InsufficientCommitPower",
	InsufficientTrustOverlap: "InsufficientTrustOverlap",
	ValidatorSetMismatch:     "ValidatorSetMismatch",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("unknown verdict kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown verdict kind %q", text)
}

// Verdict is the terminal result of a single verification step.
type Verdict struct {
	Kind Kind `json:"kind"`
	// Reason describes the first failed check. Empty on success.
	Reason string `json:"reason,omitempty"`
	// Tally is set for verdicts decided by voting power.
	Tally *types.VotingPowerTally `json:"tally,omitempty"`
}

// OK reports whether the untrusted block can be trusted.
func (v Verdict) OK() bool {
	return v.Kind == Success
}

func (v Verdict) String() string {
	if v.Reason == "" {
		return v.Kind.String()
	}
	return fmt.Sprintf("%v: %s", v.Kind, v.Reason)
}

// VerdictFromError maps the error returned by a verification function onto a
// Verdict. A nil error is Success; errors of no known kind are SchemaError.
func VerdictFromError(err error) Verdict {
	if err == nil {
		return Verdict{Kind: Success}
	}

	v := Verdict{Kind: SchemaError, Reason: err.Error()}

	var (
		expired      ErrOldHeaderExpired
		future       ErrHeaderFromFuture
		oldTime      ErrNonMonotonicTime
		oldHeight    ErrNonMonotonicHeight
		unknown      types.ErrUnknownSigner
		duplicate    types.ErrDuplicateSignature
		badSignature types.ErrInvalidSignature
		untrusted    ErrNewValSetCantBeTrusted
		notEnough    types.ErrNotEnoughVotingPowerSigned
		hashMismatch types.ErrValidatorsHashMismatch
		changed      ErrValidatorsChanged
	)
	switch {
	case errors.As(err, &expired):
		v.Kind = Expired
	case errors.As(err, &oldTime), errors.As(err, &oldHeight):
		v.Kind = NonMonotonic
	case errors.As(err, &future):
		v.Kind = FutureHeader
	case errors.As(err, &unknown):
		v.Kind = UnknownSigner
	case errors.As(err, &duplicate):
		v.Kind = DuplicateSignature
	case errors.As(err, &badSignature):
		v.Kind = SignatureInvalid
	case errors.As(err, &untrusted):
		v.Kind = InsufficientTrustOverlap
		tally := untrusted.Reason.Tally
		v.Tally = &tally
	case errors.As(err, &notEnough):
		v.Kind = InsufficientCommitPower
		tally := notEnough.Tally
		v.Tally = &tally
	case errors.As(err, &hashMismatch), errors.As(err, &changed):
		v.Kind = ValidatorSetMismatch
	}
	return v
}
