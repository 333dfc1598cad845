package types

import (
	"fmt"

	tmmath "github.com/tendermint/light-verifier/libs/math"
)

// QuorumThreshold is the share of the total voting power a commit must
// exceed to be valid.
var QuorumThreshold = tmmath.Fraction{Numerator: 2, Denominator: 3}

// VotingPowerTally is the outcome of comparing the voting power behind a set
// of signatures with a threshold.
type VotingPowerTally struct {
	// Power of the validators whose signatures verified.
	Tallied int64 `json:"tallied,string"`
	// Total power of the validator set the signers were matched against.
	Total int64 `json:"total,string"`
	// The threshold the tally was compared with.
	TrustThreshold tmmath.Fraction `json:"trust_threshold"`
}

func (t VotingPowerTally) String() string {
	return fmt.Sprintf("tallied %d of %d (threshold %v)", t.Tallied, t.Total, t.TrustThreshold)
}

// MeetsThreshold reports whether Tallied/Total >= TrustThreshold. A set
// without voting power never meets a threshold.
func (t VotingPowerTally) MeetsThreshold() bool {
	tallied, total, ok := t.powers()
	return ok && t.TrustThreshold.MetBy(tallied, total)
}

// ExceedsThreshold reports whether Tallied/Total > TrustThreshold.
func (t VotingPowerTally) ExceedsThreshold() bool {
	tallied, total, ok := t.powers()
	return ok && t.TrustThreshold.ExceededBy(tallied, total)
}

func (t VotingPowerTally) powers() (tallied, total uint64, ok bool) {
	tallied, err := tmmath.SafeConvertUint64(t.Tallied)
	if err != nil {
		return 0, 0, false
	}
	total, err = tmmath.SafeConvertUint64(t.Total)
	if err != nil || total == 0 {
		return 0, 0, false
	}
	return tallied, total, true
}

// TallyVotingPower sums the voting power of the members of vals whose
// addresses appear in signers. Every address counts once, and addresses not
// in vals contribute nothing.
func TallyVotingPower(vals *ValidatorSet, signers []Address, threshold tmmath.Fraction) VotingPowerTally {
	tally := VotingPowerTally{
		Total:          vals.TotalVotingPower(),
		TrustThreshold: threshold,
	}
	if vals.IsNilOrEmpty() {
		return tally
	}

	byAddress := make(map[string]int64, vals.Size())
	for _, val := range vals.Validators {
		byAddress[string(val.Address)] = val.VotingPower
	}

	counted := make(map[string]struct{}, len(signers))
	for _, addr := range signers {
		key := string(addr)
		if _, ok := counted[key]; ok {
			continue
		}
		counted[key] = struct{}{}
		if power, ok := byAddress[key]; ok {
			tally.Tallied = tmmath.SafeAddClip(tally.Tallied, power)
		}
	}
	return tally
}
