package light

import (
	"fmt"
	"time"

	tmbytes "github.com/tendermint/light-verifier/libs/bytes"
	"github.com/tendermint/light-verifier/types"
)

// ErrOldHeaderExpired means the old (trusted) header has expired according to
// the given trustingPeriod and current time. If so, the light client must be
// reset subjectively.
type ErrOldHeaderExpired struct {
	At  time.Time
	Now time.Time
}

func (e ErrOldHeaderExpired) Error() string {
	return fmt.Sprintf("old header has expired at %v (now: %v)", e.At, e.Now)
}

// ErrHeaderFromFuture means the new header is further ahead of the local
// clock than the allowed clock drift.
type ErrHeaderFromFuture struct {
	Time          time.Time
	Now           time.Time
	MaxClockDrift time.Duration
}

func (e ErrHeaderFromFuture) Error() string {
	return fmt.Sprintf("new header has a time from the future %v (now: %v; max clock drift: %v)",
		e.Time, e.Now, e.MaxClockDrift)
}

// ErrNonMonotonicTime means the new header is not newer than the trusted one.
type ErrNonMonotonicTime struct {
	Trusted   time.Time
	Untrusted time.Time
}

func (e ErrNonMonotonicTime) Error() string {
	return fmt.Sprintf("expected new header time %v to be after old header time %v", e.Untrusted, e.Trusted)
}

// ErrNonMonotonicHeight means the new header is not higher than the trusted
// one.
type ErrNonMonotonicHeight struct {
	Trusted   int64
	Untrusted int64
}

func (e ErrNonMonotonicHeight) Error() string {
	return fmt.Sprintf("expected new header height %d to be greater than one of old header %d",
		e.Untrusted, e.Trusted)
}

// ErrNewValSetCantBeTrusted means the new validator set cannot be trusted
// because < 1/3rd (+trustLevel+) of the old validator set has signed.
type ErrNewValSetCantBeTrusted struct {
	Reason types.ErrNotEnoughVotingPowerSigned
}

func (e ErrNewValSetCantBeTrusted) Error() string {
	return fmt.Sprintf("cant trust new val set: %v", e.Reason)
}

// ErrValidatorsChanged means an adjacent header is signed by a validator set
// other than the one the trusted header announced.
type ErrValidatorsChanged struct {
	TrustedNext tmbytes.HexBytes
	Untrusted   tmbytes.HexBytes
}

func (e ErrValidatorsChanged) Error() string {
	return fmt.Sprintf("expected old header next validators (%X) to match those from new header (%X)",
		e.TrustedNext, e.Untrusted)
}

// ErrInvalidHeader means the header either failed the basic validation or
// commit is not signed by 2/3+.
type ErrInvalidHeader struct {
	Reason error
}

func (e ErrInvalidHeader) Error() string {
	return fmt.Sprintf("invalid header: %v", e.Reason)
}

// Unwrap returns underlying reason.
func (e ErrInvalidHeader) Unwrap() error {
	return e.Reason
}

// ErrVerificationFailed means either sequential or skipping verification has
// failed to verify from header #1 to header #2 due to some reason.
type ErrVerificationFailed struct {
	From   int64
	To     int64
	Reason error
}

// Unwrap returns underlying reason.
func (e ErrVerificationFailed) Unwrap() error {
	return e.Reason
}

func (e ErrVerificationFailed) Error() string {
	return fmt.Sprintf(
		"verify from #%d to #%d failed: %v",
		e.From, e.To, e.Reason)
}
