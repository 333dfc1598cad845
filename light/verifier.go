package light

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tendermint/light-verifier/libs/log"
	tmmath "github.com/tendermint/light-verifier/libs/math"
	"github.com/tendermint/light-verifier/types"
)

// Verifier runs single light client verification steps. It holds no state
// between calls and is safe for concurrent use.
type Verifier struct {
	logger  log.Logger
	metrics *Metrics
	sigs    types.SignatureVerifier
}

// VerifierOption sets an optional parameter on the Verifier.
type VerifierOption func(*Verifier)

// Logger option can be used to set a logger for the verifier.
func Logger(l log.Logger) VerifierOption {
	return func(v *Verifier) {
		v.logger = l
	}
}

// WithMetrics sets the metrics the verifier reports to.
func WithMetrics(m *Metrics) VerifierOption {
	return func(v *Verifier) {
		v.metrics = m
	}
}

// SignatureConcurrency bounds the number of commit signatures checked in
// parallel. Zero means one per CPU.
func SignatureConcurrency(n int) VerifierOption {
	return func(v *Verifier) {
		v.sigs.Concurrency = n
	}
}

// NewVerifier returns a Verifier with a nop logger and nop metrics unless
// options say otherwise.
func NewVerifier(options ...VerifierOption) *Verifier {
	v := &Verifier{
		logger:  log.NewNopLogger(),
		metrics: NopMetrics(),
	}
	for _, o := range options {
		o(v)
	}
	return v
}

var defaultVerifier = NewVerifier()

// Verify decides whether untrusted can be trusted given trusted, using a
// Verifier without logging or metrics. See (*Verifier).Verify.
func Verify(
	ctx context.Context,
	untrusted, trusted *types.LightBlock,
	opts Options,
	now time.Time,
) (Verdict, error) {
	return defaultVerifier.Verify(ctx, untrusted, trusted, opts, now)
}

// Verify decides whether untrusted can be trusted given trusted. It checks,
// stopping at the first failure:
//
//	a) trusted can still be trusted (Expired), untrusted is newer in time
//	(NonMonotonic) and not from the future (FutureHeader)
//	b) both headers are well formed and the untrusted commit signs the
//	untrusted header (SchemaError)
//	c) the validator sets are the ones the headers commit to
//	(ValidatorSetMismatch)
//	d) every vote for the untrusted block verifies and they carry more than
//	2/3 of the untrusted validator set (UnknownSigner, DuplicateSignature,
//	SignatureInvalid, InsufficientCommitPower)
//	e) untrusted is higher (NonMonotonic) and either adjacent and signed by
//	the validators trusted announced (ValidatorSetMismatch), or signed by at
//	least the trust threshold of trusted's next validators
//	(InsufficientTrustOverlap).
//
// The error is only set when ctx is done; the Verdict is then meaningless.
func (v *Verifier) Verify(
	ctx context.Context,
	untrusted, trusted *types.LightBlock,
	opts Options,
	now time.Time,
) (Verdict, error) {
	start := time.Now()

	cv, err := v.verify(ctx, untrusted, trusted, opts, now)
	if cerr := ctx.Err(); cerr != nil {
		return Verdict{}, cerr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Verdict{}, err
	}

	verdict := VerdictFromError(err)

	v.metrics.VerificationDuration.Observe(time.Since(start).Seconds())
	v.metrics.Verifications.With("verdict", verdict.Kind.String()).Add(1)
	if cv != nil {
		v.metrics.SignaturesChecked.Add(float64(cv.SignaturesChecked))
		if cv.BatchFallback {
			v.metrics.BatchFallbacks.Add(1)
		}
	}

	if err != nil {
		err = ErrVerificationFailed{From: heightOf(trusted), To: heightOf(untrusted), Reason: err}
	}
	v.logger.Info("verified light block",
		"height", heightOf(untrusted),
		"trusted_height", heightOf(trusted),
		"verdict", verdict.Kind,
		"provider", providerOf(untrusted),
		"err", err)

	return verdict, nil
}

// VerifyAdjacent verifies untrusted, which must directly follow trusted.
// It runs the checks of (*Verifier).Verify and returns the first failure as
// an error.
func VerifyAdjacent(
	ctx context.Context,
	untrusted, trusted *types.LightBlock, // height=X+1, height=X
	opts Options,
	now time.Time,
) error {
	if err := checkPresent(untrusted, trusted); err != nil {
		return err
	}
	if untrusted.Height != trusted.Height+1 {
		return errors.New("headers must be adjacent in height")
	}
	_, err := defaultVerifier.verify(ctx, untrusted, trusted, opts, now)
	return err
}

// VerifyNonAdjacent verifies untrusted, which must be at least two heights
// above trusted. It runs the checks of (*Verifier).Verify and returns the
// first failure as an error.
func VerifyNonAdjacent(
	ctx context.Context,
	untrusted, trusted *types.LightBlock, // height=Y, height=X
	opts Options,
	now time.Time,
) error {
	if err := checkPresent(untrusted, trusted); err != nil {
		return err
	}
	if untrusted.Height == trusted.Height+1 {
		return errors.New("headers must be non adjacent in height")
	}
	_, err := defaultVerifier.verify(ctx, untrusted, trusted, opts, now)
	return err
}

func (v *Verifier) verify(
	ctx context.Context,
	untrusted, trusted *types.LightBlock,
	opts Options,
	now time.Time,
) (*types.CommitVerification, error) {
	if err := checkPresent(untrusted, trusted); err != nil {
		return nil, err
	}
	if err := opts.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	logger := v.logger.With("height", untrusted.Height, "trusted_height", trusted.Height)

	logger.Debug("checking time bounds", "header_time", untrusted.Time, "trusted_time", trusted.Time, "now", now)
	if err := verifyTime(untrusted.Header, trusted.Header, opts, now); err != nil {
		return nil, err
	}

	logger.Debug("validating headers")
	if err := verifyNewLightBlock(untrusted, trusted); err != nil {
		return nil, err
	}

	_, proposer := untrusted.ValidatorSet.GetByAddress(untrusted.ProposerAddress)
	logger.Debug("verifying commit",
		"signatures", len(untrusted.Commit.Signatures),
		"validators", types.ValidatorListString(untrusted.ValidatorSet.Validators),
		"proposer", proposer)
	cv, err := v.sigs.VerifyCommitLight(ctx, untrusted.ChainID, untrusted.ValidatorSet,
		untrusted.Commit.BlockID, untrusted.Height, untrusted.Commit)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return cv, ctxErr
		}
		return cv, ErrInvalidHeader{err}
	}

	if untrusted.Height <= trusted.Height {
		return cv, ErrNonMonotonicHeight{Trusted: trusted.Height, Untrusted: untrusted.Height}
	}

	if untrusted.Height == trusted.Height+1 {
		logger.Debug("adjacent header, comparing validator sets")
		return cv, verifyAdjacentValidators(untrusted.Header, trusted.Header)
	}

	logger.Debug("non-adjacent header, checking trust overlap", "trust_level", opts.TrustThreshold)
	return cv, verifyTrustOverlap(cv, trusted, opts.TrustThreshold)
}

func checkPresent(untrusted, trusted *types.LightBlock) error {
	for _, b := range []struct {
		name  string
		block *types.LightBlock
	}{{"untrusted", untrusted}, {"trusted", trusted}} {
		if b.block == nil {
			return ErrInvalidHeader{fmt.Errorf("missing %s light block", b.name)}
		}
		if b.block.SignedHeader == nil || b.block.Header == nil {
			return ErrInvalidHeader{fmt.Errorf("%s light block has no header", b.name)}
		}
	}
	return nil
}

// verifyTime checks trusted has not expired and that untrusted is after
// trusted but not after now+MaxClockDrift.
func verifyTime(untrusted, trusted *types.Header, opts Options, now time.Time) error {
	if HeaderExpired(trusted, opts.TrustingPeriod, now) {
		return ErrOldHeaderExpired{trusted.Time.Add(opts.TrustingPeriod), now}
	}

	if !untrusted.Time.After(trusted.Time) {
		return ErrNonMonotonicTime{Trusted: trusted.Time, Untrusted: untrusted.Time}
	}

	if untrusted.Time.After(now.Add(opts.MaxClockDrift)) {
		return ErrHeaderFromFuture{Time: untrusted.Time, Now: now, MaxClockDrift: opts.MaxClockDrift}
	}

	return nil
}

// verifyNewLightBlock validates both blocks and their validator sets.
func verifyNewLightBlock(untrusted, trusted *types.LightBlock) error {
	if err := trusted.Header.ValidateBasic(); err != nil {
		return ErrInvalidHeader{fmt.Errorf("trusted header: %w", err)}
	}

	if err := untrusted.ValidateBasic(trusted.ChainID); err != nil {
		return ErrInvalidHeader{fmt.Errorf("untrusted.ValidateBasic failed: %w", err)}
	}

	if trusted.NextValidatorSet != nil {
		if err := trusted.NextValidatorSet.ValidateBasic(); err != nil {
			return ErrInvalidHeader{fmt.Errorf("trusted next validator set: %w", err)}
		}
	}

	if err := untrusted.ValidateValidatorSets(); err != nil {
		return err
	}

	if trusted.NextValidatorSet != nil {
		if hash := trusted.NextValidatorSet.Hash(); !bytes.Equal(trusted.NextValidatorsHash, hash) {
			return types.ErrValidatorsHashMismatch{
				Field:    "next_validators_hash",
				Height:   trusted.Height,
				Expected: trusted.NextValidatorsHash,
				Actual:   hash,
			}
		}
	}

	return nil
}

// verifyAdjacentValidators makes sure the adjacent header is signed by the
// validators the trusted header announced.
func verifyAdjacentValidators(untrusted, trusted *types.Header) error {
	if !bytes.Equal(untrusted.ValidatorsHash, trusted.NextValidatorsHash) {
		return ErrValidatorsChanged{
			TrustedNext: trusted.NextValidatorsHash,
			Untrusted:   untrusted.ValidatorsHash,
		}
	}
	return nil
}

// verifyTrustOverlap ensures that +`trustLevel` (default 1/3) or more of the
// trusted next validators have a verified signature in the untrusted commit.
func verifyTrustOverlap(cv *types.CommitVerification, trusted *types.LightBlock, trustLevel tmmath.Fraction) error {
	if trusted.NextValidatorSet == nil {
		return ErrInvalidHeader{errors.New("trusted light block has no next validator set")}
	}

	tally := types.TallyVotingPower(trusted.NextValidatorSet, cv.Signers, trustLevel)
	if !tally.MeetsThreshold() {
		return ErrNewValSetCantBeTrusted{types.ErrNotEnoughVotingPowerSigned{Tally: tally}}
	}
	return nil
}

// ValidateTrustLevel checks that trustLevel is within the allowed range [1/3,
// 1]. If not, it returns an error. 1/3 is the minimum amount of trust needed
// which does not break the security model.
func ValidateTrustLevel(lvl tmmath.Fraction) error {
	if lvl.Denominator == 0 ||
		lvl.Cmp(tmmath.Fraction{Numerator: 1, Denominator: 3}) < 0 || // < 1/3
		lvl.Numerator > lvl.Denominator { // > 1
		return fmt.Errorf("trustLevel must be within [1/3, 1], given %v", lvl)
	}
	return nil
}

// HeaderExpired return true if the given header expired. A header is still
// trusted at exactly trustingPeriod after its time.
func HeaderExpired(h *types.Header, trustingPeriod time.Duration, now time.Time) bool {
	expirationTime := h.Time.Add(trustingPeriod)
	return now.After(expirationTime)
}

// VerifyBackwards verifies an untrusted header with a height one less than
// that of an adjacent trusted header. It ensures that:
//
//	a) untrusted header is valid
//	b) untrusted header has a time before the trusted header
//	c) that the LastBlockID hash of the trusted header is the same as the hash
//	of the untrusted header
//
// For any of these cases ErrInvalidHeader is returned.
func VerifyBackwards(untrustedHeader, trustedHeader *types.Header) error {
	if err := untrustedHeader.ValidateBasic(); err != nil {
		return ErrInvalidHeader{err}
	}

	if untrustedHeader.ChainID != trustedHeader.ChainID {
		return ErrInvalidHeader{errors.New("header belongs to another chain")}
	}

	if !untrustedHeader.Time.Before(trustedHeader.Time) {
		return ErrInvalidHeader{
			fmt.Errorf("expected older header time %v to be before new header time %v",
				untrustedHeader.Time,
				trustedHeader.Time)}
	}

	if !bytes.Equal(untrustedHeader.Hash(), trustedHeader.LastBlockID.Hash) {
		return ErrInvalidHeader{
			fmt.Errorf("older header hash %X does not match trusted header's last block %X",
				untrustedHeader.Hash(),
				trustedHeader.LastBlockID.Hash)}
	}

	return nil
}

func heightOf(lb *types.LightBlock) int64 {
	if lb == nil || lb.SignedHeader == nil || lb.Header == nil {
		return 0
	}
	return lb.Height
}

func providerOf(lb *types.LightBlock) string {
	if lb == nil {
		return ""
	}
	return lb.Provider
}
