package types

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/tendermint/light-verifier/crypto"
	"github.com/tendermint/light-verifier/crypto/batch"
)

// CommitVerification describes a commit whose signatures all verified.
type CommitVerification struct {
	// Addresses of the validators with a verified vote for the block, in
	// commit order.
	Signers []Address
	// Power of Signers against the commit's own validator set.
	Tally VotingPowerTally
	// Number of signatures checked.
	SignaturesChecked int
	// Set when batch verification failed and every signature was re-checked
	// on its own.
	BatchFallback bool
}

// SignatureVerifier verifies the signatures of a commit. The zero value uses
// one worker per CPU.
type SignatureVerifier struct {
	// Concurrency bounds the number of signatures verified in parallel when
	// batch verification is unavailable or has failed.
	Concurrency int
}

// VerifyCommitLight verifies +2/3 of the set had signed the given commit,
// using the default SignatureVerifier.
func VerifyCommitLight(ctx context.Context, chainID string, vals *ValidatorSet, blockID BlockID,
	height int64, commit *Commit) (*CommitVerification, error) {
	return SignatureVerifier{}.VerifyCommitLight(ctx, chainID, vals, blockID, height, commit)
}

// VerifyCommitLight verifies +2/3 of the set had signed the given commit.
//
// Every vote for the block is checked, not just enough of them to reach the
// quorum. Votes are matched to validators by address; a vote from an address
// outside the set, or a second vote from the same validator, fails the
// commit. Absent and nil votes contribute nothing.
//
// When the error is ErrNotEnoughVotingPowerSigned the returned
// CommitVerification is still filled in.
func (sv SignatureVerifier) VerifyCommitLight(ctx context.Context, chainID string, vals *ValidatorSet,
	blockID BlockID, height int64, commit *Commit) (*CommitVerification, error) {
	if vals == nil {
		return nil, errors.New("nil validator set")
	}
	if commit == nil {
		return nil, errors.New("nil commit")
	}

	if vals.Size() != len(commit.Signatures) {
		return nil, NewErrInvalidCommitSignatures(vals.Size(), len(commit.Signatures))
	}

	// Validate Height and BlockID.
	if height != commit.Height {
		return nil, NewErrInvalidCommitHeight(height, commit.Height)
	}
	if !blockID.Equals(commit.BlockID) {
		return nil, fmt.Errorf("invalid commit -- wrong block ID: want %v, got %v",
			blockID, commit.BlockID)
	}

	entries, err := resolveSigners(chainID, vals, commit)
	if err != nil {
		return nil, err
	}

	cv := &CommitVerification{SignaturesChecked: len(entries)}
	valid, fallback, err := sv.verifyEntries(ctx, entries)
	if err != nil {
		return nil, err
	}
	cv.BatchFallback = fallback

	for i, e := range entries {
		if !valid[i] {
			return nil, ErrInvalidSignature{Index: e.slot, Address: e.val.Address, Signature: e.sig}
		}
		cv.Signers = append(cv.Signers, e.val.Address)
	}

	cv.Tally = TallyVotingPower(vals, cv.Signers, QuorumThreshold)
	if !cv.Tally.ExceedsThreshold() {
		return cv, ErrNotEnoughVotingPowerSigned{Tally: cv.Tally}
	}
	return cv, nil
}

// sigEntry is a vote for the block matched to its validator.
type sigEntry struct {
	slot int
	val  *Validator
	msg  []byte
	sig  []byte
}

// resolveSigners matches every vote for the block with a member of vals and
// builds the bytes it must sign. Slots are visited in order, so the reported
// slot is always the lowest offending one.
func resolveSigners(chainID string, vals *ValidatorSet, commit *Commit) ([]sigEntry, error) {
	byAddress := make(map[string]int, vals.Size())
	for idx, val := range vals.Validators {
		byAddress[string(val.Address)] = idx
	}

	var (
		entries = make([]sigEntry, 0, len(commit.Signatures))
		seen    = make(map[int]int, len(commit.Signatures)) // validator index -> commit index
	)
	for idx, commitSig := range commit.Signatures {
		// No need to verify absent or nil votes.
		if !commitSig.ForBlock() {
			continue
		}

		valIdx, ok := byAddress[string(commitSig.ValidatorAddress)]
		if !ok {
			return nil, ErrUnknownSigner{Index: idx, Address: commitSig.ValidatorAddress}
		}
		if first, ok := seen[valIdx]; ok {
			return nil, ErrDuplicateSignature{Address: commitSig.ValidatorAddress, First: first, Second: idx}
		}
		seen[valIdx] = idx

		voteSignBytes, err := commit.VoteSignBytes(chainID, int32(idx))
		if err != nil {
			return nil, fmt.Errorf("sign bytes for signature #%d: %w", idx, err)
		}
		_, val := vals.GetByIndex(int32(valIdx))
		entries = append(entries, sigEntry{
			slot: idx,
			val:  val,
			msg:  voteSignBytes,
			sig:  commitSig.Signature,
		})
	}
	return entries, nil
}

// verifyEntries reports the validity of every entry. It tries a single batch
// first and falls back to checking each signature on its own when the batch
// fails or a key type cannot be batched.
func (sv SignatureVerifier) verifyEntries(ctx context.Context, entries []sigEntry) (valid []bool, fallback bool, err error) {
	if len(entries) > 1 {
		if ok, tried := verifyBatch(entries); ok {
			valid = make([]bool, len(entries))
			for i := range valid {
				valid[i] = true
			}
			return valid, false, nil
		} else if tried {
			fallback = true
		}
	}

	valid, err = sv.verifySingle(ctx, entries)
	return valid, fallback, err
}

// verifyBatch returns tried == false when the entries cannot be batched.
func verifyBatch(entries []sigEntry) (ok, tried bool) {
	var bv crypto.BatchVerifier
	for _, e := range entries {
		if !batch.SupportsBatchVerifier(e.val.PubKey) {
			return false, false
		}
		if bv == nil {
			bv, _ = batch.CreateBatchVerifier(e.val.PubKey)
		}
		// A malformed signature cannot be added; the single pass will
		// report it.
		if err := bv.Add(e.val.PubKey, e.msg, e.sig); err != nil {
			return false, true
		}
	}
	ok, _ = bv.Verify()
	return ok, true
}

func (sv SignatureVerifier) verifySingle(ctx context.Context, entries []sigEntry) ([]bool, error) {
	valid := make([]bool, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sv.concurrency())
	for i := range entries {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			e := entries[i]
			valid[i] = e.val.PubKey.VerifySignature(e.msg, e.sig)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// A cancellation after the last check still discards the result.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return valid, nil
}

func (sv SignatureVerifier) concurrency() int {
	if sv.Concurrency > 0 {
		return sv.Concurrency
	}
	return runtime.NumCPU()
}
