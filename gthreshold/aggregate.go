package gthreshold

import (
	"errors"
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"github.com/gordian-engine/gfinality/gcrypto"
)

var (
	ErrEmptySignatureSet        = errors.New("empty signature set")
	ErrValidatorIndexOutOfRange = errors.New("validator index out of range")
	ErrDuplicateSigner          = errors.New("duplicate signer")
)

// Vote is one validator's signature over the common finality message.
type Vote struct {
	ValidatorIndex int
	Signature      []byte
}

// Quorum returns the minimum number of distinct signers out of n validators
// for a byzantine supermajority: floor(2n/3) + 1.
func Quorum(n int) int {
	return 2*n/3 + 1
}

// Signers validates the structure of votes against a roster of total validators
// and returns the set of voting indices.
// It performs no cryptographic work.
//
// Duplicate indices are rejected so that one validator is never counted twice.
func Signers(votes []Vote, total int) (*bitset.BitSet, error) {
	if len(votes) == 0 {
		return nil, ErrEmptySignatureSet
	}

	signers := bitset.New(uint(total))
	for _, v := range votes {
		if v.ValidatorIndex < 0 || v.ValidatorIndex >= total {
			return nil, fmt.Errorf(
				"%w: index %d with %d validators",
				ErrValidatorIndexOutOfRange, v.ValidatorIndex, total,
			)
		}

		u := uint(v.ValidatorIndex)
		if signers.Test(u) {
			return nil, fmt.Errorf("%w: index %d", ErrDuplicateSigner, v.ValidatorIndex)
		}
		signers.Set(u)
	}

	return signers, nil
}

// Aggregate combines the votes into one aggregate signature
// and a bitmap of ceil(total/8) bytes with a bit set for every voting index.
//
// Aggregate does not check the quorum and does not verify individual signatures;
// callers verify the aggregate once it is assembled.
// The votes must pass [Signers].
func Aggregate(
	scheme gcrypto.ThresholdSignatureScheme, votes []Vote, total int,
) ([]byte, Bitmap, error) {
	signers, err := Signers(votes, total)
	if err != nil {
		return nil, nil, err
	}

	sigs := make([][]byte, len(votes))
	for i, v := range votes {
		sigs[i] = v.Signature
	}

	agg, err := scheme.Aggregate(sigs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to aggregate signatures: %w", err)
	}

	return agg, BitmapFromBitSet(signers, total), nil
}

// Verify reports whether agg is a valid aggregate over msg
// by exactly the validators set in bitmap, out of candidates.
// Bitmaps with the wrong length or with bits beyond the candidates are rejected.
func Verify(
	scheme gcrypto.ThresholdSignatureScheme,
	msg, agg []byte,
	bitmap Bitmap,
	candidates []gcrypto.PubKey,
) bool {
	n := len(candidates)
	if len(bitmap) != (n+7)/8 || bitmap.HasBitsBeyond(n) {
		return false
	}

	return scheme.VerifyAggregate(msg, agg, candidates, bitmap.BitSet())
}
