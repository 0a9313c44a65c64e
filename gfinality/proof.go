package gfinality

import (
	"bytes"
	"encoding/binary"
	"slices"
	"time"

	"github.com/gordian-engine/gfinality/gcommittee"
	"github.com/gordian-engine/gfinality/gmerkle"
	"github.com/gordian-engine/gfinality/gthreshold"
)

// FinalityProof certifies that the block at BlockHeight with BlockHash was committed in CommitRound,
// and that InclusionProof.LeafHash is one of its receipts.
//
// Proofs are immutable once produced.
// Any modification invalidates the signature or the inclusion proof.
type FinalityProof struct {
	BlockHeight uint64
	BlockHash   gmerkle.Hash
	CommitRound uint32

	AggregateSignature []byte

	// Bit i is set when ValidatorSet[i] contributed to AggregateSignature.
	ValidatorBitmap gthreshold.Bitmap

	ValidatorSet []gcommittee.ValidatorInfo

	InclusionProof gmerkle.Proof
}

// Clone returns a deep copy of p.
func (p FinalityProof) Clone() FinalityProof {
	p.AggregateSignature = bytes.Clone(p.AggregateSignature)
	p.ValidatorBitmap = slices.Clone(p.ValidatorBitmap)
	if p.ValidatorSet != nil {
		vals := make([]gcommittee.ValidatorInfo, len(p.ValidatorSet))
		for i, v := range p.ValidatorSet {
			vals[i] = v.Clone()
		}
		p.ValidatorSet = vals
	}
	p.InclusionProof = p.InclusionProof.Clone()
	return p
}

// BatchFinalityProof certifies every receipt of one block with a single signature.
// The embedded FinalityProof carries the inclusion proof of the first receipt.
type BatchFinalityProof struct {
	FinalityProof

	// One inclusion proof per receipt, in the order the receipts were given.
	InclusionProofs []gmerkle.Proof
}

// Len returns the number of receipts the batch covers.
func (b BatchFinalityProof) Len() int {
	return len(b.InclusionProofs)
}

// ProofAt returns a standalone FinalityProof for the i'th receipt of the batch,
// suitable for storing per receipt.
// It panics if i is out of range.
func (b BatchFinalityProof) ProofAt(i int) FinalityProof {
	p := b.FinalityProof.Clone()
	p.InclusionProof = b.InclusionProofs[i].Clone()
	return p
}

// FinalityVerification is the result of verifying one FinalityProof for one receipt.
// It is produced fresh by every verification call.
type FinalityVerification struct {
	// IsValid is the conjunction of ThresholdMet, InclusionValid, SignatureValid,
	// and CommitteeMatched.
	IsValid bool

	// Number of signers set in the bitmap.
	SignaturesVerified int
	TotalValidators    int

	ThresholdMet   bool
	InclusionValid bool
	SignatureValid bool

	// CommitteeMatched reports whether the proof's validator set
	// is the engine's current committee.
	CommitteeMatched bool

	VerifiedAt time.Time
}

// SignBytes returns the message validators sign to finalize a block:
//
//	domainTag || block_hash (32) || height (8, big endian) || round (4, big endian)
func SignBytes(domainTag []byte, blockHash gmerkle.Hash, height uint64, round uint32) []byte {
	out := make([]byte, 0, len(domainTag)+gmerkle.HashSize+8+4)
	out = append(out, domainTag...)
	out = append(out, blockHash[:]...)
	out = binary.BigEndian.AppendUint64(out, height)
	return binary.BigEndian.AppendUint32(out, round)
}

// CalculateProofSize returns the number of bytes p occupies
// when its fields are laid out back to back:
// fixed-width height, hash, and round, the signature and bitmap bytes,
// the canonical validator set encoding, and the inclusion proof encoding.
func CalculateProofSize(p FinalityProof) int {
	return 8 + gmerkle.HashSize + 4 +
		len(p.AggregateSignature) +
		len(p.ValidatorBitmap) +
		gcommittee.ValidatorsEncodedSize(p.ValidatorSet) +
		p.InclusionProof.EncodedSize()
}
