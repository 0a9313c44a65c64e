package gcrypto

import (
	"errors"

	"github.com/bits-and-blooms/bitset"
)

var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidPubKey    = errors.New("invalid public key")
	ErrNoSignatures     = errors.New("no signatures to aggregate")
)

// ThresholdSignatureScheme combines per-validator signatures over a common message
// into one value, and later checks that value against the signing subset
// of a candidate key list.
//
// Implementations must be safe for concurrent use;
// the finality engine calls them from many goroutines at once.
type ThresholdSignatureScheme interface {
	// DecodePubKey parses a serialized public key,
	// returning an error wrapping ErrInvalidPubKey if the bytes are malformed.
	DecodePubKey(b []byte) (PubKey, error)

	// Aggregate combines the given signatures into a single signature.
	// Every input signature is expected to sign the same message.
	// Aggregation does not verify the individual signatures.
	Aggregate(sigs [][]byte) ([]byte, error)

	// VerifyAggregate reports whether aggSig is a valid aggregate signature over msg
	// by exactly the candidate keys whose indices are set in signers.
	//
	// A signer bit beyond len(candidates) makes the result false.
	VerifyAggregate(msg, aggSig []byte, candidates []PubKey, signers *bitset.BitSet) bool
}
