package gblsminsig

import (
	"crypto/sha256"
	"fmt"
	"math"

	"github.com/bits-and-blooms/bitset"
	"github.com/gordian-engine/gfinality/gcrypto"
	"github.com/gordian-engine/gfinality/gcrypto/gblsminsig/internal/keytree"
	lru "github.com/hashicorp/golang-lru/v2"
	blst "github.com/supranational/blst/bindings/go"
)

// AggregationScheme satisfies [gcrypto.ThresholdSignatureScheme]
// by summing G1 signature points, and verifying against the sum
// of the G2 public keys of the signers.
//
// Decoding and validating a public key is expensive,
// and committees are stable for a whole epoch,
// so the scheme caches decoded keys and per-committee key trees.
type AggregationScheme struct {
	pubKeys *lru.Cache[string, PubKey]

	// Keyed by the SHA-256 over the concatenated compressed keys, in order.
	trees *lru.Cache[[sha256.Size]byte, *keytree.Tree]
}

// NewAggregationScheme returns an AggregationScheme
// whose decoded key cache holds up to keyCacheSize keys.
// A handful of key trees are kept, enough to cover epoch transitions.
func NewAggregationScheme(keyCacheSize int) (*AggregationScheme, error) {
	pubKeys, err := lru.New[string, PubKey](keyCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create public key cache: %w", err)
	}

	trees, err := lru.New[[sha256.Size]byte, *keytree.Tree](4)
	if err != nil {
		return nil, fmt.Errorf("failed to create key tree cache: %w", err)
	}

	return &AggregationScheme{
		pubKeys: pubKeys,
		trees:   trees,
	}, nil
}

// DecodePubKey decodes a compressed public key, consulting the cache first.
func (s *AggregationScheme) DecodePubKey(b []byte) (gcrypto.PubKey, error) {
	if k, ok := s.pubKeys.Get(string(b)); ok {
		return k, nil
	}

	k, err := NewPubKey(b)
	if err != nil {
		return nil, err
	}

	s.pubKeys.Add(string(b), k)
	return k, nil
}

// Aggregate sums the compressed signatures into one compressed signature.
// Each signature is decompressed and group-checked.
func (s *AggregationScheme) Aggregate(sigs [][]byte) ([]byte, error) {
	if len(sigs) == 0 {
		return nil, gcrypto.ErrNoSignatures
	}

	for i, sig := range sigs {
		if len(sig) != SignatureSize {
			return nil, fmt.Errorf(
				"%w: signature %d has length %d, expected %d",
				gcrypto.ErrInvalidSignature, i, len(sig), SignatureSize,
			)
		}
	}

	agg := new(blst.P1Aggregate)
	if !agg.AggregateCompressed(sigs, true) {
		return nil, fmt.Errorf("%w: failed to decompress or group-check signatures", gcrypto.ErrInvalidSignature)
	}

	return agg.ToAffine().Compress(), nil
}

// VerifyAggregate reports whether aggSig is the aggregate signature over msg
// of exactly the candidate keys set in signers.
func (s *AggregationScheme) VerifyAggregate(
	msg, aggSig []byte, candidates []gcrypto.PubKey, signers *bitset.BitSet,
) bool {
	n := len(candidates)
	if n == 0 || n > math.MaxUint16 || signers == nil {
		return false
	}

	if _, ok := signers.NextSet(uint(n)); ok {
		// Signer outside the candidate list.
		return false
	}

	tree, ok := s.tree(candidates)
	if !ok {
		return false
	}

	aggKey, count := tree.AggregateKey(signers)
	if count == 0 {
		return false
	}

	return PubKey(aggKey).Verify(msg, aggSig)
}

func (s *AggregationScheme) tree(candidates []gcrypto.PubKey) (*keytree.Tree, bool) {
	points := make([]blst.P2Affine, len(candidates))
	h := sha256.New()
	for i, c := range candidates {
		k, ok := c.(PubKey)
		if !ok {
			return nil, false
		}
		points[i] = blst.P2Affine(k)
		_, _ = h.Write(k.PubKeyBytes())
	}

	var id [sha256.Size]byte
	h.Sum(id[:0])

	if t, ok := s.trees.Get(id); ok {
		return t, true
	}

	t := keytree.New(func(yield func(blst.P2Affine) bool) {
		for _, p := range points {
			if !yield(p) {
				return
			}
		}
	}, len(points))

	s.trees.Add(id, t)
	return t, true
}
