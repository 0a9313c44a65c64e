package gfinality

import (
	"context"
	"fmt"

	"github.com/gordian-engine/gfinality/gmerkle"
	lru "github.com/hashicorp/golang-lru/v2"
)

// ProofStore saves and retrieves finality proofs by receipt hash.
//
// The engine saves every proof it generates,
// and WaitForFinality consults the store before waiting.
// Implementations must be safe for concurrent use.
type ProofStore interface {
	SaveProof(ctx context.Context, receiptHash gmerkle.Hash, p FinalityProof) error

	// LoadProof returns an error wrapping ErrProofNotFound
	// when no proof is stored for receiptHash.
	LoadProof(ctx context.Context, receiptHash gmerkle.Hash) (FinalityProof, error)
}

// MemProofStore is a bounded in-memory [ProofStore]
// that evicts the least recently used proofs.
type MemProofStore struct {
	proofs *lru.Cache[gmerkle.Hash, FinalityProof]
}

var _ ProofStore = (*MemProofStore)(nil)

func NewMemProofStore(size int) (*MemProofStore, error) {
	c, err := lru.New[gmerkle.Hash, FinalityProof](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create proof cache: %w", err)
	}
	return &MemProofStore{proofs: c}, nil
}

func (s *MemProofStore) SaveProof(_ context.Context, receiptHash gmerkle.Hash, p FinalityProof) error {
	s.proofs.Add(receiptHash, p.Clone())
	return nil
}

func (s *MemProofStore) LoadProof(_ context.Context, receiptHash gmerkle.Hash) (FinalityProof, error) {
	p, ok := s.proofs.Get(receiptHash)
	if !ok {
		return FinalityProof{}, fmt.Errorf("%w: receipt %s", ErrProofNotFound, receiptHash)
	}
	return p.Clone(), nil
}

// Len returns the number of stored proofs.
func (s *MemProofStore) Len() int {
	return s.proofs.Len()
}
