package gfinality

import (
	"bytes"
	"fmt"
	"slices"
	"sync"

	"github.com/bits-and-blooms/bitset"
	"github.com/gordian-engine/gfinality/gcommittee"
	"github.com/gordian-engine/gfinality/gcrypto"
	"github.com/gordian-engine/gfinality/gmerkle"
	"github.com/gordian-engine/gfinality/gthreshold"
)

// VoteCollector accumulates finality votes for one block and round,
// checking each vote's signature as it arrives.
// Its Votes can be passed directly to the engine's generate methods.
//
// A VoteCollector is safe for concurrent use.
type VoteCollector struct {
	msg  []byte
	keys []gcrypto.PubKey

	mu      sync.Mutex
	signers *bitset.BitSet
	votes   []gthreshold.Vote
}

// NewVoteCollector returns a collector for votes on blockHash at height and round,
// by the validators in vals.
func (e *Engine) NewVoteCollector(
	blockHash gmerkle.Hash, height uint64, round uint32, vals []gcommittee.ValidatorInfo,
) (*VoteCollector, error) {
	if len(vals) == 0 {
		return nil, ErrEmptyValidatorSet
	}

	keys, err := e.decodeKeys(vals)
	if err != nil {
		return nil, err
	}

	return &VoteCollector{
		msg:     e.SignBytes(blockHash, height, round),
		keys:    keys,
		signers: bitset.New(uint(len(vals))),
	}, nil
}

// Add records v after checking its index and signature.
// It returns an error wrapping gthreshold.ErrValidatorIndexOutOfRange,
// gthreshold.ErrDuplicateSigner, or [ErrInvalidVoteSignature].
func (c *VoteCollector) Add(v gthreshold.Vote) error {
	if v.ValidatorIndex < 0 || v.ValidatorIndex >= len(c.keys) {
		return fmt.Errorf(
			"%w: index %d with %d validators",
			gthreshold.ErrValidatorIndexOutOfRange, v.ValidatorIndex, len(c.keys),
		)
	}

	u := uint(v.ValidatorIndex)
	c.mu.Lock()
	seen := c.signers.Test(u)
	c.mu.Unlock()
	if seen {
		return fmt.Errorf("%w: index %d", gthreshold.ErrDuplicateSigner, v.ValidatorIndex)
	}

	// Verify outside the lock; checking the signature is the expensive part.
	if !c.keys[v.ValidatorIndex].Verify(c.msg, v.Signature) {
		return fmt.Errorf("%w: index %d", ErrInvalidVoteSignature, v.ValidatorIndex)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another goroutine may have added the same validator meanwhile.
	if c.signers.Test(u) {
		return fmt.Errorf("%w: index %d", gthreshold.ErrDuplicateSigner, v.ValidatorIndex)
	}
	c.signers.Set(u)
	c.votes = append(c.votes, gthreshold.Vote{
		ValidatorIndex: v.ValidatorIndex,
		Signature:      bytes.Clone(v.Signature),
	})

	return nil
}

// Len returns the number of accepted votes.
func (c *VoteCollector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.votes)
}

// HasQuorum reports whether the accepted votes reach gthreshold.Quorum.
func (c *VoteCollector) HasQuorum() bool {
	return c.Len() >= gthreshold.Quorum(len(c.keys))
}

// Votes returns a copy of the accepted votes, ordered by validator index.
func (c *VoteCollector) Votes() []gthreshold.Vote {
	c.mu.Lock()
	out := make([]gthreshold.Vote, len(c.votes))
	for i, v := range c.votes {
		out[i] = gthreshold.Vote{ValidatorIndex: v.ValidatorIndex, Signature: bytes.Clone(v.Signature)}
	}
	c.mu.Unlock()

	slices.SortFunc(out, func(a, b gthreshold.Vote) int {
		return a.ValidatorIndex - b.ValidatorIndex
	})
	return out
}
