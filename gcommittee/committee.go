package gcommittee

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/gordian-engine/gfinality/gcrypto/gblsminsig"
	"github.com/gordian-engine/gfinality/gleader"
)

var (
	ErrEmptyCommittee  = errors.New("committee has no validators")
	ErrEmptyNodeID     = errors.New("empty node ID")
	ErrDuplicateNodeID = errors.New("duplicate node ID")
	ErrEmptyBLSPubKey  = errors.New("empty BLS public key")

	ErrPossessionCount = errors.New("proof of possession count does not match validators")
)

// Committee is the validator roster for one epoch.
// All methods are safe for concurrent use.
type Committee struct {
	epoch      uint64
	validators []ValidatorInfo
	byNodeID   map[string]int

	selector *gleader.Selector
	hash     [sha256.Size]byte
}

// NewCommittee validates vals and returns a snapshot over a deep copy of them.
// The order of vals is the validator index order used by vote bitmaps
// and the candidate order used for leader selection.
func NewCommittee(epoch uint64, vals []ValidatorInfo) (*Committee, error) {
	if len(vals) == 0 {
		return nil, ErrEmptyCommittee
	}

	c := &Committee{
		epoch:      epoch,
		validators: make([]ValidatorInfo, len(vals)),
		byNodeID:   make(map[string]int, len(vals)),
	}

	candidates := make([]gleader.Candidate, len(vals))
	for i, v := range vals {
		if v.NodeID == "" {
			return nil, fmt.Errorf("validator %d: %w", i, ErrEmptyNodeID)
		}
		if prev, ok := c.byNodeID[v.NodeID]; ok {
			return nil, fmt.Errorf(
				"%w: %q at indices %d and %d", ErrDuplicateNodeID, v.NodeID, prev, i,
			)
		}
		if len(v.BLSPubKey) == 0 {
			return nil, fmt.Errorf("validator %d (%s): %w", i, v.NodeID, ErrEmptyBLSPubKey)
		}

		c.byNodeID[v.NodeID] = i
		c.validators[i] = v.Clone()
		candidates[i] = gleader.Candidate{PubKey: v.VRFPubKey, Stake: v.Stake}
	}

	sel, err := gleader.NewSelector(candidates)
	if err != nil {
		return nil, fmt.Errorf("building leader selector: %w", err)
	}
	c.selector = sel
	c.hash = HashValidators(c.validators)

	return c, nil
}

// NewRegisteredCommittee is [NewCommittee] for validators
// whose BLS keys arrive with proofs of possession,
// possession[i] being the proof for vals[i].
// Every proof must pass [gblsminsig.VerifyPossession].
//
// Committees that will certify finality must be built this way:
// aggregate verification is only sound over keys with proven possession.
func NewRegisteredCommittee(epoch uint64, vals []ValidatorInfo, possession [][]byte) (*Committee, error) {
	if len(possession) != len(vals) {
		return nil, fmt.Errorf(
			"%w: %d proofs for %d validators", ErrPossessionCount, len(possession), len(vals),
		)
	}

	for i, v := range vals {
		if err := gblsminsig.VerifyPossession(v.BLSPubKey, possession[i]); err != nil {
			return nil, fmt.Errorf("validator %d (%s): %w", i, v.NodeID, err)
		}
	}

	return NewCommittee(epoch, vals)
}

func (c *Committee) Epoch() uint64 { return c.epoch }

func (c *Committee) Len() int { return len(c.validators) }

// Validators returns a deep copy of the roster.
func (c *Committee) Validators() []ValidatorInfo {
	out := make([]ValidatorInfo, len(c.validators))
	for i, v := range c.validators {
		out[i] = v.Clone()
	}
	return out
}

// Validator returns a copy of the validator at index i.
func (c *Committee) Validator(i int) (ValidatorInfo, bool) {
	if i < 0 || i >= len(c.validators) {
		return ValidatorInfo{}, false
	}
	return c.validators[i].Clone(), true
}

// IndexOf returns the index of the validator with the given node ID.
func (c *Committee) IndexOf(nodeID string) (int, bool) {
	i, ok := c.byNodeID[nodeID]
	return i, ok
}

// Selector returns the leader selector built from this roster.
func (c *Committee) Selector() *gleader.Selector { return c.selector }

// Hash is [HashValidators] over the roster.
func (c *Committee) Hash() [sha256.Size]byte { return c.hash }

// TotalStake is the sum of validator stakes.
func (c *Committee) TotalStake() uint64 { return c.selector.TotalStake() }
