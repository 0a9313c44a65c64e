package gleader

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/gordian-engine/gfinality/gvrf"
)

var (
	ErrStakeOverflow      = errors.New("total stake overflows uint64")
	ErrDuplicateCandidate = errors.New("duplicate candidate public key")
)

// Candidate is one entry in a Selector's roster.
type Candidate struct {
	PubKey gvrf.PublicKey
	Stake  uint64
}

// Selector maps VRF outputs onto a stake-weighted partition of its candidates.
type Selector struct {
	candidates []Candidate

	// cumulative[i] is the sum of stakes for candidates[0..i].
	cumulative []uint64

	byKey map[gvrf.PublicKey]int
}

// NewSelector returns a Selector over a copy of candidates, preserving their order.
// An empty roster, or one where every stake is zero, is allowed;
// such a Selector never selects a leader.
func NewSelector(candidates []Candidate) (*Selector, error) {
	s := &Selector{
		candidates: make([]Candidate, len(candidates)),
		cumulative: make([]uint64, len(candidates)),
		byKey:      make(map[gvrf.PublicKey]int, len(candidates)),
	}
	copy(s.candidates, candidates)

	var total uint64
	for i, c := range s.candidates {
		if prev, ok := s.byKey[c.PubKey]; ok {
			return nil, fmt.Errorf(
				"%w: %s at indices %d and %d", ErrDuplicateCandidate, c.PubKey, prev, i,
			)
		}
		s.byKey[c.PubKey] = i

		if c.Stake > math.MaxUint64-total {
			return nil, fmt.Errorf("%w (at candidate %d)", ErrStakeOverflow, i)
		}
		total += c.Stake
		s.cumulative[i] = total
	}

	return s, nil
}

// Len returns the number of candidates, including those with zero stake.
func (s *Selector) Len() int {
	return len(s.candidates)
}

// TotalStake returns the sum of all candidate stakes.
func (s *Selector) TotalStake() uint64 {
	if len(s.cumulative) == 0 {
		return 0
	}
	return s.cumulative[len(s.cumulative)-1]
}

// Candidates returns a copy of the roster in selection order.
func (s *Selector) Candidates() []Candidate {
	out := make([]Candidate, len(s.candidates))
	copy(out, s.candidates)
	return out
}

// Stake returns the stake recorded for pk, or zero if pk is not a candidate.
func (s *Selector) Stake(pk gvrf.PublicKey) uint64 {
	i, ok := s.byKey[pk]
	if !ok {
		return 0
	}
	return s.candidates[i].Stake
}

// Index returns the roster position of pk.
func (s *Selector) Index(pk gvrf.PublicKey) (int, bool) {
	i, ok := s.byKey[pk]
	return i, ok
}

// SelectLeader draws out.ToUniformUint64(TotalStake())
// and returns the first candidate whose cumulative stake exceeds the draw.
// Candidates with zero stake are never selected.
//
// The second result is false only when the roster is empty or the total stake is zero.
func (s *Selector) SelectLeader(out gvrf.Output) (gvrf.PublicKey, bool) {
	total := s.TotalStake()
	if total == 0 {
		return gvrf.PublicKey{}, false
	}

	draw := out.ToUniformUint64(total)
	i := sort.Search(len(s.cumulative), func(i int) bool {
		return s.cumulative[i] > draw
	})
	if i == len(s.cumulative) {
		panic(fmt.Errorf(
			"BUG: draw %d not below total stake %d", draw, total,
		))
	}

	return s.candidates[i].PubKey, true
}

// IsEligible reports whether out.ToProbability() < (stake(pk) / TotalStake()) * threshold.
// It is used where several proposers may self-select in the same round.
// A candidate with zero stake, or a key not in the roster, is never eligible.
func (s *Selector) IsEligible(pk gvrf.PublicKey, out gvrf.Output, threshold float64) bool {
	stake := s.Stake(pk)
	total := s.TotalStake()
	if stake == 0 || total == 0 {
		return false
	}

	proportion := float64(stake) / float64(total)
	return out.ToProbability() < proportion*threshold
}

// VerifyLeader reports whether proof and out are a valid VRF evaluation of input under pk,
// and whether that output selects pk as leader.
// This is the check a peer runs on an incoming proposal.
func (s *Selector) VerifyLeader(
	vrf gvrf.VerifiableRandomFunction,
	pk gvrf.PublicKey,
	input []byte,
	proof gvrf.Proof,
	out gvrf.Output,
) bool {
	if _, ok := s.byKey[pk]; !ok {
		return false
	}
	if !vrf.Verify(pk, input, proof, out) {
		return false
	}

	leader, ok := s.SelectLeader(out)
	return ok && leader == pk
}
