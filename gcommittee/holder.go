package gcommittee

import (
	"errors"
	"fmt"
	"sync/atomic"
)

var ErrStaleEpoch = errors.New("committee epoch does not advance")

// Holder publishes the current Committee.
// Load may be called from any goroutine.
// Swap is intended for the single goroutine handling epoch transitions,
// but concurrent Swap calls are still safe: at most one wins for a given epoch.
type Holder struct {
	cur atomic.Pointer[Committee]
}

// NewHolder returns a Holder whose current committee is initial.
// It panics if initial is nil.
func NewHolder(initial *Committee) *Holder {
	if initial == nil {
		panic(errors.New("BUG: NewHolder called with nil committee"))
	}

	h := new(Holder)
	h.cur.Store(initial)
	return h
}

// Load returns the current committee.
func (h *Holder) Load() *Committee {
	return h.cur.Load()
}

// Swap replaces the current committee with next and returns the previous one.
// It fails with [ErrStaleEpoch] unless next.Epoch() is greater than the current epoch.
func (h *Holder) Swap(next *Committee) (*Committee, error) {
	if next == nil {
		panic(errors.New("BUG: Holder.Swap called with nil committee"))
	}

	for {
		prev := h.cur.Load()
		if next.Epoch() <= prev.Epoch() {
			return nil, fmt.Errorf(
				"%w: current %d, next %d", ErrStaleEpoch, prev.Epoch(), next.Epoch(),
			)
		}
		if h.cur.CompareAndSwap(prev, next) {
			return prev, nil
		}
	}
}
