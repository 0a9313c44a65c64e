package keytree

import (
	"fmt"
	"iter"
	"math"
	"math/bits"

	"github.com/bits-and-blooms/bitset"
	blst "github.com/supranational/blst/bindings/go"
)

// Tree holds a committee's public keys in a binary tree using an array layout.
// The leaves come first, followed by each parent layer, ending with the root.
// Every parent key is the sum of its two children,
// so a run of consecutive signers that fills a whole subtree
// costs a single point addition during aggregate verification.
//
// For 3 keys the layout is:
//
//	0 1 2 (3)
//	 4   (5)
//	   6
//
// where 3 is padding and 5 is effectively an alias of 2.
//
// A Tree is immutable after construction and safe for concurrent use.
type Tree struct {
	keys []blst.P2Affine

	nKeys       int
	leavesWidth int
}

// New returns a new Tree.
// The keys are an iterator so the caller can adapt its own key type
// without allocating an intermediate slice.
func New(keys iter.Seq[blst.P2Affine], nKeys int) *Tree {
	if nKeys < 1 || nKeys > math.MaxUint16 {
		panic(fmt.Errorf("BUG: nKeys must be in [1, %d]: got %d", math.MaxUint16, nKeys))
	}

	leavesWidth := nKeys
	if nKeys&(nKeys-1) != 0 {
		leavesWidth = 1 << bits.Len16(uint16(nKeys))
	}

	nNodes := 2*leavesWidth - 1
	t := &Tree{
		keys: make([]blst.P2Affine, nNodes),

		nKeys:       nKeys,
		leavesWidth: leavesWidth,
	}

	i := 0
	for k := range keys {
		if i >= nKeys {
			panic(fmt.Errorf("BUG: key iterator yielded more than %d keys", nKeys))
		}
		t.keys[i] = k
		i++
	}
	if i != nKeys {
		panic(fmt.Errorf("BUG: key iterator yielded %d keys, expected %d", i, nKeys))
	}

	layerWidth := leavesWidth
	readOffset := 0
	for layerWidth > 1 {
		for j := range layerWidth / 2 {
			src := readOffset + 2*j
			t.keys[readOffset+layerWidth+j] = addKeys(t.keys[src], t.keys[src+1])
		}

		readOffset += layerWidth
		layerWidth >>= 1
	}

	return t
}

// Len returns the number of real (unpadded) keys in the tree.
func (t *Tree) Len() int {
	return t.nKeys
}

// Leaf returns the key at leaf index i.
func (t *Tree) Leaf(i int) (blst.P2Affine, bool) {
	if i < 0 || i >= t.nKeys {
		return blst.P2Affine{}, false
	}
	return t.keys[i], true
}

// Root returns the sum of every key in the tree.
func (t *Tree) Root() blst.P2Affine {
	return t.keys[len(t.keys)-1]
}

// AggregateKey returns the sum of the keys whose leaf indices are set in signers,
// and the number of keys included.
// Bits at or beyond Len are ignored; callers that must reject them check beforehand.
func (t *Tree) AggregateKey(signers *bitset.BitSet) (blst.P2Affine, int) {
	// prefix[i] is the count of signers in [0, i).
	prefix := make([]int, t.nKeys+1)
	for i := range t.nKeys {
		prefix[i+1] = prefix[i]
		if signers.Test(uint(i)) {
			prefix[i+1]++
		}
	}

	if prefix[t.nKeys] == 0 {
		return blst.P2Affine{}, 0
	}

	acc := new(blst.P2)
	rootLayer := bits.Len(uint(t.leavesWidth)) - 1
	t.cover(rootLayer, 0, prefix, acc)

	return *acc.ToAffine(), prefix[t.nKeys]
}

// cover adds to acc the keys of the signers under the node at (layer, offset),
// using whole-node keys where every leaf under the node is a signer.
func (t *Tree) cover(layer, offset int, prefix []int, acc *blst.P2) {
	lo := offset << layer
	if lo >= t.nKeys {
		// Entirely padding.
		return
	}
	hi := min((offset+1)<<layer, t.nKeys)

	n := prefix[hi] - prefix[lo]
	if n == 0 {
		return
	}

	if n == hi-lo {
		k := t.keys[t.index(layer, offset)]
		*acc = *acc.Add(&k)
		return
	}

	// Partially covered, so the node cannot be a leaf.
	t.cover(layer-1, 2*offset, prefix, acc)
	t.cover(layer-1, 2*offset+1, prefix, acc)
}

// index converts a (layer, offset) pair into the array index of the node.
// Layer 0 starts at 0, and each following layer starts after the previous one,
// which works out to 2w - 2(w >> layer).
func (t *Tree) index(layer, offset int) int {
	return 2*t.leavesWidth - 2*(t.leavesWidth>>layer) + offset
}

func addKeys(a, b blst.P2Affine) blst.P2Affine {
	// Padding is always to the right of real keys.
	if b == (blst.P2Affine{}) {
		return a
	}
	if a == (blst.P2Affine{}) {
		return b
	}

	return *new(blst.P2).Add(&a).Add(&b).ToAffine()
}
