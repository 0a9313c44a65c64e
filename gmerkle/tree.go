package gmerkle

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
)

const HashSize = sha256.Size

const (
	leafPrefix byte = 0x00
	nodePrefix byte = 0x01
)

var (
	ErrIndexOutOfRange   = errors.New("leaf index out of range")
	ErrInvalidHashLength = errors.New("invalid hash length")
)

// Hash is a SHA-256 digest.
type Hash [HashSize]byte

// NewHash copies b into a Hash.
// The input must be exactly [HashSize] bytes; it is never padded or truncated.
func NewHash(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashSize {
		return h, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidHashLength, HashSize, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// IsZero reports whether every byte of h is zero.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Tree is an immutable Merkle tree.
// It is safe for concurrent use.
type Tree struct {
	// levels[0] holds the hashed leaves, and the last level holds only the root.
	// Empty for a tree with no leaves.
	levels [][]Hash

	leaves []Hash
}

// Build returns the tree over leaves, in order.
// The leaves slice is copied.
func Build(leaves []Hash) *Tree {
	t := &Tree{leaves: slices.Clone(leaves)}
	if len(leaves) == 0 {
		return t
	}

	level := make([]Hash, len(leaves))
	for i, l := range leaves {
		level[i] = hashLeaf(l)
	}
	t.levels = append(t.levels, level)

	for len(level) > 1 {
		next := make([]Hash, (len(level)+1)/2)
		for i := range next {
			if 2*i+1 < len(level) {
				next[i] = hashNode(level[2*i], level[2*i+1])
			} else {
				next[i] = level[2*i]
			}
		}
		t.levels = append(t.levels, next)
		level = next
	}

	return t
}

// Root returns the commitment over every leaf,
// or the zero hash when the tree is empty.
func (t *Tree) Root() Hash {
	if len(t.levels) == 0 {
		return Hash{}
	}
	return t.levels[len(t.levels)-1][0]
}

// Len returns the number of leaves.
func (t *Tree) Len() int {
	return len(t.leaves)
}

// Leaf returns the unhashed leaf at index i.
func (t *Tree) Leaf(i int) (Hash, bool) {
	if i < 0 || i >= len(t.leaves) {
		return Hash{}, false
	}
	return t.leaves[i], true
}

// Index returns the position of the first leaf equal to h, or -1.
func (t *Tree) Index(h Hash) int {
	return slices.Index(t.leaves, h)
}

// Proof returns the inclusion proof for the leaf at index.
func (t *Tree) Proof(index int) (Proof, error) {
	if index < 0 || index >= len(t.leaves) {
		return Proof{}, fmt.Errorf("%w: index %d with %d leaves", ErrIndexOutOfRange, index, len(t.leaves))
	}

	p := Proof{
		LeafIndex: uint64(index),
		LeafCount: uint64(len(t.leaves)),
		LeafHash:  t.leaves[index],
	}

	idx := index
	for _, level := range t.levels[:len(t.levels)-1] {
		sib := idx ^ 1
		if sib < len(level) {
			p.Siblings = append(p.Siblings, level[sib])
		}
		idx /= 2
	}

	return p, nil
}

func hashLeaf(l Hash) Hash {
	var buf [1 + HashSize]byte
	buf[0] = leafPrefix
	copy(buf[1:], l[:])
	return sha256.Sum256(buf[:])
}

func hashNode(left, right Hash) Hash {
	var buf [1 + 2*HashSize]byte
	buf[0] = nodePrefix
	copy(buf[1:], left[:])
	copy(buf[1+HashSize:], right[:])
	return sha256.Sum256(buf[:])
}
