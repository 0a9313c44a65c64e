package gmerkle

import (
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
)

// ErrMalformedProof is returned when decoding a proof fails.
var ErrMalformedProof = errors.New("malformed merkle proof")

const proofHeaderSize = 8 + 8 + HashSize + 4

// Proof is the sibling path from one leaf to the root.
// It is only meaningful against the root of the tree that produced it.
type Proof struct {
	LeafIndex uint64

	// The number of leaves in the tree.
	// Because odd nodes are promoted rather than paired,
	// the count determines at which levels the path has a sibling.
	//
	// The root does not commit to LeafIndex or LeafCount;
	// they only shape the path, and a proof verifying against a root
	// shows that LeafHash is one of its leaves.
	LeafCount uint64

	LeafHash Hash

	// Siblings from the leaf level upward.
	Siblings []Hash
}

// Verify reports whether the proof connects LeafHash to root.
// It is a pure function of its inputs.
func (p Proof) Verify(root Hash) bool {
	if p.LeafCount == 0 || p.LeafIndex >= p.LeafCount {
		return false
	}

	cur := hashLeaf(p.LeafHash)
	idx, width := p.LeafIndex, p.LeafCount
	used := 0

	for width > 1 {
		switch {
		case idx&1 == 1:
			if used >= len(p.Siblings) {
				return false
			}
			cur = hashNode(p.Siblings[used], cur)
			used++
		case idx+1 < width:
			if used >= len(p.Siblings) {
				return false
			}
			cur = hashNode(cur, p.Siblings[used])
			used++
		default:
			// Last node of an odd level; promoted as is.
		}

		idx >>= 1
		width = (width + 1) >> 1
	}

	return used == len(p.Siblings) && cur == root
}

// Clone returns a deep copy of p.
func (p Proof) Clone() Proof {
	p.Siblings = slices.Clone(p.Siblings)
	return p
}

// EncodedSize returns the length of the [Proof.MarshalBinary] output.
func (p Proof) EncodedSize() int {
	return proofHeaderSize + HashSize*len(p.Siblings)
}

// MarshalBinary encodes the proof as
// index(8) || count(8) || leaf(32) || nSiblings(4) || siblings(32 each),
// with big endian integers.
func (p Proof) MarshalBinary() ([]byte, error) {
	out := make([]byte, p.EncodedSize())
	binary.BigEndian.PutUint64(out[0:8], p.LeafIndex)
	binary.BigEndian.PutUint64(out[8:16], p.LeafCount)
	copy(out[16:16+HashSize], p.LeafHash[:])
	binary.BigEndian.PutUint32(out[16+HashSize:proofHeaderSize], uint32(len(p.Siblings)))

	off := proofHeaderSize
	for _, s := range p.Siblings {
		copy(out[off:off+HashSize], s[:])
		off += HashSize
	}
	return out, nil
}

// UnmarshalBinary decodes the output of [Proof.MarshalBinary].
// Trailing bytes are an error.
func (p *Proof) UnmarshalBinary(b []byte) error {
	if len(b) < proofHeaderSize {
		return fmt.Errorf("%w: need at least %d bytes, got %d", ErrMalformedProof, proofHeaderSize, len(b))
	}

	n := binary.BigEndian.Uint32(b[16+HashSize : proofHeaderSize])
	if want := uint64(proofHeaderSize) + uint64(n)*HashSize; uint64(len(b)) != want {
		return fmt.Errorf("%w: %d siblings need %d bytes, got %d", ErrMalformedProof, n, want, len(b))
	}

	p.LeafIndex = binary.BigEndian.Uint64(b[0:8])
	p.LeafCount = binary.BigEndian.Uint64(b[8:16])
	copy(p.LeafHash[:], b[16:16+HashSize])

	p.Siblings = make([]Hash, n)
	off := proofHeaderSize
	for i := range p.Siblings {
		copy(p.Siblings[i][:], b[off:off+HashSize])
		off += HashSize
	}
	return nil
}
