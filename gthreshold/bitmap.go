package gthreshold

import (
	"math/bits"

	"github.com/bits-and-blooms/bitset"
)

// Bitmap records which validator indices contributed to an aggregate signature.
// Bit i lives in byte i/8 under mask 1<<(i%8),
// so signers {0, 2} of 4 validators encode as the single byte 0b00000101.
type Bitmap []byte

// NewBitmap returns an empty bitmap sized for n validators.
func NewBitmap(n int) Bitmap {
	return make(Bitmap, (n+7)/8)
}

// BitmapFromBitSet encodes bs into a bitmap sized for n validators.
// Bits at or beyond n are dropped.
func BitmapFromBitSet(bs *bitset.BitSet, n int) Bitmap {
	b := NewBitmap(n)
	for u, ok := bs.NextSet(0); ok && int(u) < n; u, ok = bs.NextSet(u + 1) {
		b[u/8] |= 1 << (u % 8)
	}
	return b
}

// IsSigner reports whether the bit for validator index i is set.
// It returns false for negative indices and indices beyond the bitmap.
func (b Bitmap) IsSigner(i int) bool {
	if i < 0 || i >= 8*len(b) {
		return false
	}
	return b[i/8]&(1<<(i%8)) != 0
}

// Count returns the number of set bits.
func (b Bitmap) Count() int {
	n := 0
	for _, x := range b {
		n += bits.OnesCount8(x)
	}
	return n
}

// BitSet decodes the bitmap into a new BitSet.
func (b Bitmap) BitSet() *bitset.BitSet {
	bs := bitset.New(uint(8 * len(b)))
	for i, x := range b {
		for x != 0 {
			j := bits.TrailingZeros8(x)
			bs.Set(uint(8*i + j))
			x &= x - 1
		}
	}
	return bs
}

// HasBitsBeyond reports whether any bit at index n or greater is set.
// A well-formed bitmap for n validators never has such bits.
func (b Bitmap) HasBitsBeyond(n int) bool {
	if n < 0 {
		n = 0
	}
	for i := n; i < 8*len(b); i++ {
		if b.IsSigner(i) {
			return true
		}
	}
	return false
}
