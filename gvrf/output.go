package gvrf

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/holiman/uint256"
)

// ToUniformUint64 maps the output into [0, max) by reducing
// the whole 256-bit output, read big endian, modulo max.
// The bias is at most max/2^256, which is negligible for stake totals.
// It returns 0 when max is 0.
func (o Output) ToUniformUint64(max uint64) uint64 {
	if max == 0 {
		return 0
	}

	v := new(uint256.Int).SetBytes32(o[:])
	return v.Mod(v, uint256.NewInt(max)).Uint64()
}

// ToProbability maps the first 8 bytes of the output, read big endian,
// onto a float64 in [0, 1).
func (o Output) ToProbability() float64 {
	// Keep the top 53 bits so the conversion is exact and never rounds up to 1.
	v := binary.BigEndian.Uint64(o[:8]) >> 11
	return float64(v) / (1 << 53)
}

func (o Output) String() string {
	return hex.EncodeToString(o[:])
}
