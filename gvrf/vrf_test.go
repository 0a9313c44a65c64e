package gvrf_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/gordian-engine/gfinality/gvrf"
	"github.com/stretchr/testify/require"
)

func TestNewFixedSize(t *testing.T) {
	t.Parallel()

	_, err := gvrf.NewPrivateKey(make([]byte, 31))
	require.ErrorIs(t, err, gvrf.ErrInvalidLength)
	_, err = gvrf.NewPublicKey(make([]byte, 33))
	require.ErrorIs(t, err, gvrf.ErrInvalidLength)
	_, err = gvrf.NewProof(make([]byte, 64))
	require.ErrorIs(t, err, gvrf.ErrInvalidLength)
	_, err = gvrf.NewOutput(nil)
	require.ErrorIs(t, err, gvrf.ErrInvalidLength)

	raw := bytes.Repeat([]byte{0xab}, gvrf.ProofSize)
	p, err := gvrf.NewProof(raw)
	require.NoError(t, err)
	require.Equal(t, raw, p[:])

	// The input slice is copied.
	raw[0] = 0
	require.Equal(t, byte(0xab), p[0])
}

func TestPrivateKey_redacted(t *testing.T) {
	t.Parallel()

	sk, _ := testKeyPair(t, "redaction")
	for _, s := range []string{
		fmt.Sprint(sk),
		fmt.Sprintf("%v", sk),
		fmt.Sprintf("%#v", sk),
	} {
		require.Contains(t, s, "REDACTED")
	}
}

func TestOutput_ToUniformUint64(t *testing.T) {
	t.Parallel()

	var seven gvrf.Output
	seven[gvrf.OutputSize-1] = 7

	allOnes := gvrf.Output(bytes32(0xff))

	for _, tc := range []struct {
		name string
		out  gvrf.Output
		max  uint64
		want uint64
	}{
		{name: "zero max", out: allOnes, max: 0, want: 0},
		{name: "max one", out: allOnes, max: 1, want: 0},
		{name: "small value", out: seven, max: 10, want: 7},
		{name: "reduced", out: seven, max: 4, want: 3},
		{name: "power of two", out: allOnes, max: 256, want: 255},
		{name: "zero output", out: gvrf.Output{}, max: 1000, want: 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, tc.out.ToUniformUint64(tc.max))
		})
	}
}

func TestOutput_ToUniformUint64_inRange(t *testing.T) {
	t.Parallel()

	var v gvrf.Ristretto255
	sk, _ := testKeyPair(t, "range")

	for h := uint64(0); h < 64; h++ {
		_, out, err := v.Prove(sk, gvrf.ElectionInput(0, h, 0))
		require.NoError(t, err)

		for _, max := range []uint64{1, 3, 1000, 1 << 40} {
			require.Less(t, out.ToUniformUint64(max), max)
		}
		p := out.ToProbability()
		require.GreaterOrEqual(t, p, 0.0)
		require.Less(t, p, 1.0)
	}
}

func TestOutput_ToProbability(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0.0, gvrf.Output{}.ToProbability())

	var half gvrf.Output
	half[0] = 0x80
	require.Equal(t, 0.5, half.ToProbability())

	require.Less(t, gvrf.Output(bytes32(0xff)).ToProbability(), 1.0)
}

func TestElectionInput(t *testing.T) {
	t.Parallel()

	base := gvrf.ElectionInput(1, 2, 3)
	require.Equal(t, base, gvrf.ElectionInput(1, 2, 3))

	require.NotEqual(t, base, gvrf.ElectionInput(2, 2, 3))
	require.NotEqual(t, base, gvrf.ElectionInput(1, 3, 3))
	require.NotEqual(t, base, gvrf.ElectionInput(1, 2, 4))

	// Fixed width fields: the round and height cannot bleed into one another.
	require.Len(t, gvrf.ElectionInput(0, 0, 0), len(base))
	require.Equal(t, []byte{0, 0, 0, 3}, base[len(base)-4:])
	require.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 2}, base[len(base)-12:len(base)-4])
}
