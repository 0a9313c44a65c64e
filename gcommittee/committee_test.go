package gcommittee_test

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/gordian-engine/gfinality/gcommittee"
	"github.com/gordian-engine/gfinality/gcrypto/gblsminsig"
	"github.com/gordian-engine/gfinality/gcrypto/gblsminsig/gblsminsigtest"
	"github.com/gordian-engine/gfinality/gleader"
	"github.com/gordian-engine/gfinality/gvrf"
	"github.com/stretchr/testify/require"
)

func testValidators(n int) []gcommittee.ValidatorInfo {
	vals := make([]gcommittee.ValidatorInfo, n)
	for i := range vals {
		vals[i] = gcommittee.ValidatorInfo{
			NodeID:    fmt.Sprintf("val-%d", i),
			BLSPubKey: []byte{0xb1, byte(i)},
			VRFPubKey: gvrf.PublicKey{0x7f, byte(i)},
			Stake:     uint64(100 * (i + 1)),
		}
	}
	return vals
}

func TestNewCommittee(t *testing.T) {
	t.Parallel()

	vals := testValidators(4)
	c, err := gcommittee.NewCommittee(7, vals)
	require.NoError(t, err)

	require.Equal(t, uint64(7), c.Epoch())
	require.Equal(t, 4, c.Len())
	require.Equal(t, uint64(1000), c.TotalStake())
	require.Equal(t, 4, c.Selector().Len())
	require.Equal(t, uint64(300), c.Selector().Stake(vals[2].VRFPubKey))
	require.Equal(t, gcommittee.HashValidators(vals), c.Hash())

	idx, ok := c.IndexOf("val-3")
	require.True(t, ok)
	require.Equal(t, 3, idx)
	_, ok = c.IndexOf("nobody")
	require.False(t, ok)

	v, ok := c.Validator(1)
	require.True(t, ok)
	require.True(t, v.Equal(vals[1]))
	_, ok = c.Validator(4)
	require.False(t, ok)
	_, ok = c.Validator(-1)
	require.False(t, ok)
}

func TestNewCommittee_deepCopy(t *testing.T) {
	t.Parallel()

	vals := testValidators(2)
	c, err := gcommittee.NewCommittee(1, vals)
	require.NoError(t, err)
	origHash := c.Hash()

	vals[0].BLSPubKey[0] = 0xff
	vals[1].Stake = 1

	got := c.Validators()
	require.Equal(t, byte(0xb1), got[0].BLSPubKey[0])
	require.Equal(t, uint64(200), got[1].Stake)

	got[0].BLSPubKey[0] = 0xee
	again, _ := c.Validator(0)
	require.Equal(t, byte(0xb1), again.BLSPubKey[0])

	require.Equal(t, origHash, c.Hash())
}

func TestNewCommittee_errors(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name   string
		modify func([]gcommittee.ValidatorInfo) []gcommittee.ValidatorInfo
		want   error
	}{
		{
			name:   "empty",
			modify: func([]gcommittee.ValidatorInfo) []gcommittee.ValidatorInfo { return nil },
			want:   gcommittee.ErrEmptyCommittee,
		},
		{
			name: "empty node ID",
			modify: func(v []gcommittee.ValidatorInfo) []gcommittee.ValidatorInfo {
				v[1].NodeID = ""
				return v
			},
			want: gcommittee.ErrEmptyNodeID,
		},
		{
			name: "duplicate node ID",
			modify: func(v []gcommittee.ValidatorInfo) []gcommittee.ValidatorInfo {
				v[2].NodeID = v[0].NodeID
				return v
			},
			want: gcommittee.ErrDuplicateNodeID,
		},
		{
			name: "empty BLS key",
			modify: func(v []gcommittee.ValidatorInfo) []gcommittee.ValidatorInfo {
				v[0].BLSPubKey = nil
				return v
			},
			want: gcommittee.ErrEmptyBLSPubKey,
		},
		{
			name: "duplicate VRF key",
			modify: func(v []gcommittee.ValidatorInfo) []gcommittee.ValidatorInfo {
				v[3].VRFPubKey = v[1].VRFPubKey
				return v
			},
			want: gleader.ErrDuplicateCandidate,
		},
		{
			name: "stake overflow",
			modify: func(v []gcommittee.ValidatorInfo) []gcommittee.ValidatorInfo {
				v[0].Stake = math.MaxUint64
				return v
			},
			want: gleader.ErrStakeOverflow,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := gcommittee.NewCommittee(1, tc.modify(testValidators(4)))
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestHashValidators(t *testing.T) {
	t.Parallel()

	vals := testValidators(3)
	base := gcommittee.HashValidators(vals)
	require.Equal(t, base, gcommittee.HashValidators(testValidators(3)))

	swapped := testValidators(3)
	swapped[0], swapped[1] = swapped[1], swapped[0]
	require.NotEqual(t, base, gcommittee.HashValidators(swapped))

	staked := testValidators(3)
	staked[2].Stake++
	require.NotEqual(t, base, gcommittee.HashValidators(staked))

	// Length prefixes keep field boundaries unambiguous.
	a := testValidators(1)
	a[0].NodeID, a[0].BLSPubKey = "ab", []byte("c")
	b := testValidators(1)
	b[0].NodeID, b[0].BLSPubKey = "a", []byte("bc")
	require.NotEqual(t, gcommittee.HashValidators(a), gcommittee.HashValidators(b))

	require.NotEqual(t, base, gcommittee.HashValidators(vals[:2]))
}

func TestValidatorInfo_EncodedSize(t *testing.T) {
	t.Parallel()

	for _, v := range []gcommittee.ValidatorInfo{
		{},
		testValidators(1)[0],
		{NodeID: strings.Repeat("n", 300), BLSPubKey: make([]byte, 96), Stake: math.MaxUint64},
	} {
		require.Len(t, v.AppendBinary(nil), v.EncodedSize())
	}

	vals := testValidators(5)
	total := 4
	for _, v := range vals {
		total += len(v.AppendBinary(nil))
	}
	require.Equal(t, total, gcommittee.ValidatorsEncodedSize(vals))
}

func TestHolder(t *testing.T) {
	t.Parallel()

	c1, err := gcommittee.NewCommittee(1, testValidators(2))
	require.NoError(t, err)
	c2, err := gcommittee.NewCommittee(2, testValidators(3))
	require.NoError(t, err)
	c2again, err := gcommittee.NewCommittee(2, testValidators(4))
	require.NoError(t, err)

	h := gcommittee.NewHolder(c1)
	require.Same(t, c1, h.Load())

	prev, err := h.Swap(c2)
	require.NoError(t, err)
	require.Same(t, c1, prev)
	require.Same(t, c2, h.Load())

	_, err = h.Swap(c2again)
	require.ErrorIs(t, err, gcommittee.ErrStaleEpoch)
	_, err = h.Swap(c1)
	require.ErrorIs(t, err, gcommittee.ErrStaleEpoch)
	require.Same(t, c2, h.Load())

	require.Panics(t, func() { gcommittee.NewHolder(nil) })
}

func TestHolder_concurrentReaders(t *testing.T) {
	t.Parallel()

	const epochs = 50

	committees := make([]*gcommittee.Committee, epochs)
	for i := range committees {
		c, err := gcommittee.NewCommittee(uint64(i+1), testValidators(i+1))
		require.NoError(t, err)
		committees[i] = c
	}

	h := gcommittee.NewHolder(committees[0])

	var wg sync.WaitGroup
	done := make(chan struct{})
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}

				c := h.Load()
				// Epoch N was built with N validators; a torn read would break that.
				if uint64(c.Len()) != c.Epoch() || c.Selector().Len() != c.Len() {
					errs <- fmt.Errorf("inconsistent committee at epoch %d: %d validators", c.Epoch(), c.Len())
					return
				}
			}
		}()
	}

	for _, c := range committees[1:] {
		_, err := h.Swap(c)
		require.NoError(t, err)
	}
	close(done)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, uint64(epochs), h.Load().Epoch())
}

func TestNewRegisteredCommittee(t *testing.T) {
	t.Parallel()

	signers := gblsminsigtest.DeterministicSigners(3)
	vals := testValidators(3)
	proofs := make([][]byte, len(signers))
	for i, s := range signers {
		vals[i].BLSPubKey = s.PubKey().PubKeyBytes()

		p, err := s.ProvePossession()
		require.NoError(t, err)
		proofs[i] = p
	}

	c, err := gcommittee.NewRegisteredCommittee(2, vals, proofs)
	require.NoError(t, err)
	require.Equal(t, gcommittee.HashValidators(vals), c.Hash())

	t.Run("proofs swapped", func(t *testing.T) {
		t.Parallel()

		swapped := [][]byte{proofs[1], proofs[0], proofs[2]}
		_, err := gcommittee.NewRegisteredCommittee(2, vals, swapped)
		require.ErrorIs(t, err, gblsminsig.ErrInvalidPossession)
		require.ErrorContains(t, err, "validator 0 (val-0)")
	})

	t.Run("key without a proof", func(t *testing.T) {
		t.Parallel()

		// Validator 2's proof does not cover a key it never signed.
		others := slices.Clone(vals)
		others[2].BLSPubKey = gblsminsigtest.DeterministicSigners(4)[3].PubKey().PubKeyBytes()
		_, err := gcommittee.NewRegisteredCommittee(2, others, proofs)
		require.ErrorIs(t, err, gblsminsig.ErrInvalidPossession)
	})

	t.Run("proof count", func(t *testing.T) {
		t.Parallel()

		_, err := gcommittee.NewRegisteredCommittee(2, vals, proofs[:2])
		require.ErrorIs(t, err, gcommittee.ErrPossessionCount)
	})
}
