package gfinalitytest

import (
	"context"
	"testing"

	"github.com/gordian-engine/gfinality/gcommittee"
	"github.com/gordian-engine/gfinality/gfinality"
	"github.com/gordian-engine/gfinality/gmerkle"
	"github.com/gordian-engine/gfinality/gthreshold"
	"github.com/stretchr/testify/require"
)

// TestProofStoreCompliance runs the behavior every ProofStore must satisfy.
// newStore must return an empty store on each call.
func TestProofStoreCompliance(t *testing.T, newStore func(t *testing.T) gfinality.ProofStore) {
	t.Run("missing proof", func(t *testing.T) {
		t.Parallel()

		s := newStore(t)
		_, err := s.LoadProof(context.Background(), gmerkle.Hash{1})
		require.ErrorIs(t, err, gfinality.ErrProofNotFound)
	})

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		s := newStore(t)

		p1 := sampleProof(1)
		p2 := sampleProof(2)
		require.NoError(t, s.SaveProof(ctx, gmerkle.Hash{1}, p1))
		require.NoError(t, s.SaveProof(ctx, gmerkle.Hash{2}, p2))

		got, err := s.LoadProof(ctx, gmerkle.Hash{1})
		require.NoError(t, err)
		require.Equal(t, p1, got)

		got, err = s.LoadProof(ctx, gmerkle.Hash{2})
		require.NoError(t, err)
		require.Equal(t, p2, got)
	})

	t.Run("overwrite", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		s := newStore(t)

		require.NoError(t, s.SaveProof(ctx, gmerkle.Hash{1}, sampleProof(1)))
		require.NoError(t, s.SaveProof(ctx, gmerkle.Hash{1}, sampleProof(5)))

		got, err := s.LoadProof(ctx, gmerkle.Hash{1})
		require.NoError(t, err)
		require.Equal(t, sampleProof(5), got)
	})

	t.Run("stored proof is isolated from caller memory", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		s := newStore(t)

		p := sampleProof(3)
		require.NoError(t, s.SaveProof(ctx, gmerkle.Hash{3}, p))
		p.AggregateSignature[0] ^= 0xff
		p.ValidatorSet[0].BLSPubKey[0] ^= 0xff

		got, err := s.LoadProof(ctx, gmerkle.Hash{3})
		require.NoError(t, err)
		require.Equal(t, sampleProof(3), got)

		got.InclusionProof.Siblings[0][0] ^= 0xff
		again, err := s.LoadProof(ctx, gmerkle.Hash{3})
		require.NoError(t, err)
		require.Equal(t, sampleProof(3), again)
	})
}

func sampleProof(height uint64) gfinality.FinalityProof {
	return gfinality.FinalityProof{
		BlockHeight:        height,
		BlockHash:          gmerkle.Hash{byte(height), 0xbb},
		CommitRound:        uint32(height % 3),
		AggregateSignature: []byte{0xa0, byte(height)},
		ValidatorBitmap:    gthreshold.Bitmap{0b0111},
		ValidatorSet: []gcommittee.ValidatorInfo{
			{NodeID: "a", BLSPubKey: []byte{1}, Stake: height},
			{NodeID: "b", BLSPubKey: []byte{2}, Stake: 1},
			{NodeID: "c", BLSPubKey: []byte{3}, Stake: 1},
		},
		InclusionProof: gmerkle.Proof{
			LeafIndex: 0,
			LeafCount: 2,
			LeafHash:  gmerkle.Hash{byte(height)},
			Siblings:  []gmerkle.Hash{{0xcc}},
		},
	}
}
