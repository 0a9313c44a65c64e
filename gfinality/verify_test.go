package gfinality_test

import (
	"context"
	"testing"

	"github.com/gordian-engine/gfinality/gcommittee"
	"github.com/gordian-engine/gfinality/gcrypto/gblsminsig"
	"github.com/gordian-engine/gfinality/gcrypto/gblsminsig/gblsminsigtest"
	"github.com/gordian-engine/gfinality/gfinality"
	"github.com/gordian-engine/gfinality/gmerkle"
	"github.com/gordian-engine/gfinality/gthreshold"
	"github.com/stretchr/testify/require"
)

func TestEngine_VerifyFinalityProof_tampering(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture()
	e := newEngine(t, f)
	b := f.NewBlock(20, 4)

	orig, err := e.GenerateFinalityProof(ctx, b.Receipts[1], b.ReceiptHashes, 0, f.Votes(b, 0, 0, 1, 2), f.Validators)
	require.NoError(t, err)
	require.True(t, e.VerifyFinalityProof(ctx, orig, b.ReceiptHashes[1]).IsValid)

	type want struct {
		threshold, inclusion, signature bool
	}
	for _, tc := range []struct {
		name   string
		modify func(p *gfinality.FinalityProof)
		want   want
	}{
		{
			name:   "height",
			modify: func(p *gfinality.FinalityProof) { p.BlockHeight++ },
			want:   want{threshold: true, inclusion: true},
		},
		{
			name:   "round",
			modify: func(p *gfinality.FinalityProof) { p.CommitRound++ },
			want:   want{threshold: true, inclusion: true},
		},
		{
			name:   "block hash",
			modify: func(p *gfinality.FinalityProof) { p.BlockHash[5] ^= 0x01 },
			want:   want{threshold: true},
		},
		{
			name:   "aggregate signature",
			modify: func(p *gfinality.FinalityProof) { p.AggregateSignature[10] ^= 0x01 },
			want:   want{threshold: true, inclusion: true},
		},
		{
			name:   "signer removed from bitmap",
			modify: func(p *gfinality.FinalityProof) { p.ValidatorBitmap[0] = 0b0011 },
			want:   want{inclusion: true},
		},
		{
			name:   "non-signer added to bitmap",
			modify: func(p *gfinality.FinalityProof) { p.ValidatorBitmap[0] = 0b1111 },
			want:   want{threshold: true, inclusion: true},
		},
		{
			name:   "signer swapped in bitmap",
			modify: func(p *gfinality.FinalityProof) { p.ValidatorBitmap[0] = 0b1011 },
			want:   want{threshold: true, inclusion: true},
		},
		{
			name:   "bitmap too long",
			modify: func(p *gfinality.FinalityProof) { p.ValidatorBitmap = append(p.ValidatorBitmap, 0) },
			want:   want{inclusion: true},
		},
		{
			name:   "bitmap bit beyond validators",
			modify: func(p *gfinality.FinalityProof) { p.ValidatorBitmap[0] |= 0b1000_0000 },
			want:   want{inclusion: true},
		},
		{
			name: "validators reordered",
			modify: func(p *gfinality.FinalityProof) {
				p.ValidatorSet[0], p.ValidatorSet[3] = p.ValidatorSet[3], p.ValidatorSet[0]
			},
			want: want{threshold: true, inclusion: true},
		},
		{
			name:   "validator key corrupted",
			modify: func(p *gfinality.FinalityProof) { p.ValidatorSet[1].BLSPubKey = []byte{1} },
			want:   want{threshold: true, inclusion: true},
		},
		{
			name:   "inclusion sibling",
			modify: func(p *gfinality.FinalityProof) { p.InclusionProof.Siblings[0][0] ^= 0x01 },
			want:   want{threshold: true, signature: true},
		},
		{
			name:   "inclusion leaf",
			modify: func(p *gfinality.FinalityProof) { p.InclusionProof.LeafHash[31] ^= 0x01 },
			want:   want{threshold: true, signature: true},
		},
		{
			name:   "inclusion index",
			modify: func(p *gfinality.FinalityProof) { p.InclusionProof.LeafIndex = 0 },
			want:   want{threshold: true, signature: true},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			p := orig.Clone()
			tc.modify(&p)

			v := e.VerifyFinalityProof(ctx, p, b.ReceiptHashes[1])
			require.False(t, v.IsValid)
			require.Equal(t, tc.want.threshold, v.ThresholdMet, "threshold")
			require.Equal(t, tc.want.inclusion, v.InclusionValid, "inclusion")
			require.Equal(t, tc.want.signature, v.SignatureValid, "signature")
		})
	}
}

func TestEngine_VerifyFinalityProof_wrongReceipt(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture()
	e := newEngine(t, f)
	b := f.NewBlock(21, 3)

	p, err := e.GenerateFinalityProof(ctx, b.Receipts[0], b.ReceiptHashes, 0, f.Votes(b, 0, 1, 2, 3), f.Validators)
	require.NoError(t, err)

	v := e.VerifyFinalityProof(ctx, p, b.ReceiptHashes[2])
	require.False(t, v.IsValid)
	require.False(t, v.InclusionValid)
	require.True(t, v.SignatureValid)
	require.True(t, v.ThresholdMet)

	v = e.VerifyFinalityProof(ctx, p, gmerkle.Hash{})
	require.False(t, v.IsValid)
}

func TestEngine_VerifyFinalityProof_belowQuorum(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture()
	e := newEngine(t, f)
	b := f.NewBlock(22, 2)

	p, err := e.GenerateFinalityProof(ctx, b.Receipts[0], b.ReceiptHashes, 0, f.Votes(b, 0, 0, 1, 2), f.Validators)
	require.NoError(t, err)

	// Replace the certificate with a genuine aggregate from only two validators.
	scheme, err := gblsminsig.NewAggregationScheme(8)
	require.NoError(t, err)
	agg, bitmap, err := gthreshold.Aggregate(scheme, f.Votes(b, 0, 1, 3), 4)
	require.NoError(t, err)
	p.AggregateSignature = agg
	p.ValidatorBitmap = bitmap

	v := e.VerifyFinalityProof(ctx, p, b.ReceiptHashes[0])
	require.False(t, v.IsValid)
	require.False(t, v.ThresholdMet)
	require.True(t, v.SignatureValid)
	require.True(t, v.InclusionValid)
	require.Equal(t, 2, v.SignaturesVerified)
	require.Equal(t, 4, v.TotalValidators)
}

func TestEngine_VerifyFinalityProof_emptyValidatorSet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture()
	e := newEngine(t, f)
	b := f.NewBlock(23, 2)

	p, err := e.GenerateFinalityProof(ctx, b.Receipts[0], b.ReceiptHashes, 0, f.Votes(b, 0, 0, 1, 2), f.Validators)
	require.NoError(t, err)

	p.ValidatorSet = nil
	v := e.VerifyFinalityProof(ctx, p, b.ReceiptHashes[0])
	require.False(t, v.IsValid)
	require.False(t, v.ThresholdMet)
	require.False(t, v.SignatureValid)
	require.Zero(t, v.TotalValidators)

	v = e.VerifyFinalityProof(ctx, gfinality.FinalityProof{}, b.ReceiptHashes[0])
	require.False(t, v.IsValid)
}

func TestEngine_VerifyFinalityProof_committee(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture()
	h := gcommittee.NewHolder(f.Committee(1))
	e := newEngineWithCommittees(t, h)

	b := f.NewBlock(24, 3)
	p, err := e.GenerateFinalityProof(ctx, b.Receipts[2], b.ReceiptHashes, 0, f.Votes(b, 0, 0, 1, 2), f.Validators)
	require.NoError(t, err)

	v := e.VerifyFinalityProof(ctx, p, b.ReceiptHashes[2])
	require.True(t, v.IsValid)
	require.True(t, v.CommitteeMatched)

	t.Run("validator set truncated to the signers", func(t *testing.T) {
		t.Parallel()

		// Dropping the non-signer keeps the signature and quorum intact,
		// so only the committee check can catch it.
		q := p.Clone()
		q.ValidatorSet = q.ValidatorSet[:3]

		v := e.VerifyFinalityProof(ctx, q, b.ReceiptHashes[2])
		require.True(t, v.ThresholdMet)
		require.True(t, v.SignatureValid)
		require.False(t, v.CommitteeMatched)
		require.False(t, v.IsValid)
	})

	t.Run("stake changed", func(t *testing.T) {
		t.Parallel()

		q := p.Clone()
		q.ValidatorSet[0].Stake = 1_000_000

		v := e.VerifyFinalityProof(ctx, q, b.ReceiptHashes[2])
		require.True(t, v.SignatureValid)
		require.False(t, v.CommitteeMatched)
		require.False(t, v.IsValid)
	})
}

func TestEngine_VerifyFinalityProof_committeeRotation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture()
	h := gcommittee.NewHolder(f.Committee(1))
	e := newEngineWithCommittees(t, h)

	b := f.NewBlock(25, 2)
	p, err := e.GenerateFinalityProof(ctx, b.Receipts[0], b.ReceiptHashes, 0, f.Votes(b, 0, 0, 1, 2), f.Validators)
	require.NoError(t, err)
	require.True(t, e.VerifyFinalityProof(ctx, p, b.ReceiptHashes[0]).IsValid)

	next := gcommittee.ValidatorInfo{
		NodeID:    "newcomer",
		BLSPubKey: []byte("placeholder"),
		Stake:     50,
	}
	next.VRFPubKey[0] = 0xee
	c2, err := gcommittee.NewCommittee(2, append(f.Committee(1).Validators(), next))
	require.NoError(t, err)
	_, err = h.Swap(c2)
	require.NoError(t, err)

	v := e.VerifyFinalityProof(ctx, p, b.ReceiptHashes[0])
	require.False(t, v.CommitteeMatched)
	require.False(t, v.IsValid)
}

func TestEngine_VerifyFinalityProof_forgedValidatorSet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture()
	e := newEngine(t, f)
	b := f.NewBlock(26, 2)

	honest, err := e.GenerateFinalityProof(ctx, b.Receipts[0], b.ReceiptHashes, 0, f.Votes(b, 0, 0, 1, 2), f.Validators)
	require.NoError(t, err)
	require.True(t, e.VerifyFinalityProof(ctx, honest, b.ReceiptHashes[0]).IsValid)

	// A key outside the committee, with its own valid signature over the block.
	outsider := gblsminsigtest.DeterministicSigners(5)[4]
	outsiderSig, err := outsider.Sign(ctx, e.SignBytes(b.Hash, b.Height, 0))
	require.NoError(t, err)
	outsiderVal := gcommittee.ValidatorInfo{
		NodeID:    "outsider",
		BLSPubKey: outsider.PubKey().PubKeyBytes(),
		Stake:     1,
	}

	t.Run("sole outsider", func(t *testing.T) {
		t.Parallel()

		p := honest.Clone()
		p.ValidatorSet = []gcommittee.ValidatorInfo{outsiderVal}
		p.ValidatorBitmap = gthreshold.Bitmap{0x01}
		p.AggregateSignature = outsiderSig

		v := e.VerifyFinalityProof(ctx, p, b.ReceiptHashes[0])
		require.True(t, v.ThresholdMet)
		require.True(t, v.SignatureValid)
		require.True(t, v.InclusionValid)
		require.False(t, v.CommitteeMatched)
		require.False(t, v.IsValid)
		require.Equal(t, 1, v.TotalValidators)
	})

	t.Run("truncated to the signers", func(t *testing.T) {
		t.Parallel()

		p := honest.Clone()
		p.ValidatorSet = p.ValidatorSet[:3]

		v := e.VerifyFinalityProof(ctx, p, b.ReceiptHashes[0])
		require.True(t, v.ThresholdMet)
		require.True(t, v.SignatureValid)
		require.False(t, v.CommitteeMatched)
		require.False(t, v.IsValid)
	})

	t.Run("non-signer restaked", func(t *testing.T) {
		t.Parallel()

		p := honest.Clone()
		p.ValidatorSet[3].Stake = 1

		v := e.VerifyFinalityProof(ctx, p, b.ReceiptHashes[0])
		require.True(t, v.SignatureValid)
		require.False(t, v.CommitteeMatched)
		require.False(t, v.IsValid)
	})

	t.Run("non-signer replaced", func(t *testing.T) {
		t.Parallel()

		p := honest.Clone()
		p.ValidatorSet[3] = outsiderVal

		v := e.VerifyFinalityProof(ctx, p, b.ReceiptHashes[0])
		require.True(t, v.ThresholdMet)
		require.True(t, v.SignatureValid)
		require.False(t, v.CommitteeMatched)
		require.False(t, v.IsValid)
	})
}
