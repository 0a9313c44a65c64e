package gblsminsig_test

import (
	"context"
	"testing"

	"github.com/gordian-engine/gfinality/gcrypto"
	"github.com/gordian-engine/gfinality/gcrypto/gblsminsig"
	"github.com/gordian-engine/gfinality/gcrypto/gblsminsig/gblsminsigtest"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify_single(t *testing.T) {
	t.Parallel()

	ikm := make([]byte, 32)
	for i := range ikm {
		ikm[i] = byte(i)
	}

	s, err := gblsminsig.NewSigner(ikm)
	require.NoError(t, err)

	msg := []byte("hello world")

	sig, err := s.Sign(context.Background(), msg)
	require.NoError(t, err)
	require.Len(t, sig, gblsminsig.SignatureSize)

	require.True(t, s.PubKey().Verify(msg, sig))

	// Modifying the message fails verification.
	msg[0]++
	require.False(t, s.PubKey().Verify(msg, sig))
	msg[0]--

	// Modifying the signature fails verification too.
	sig[0]++
	require.False(t, s.PubKey().Verify(msg, sig))
}

func TestNewSigner_shortIKM(t *testing.T) {
	t.Parallel()

	_, err := gblsminsig.NewSigner(make([]byte, 31))
	require.Error(t, err)
}

func TestNewSigner_deterministic(t *testing.T) {
	t.Parallel()

	ikm := make([]byte, 32)
	ikm[5] = 9

	s1, err := gblsminsig.NewSigner(ikm)
	require.NoError(t, err)
	s2, err := gblsminsig.NewSigner(ikm)
	require.NoError(t, err)

	require.True(t, s1.PubKey().Equal(s2.PubKey()))
}

func TestNewPubKey_roundTrip(t *testing.T) {
	t.Parallel()

	s, err := gblsminsig.NewSigner(make([]byte, 32))
	require.NoError(t, err)

	b := s.PubKey().PubKeyBytes()
	require.Len(t, b, gblsminsig.PubKeySize)

	k, err := gblsminsig.NewPubKey(b)
	require.NoError(t, err)
	require.True(t, k.Equal(s.PubKey()))
}

func TestNewPubKey_malformed(t *testing.T) {
	t.Parallel()

	_, err := gblsminsig.NewPubKey(make([]byte, 12))
	require.ErrorIs(t, err, gcrypto.ErrInvalidPubKey)

	// Right length, but not a point.
	bad := make([]byte, gblsminsig.PubKeySize)
	for i := range bad {
		bad[i] = 0xff
	}
	_, err = gblsminsig.NewPubKey(bad)
	require.ErrorIs(t, err, gcrypto.ErrInvalidPubKey)
}

func TestProvePossession(t *testing.T) {
	t.Parallel()

	signers := gblsminsigtest.DeterministicSigners(2)
	pub0 := signers[0].PubKey().PubKeyBytes()
	pub1 := signers[1].PubKey().PubKeyBytes()

	proof0, err := signers[0].ProvePossession()
	require.NoError(t, err)
	require.Len(t, proof0, gblsminsig.SignatureSize)
	require.NoError(t, gblsminsig.VerifyPossession(pub0, proof0))

	t.Run("proof for another key", func(t *testing.T) {
		t.Parallel()
		require.ErrorIs(t, gblsminsig.VerifyPossession(pub1, proof0), gblsminsig.ErrInvalidPossession)
	})

	t.Run("ordinary signature over the key", func(t *testing.T) {
		t.Parallel()

		sig, err := signers[0].Sign(context.Background(), pub0)
		require.NoError(t, err)
		require.ErrorIs(t, gblsminsig.VerifyPossession(pub0, sig), gblsminsig.ErrInvalidPossession)
	})

	t.Run("identity proof", func(t *testing.T) {
		t.Parallel()
		require.ErrorIs(t, gblsminsig.VerifyPossession(pub0, identitySignature()), gblsminsig.ErrInvalidPossession)
	})

	t.Run("short proof", func(t *testing.T) {
		t.Parallel()
		require.ErrorIs(t, gblsminsig.VerifyPossession(pub0, proof0[:10]), gblsminsig.ErrInvalidPossession)
	})

	t.Run("malformed key", func(t *testing.T) {
		t.Parallel()
		require.ErrorIs(t, gblsminsig.VerifyPossession([]byte{1, 2, 3}, proof0), gcrypto.ErrInvalidPubKey)
	})
}

func TestPubKey_Verify_identitySignature(t *testing.T) {
	t.Parallel()

	s := gblsminsigtest.DeterministicSigners(1)[0]
	require.False(t, s.PubKey().Verify([]byte("hello"), identitySignature()))
}

// identitySignature is the compressed encoding of the G1 point at infinity.
func identitySignature() []byte {
	sig := make([]byte, gblsminsig.SignatureSize)
	sig[0] = 0xc0
	return sig
}
