package gfinality_test

import (
	"testing"

	"github.com/gordian-engine/gfinality/gfinality"
	"github.com/gordian-engine/gfinality/gmerkle"
	"github.com/stretchr/testify/require"
)

func TestReceiptHash(t *testing.T) {
	t.Parallel()

	loc := gfinality.Location{Height: 5, BlockHash: gmerkle.Hash{0xbb}}

	tx := gfinality.TxReceipt{Block: loc, TxHash: gmerkle.Hash{1}, Success: true, GasUsed: 100}
	base, err := gfinality.ReceiptHash(tx)
	require.NoError(t, err)

	// The block hash is not part of the receipt hash.
	moved := tx
	moved.Block.BlockHash = gmerkle.Hash{0xcc}
	h, err := gfinality.ReceiptHash(moved)
	require.NoError(t, err)
	require.Equal(t, base, h)

	// Every other field is.
	for name, modify := range map[string]func(*gfinality.TxReceipt){
		"height":   func(r *gfinality.TxReceipt) { r.Block.Height++ },
		"tx hash":  func(r *gfinality.TxReceipt) { r.TxHash[0]++ },
		"success":  func(r *gfinality.TxReceipt) { r.Success = false },
		"gas used": func(r *gfinality.TxReceipt) { r.GasUsed++ },
	} {
		r := tx
		modify(&r)
		h, err := gfinality.ReceiptHash(r)
		require.NoError(t, err)
		require.NotEqual(t, base, h, name)
	}

	// Key length is encoded, so the key and value cannot be shifted into each other.
	s1, err := gfinality.ReceiptHash(gfinality.StateReceipt{Block: loc, Key: []byte("ab")})
	require.NoError(t, err)
	s2, err := gfinality.ReceiptHash(gfinality.StateReceipt{Block: loc, Key: []byte("a")})
	require.NoError(t, err)
	require.NotEqual(t, s1, s2)

	// Pre-hashed receipts pass through.
	pre, err := gfinality.ReceiptHash(gfinality.HashedReceipt{Block: loc, Hash: gmerkle.Hash{7}})
	require.NoError(t, err)
	require.Equal(t, gmerkle.Hash{7}, pre)

	require.Equal(t, loc, tx.Location())
}

func TestReceiptHash_unknownKind(t *testing.T) {
	t.Parallel()

	_, err := gfinality.ReceiptHash(nil)
	require.ErrorIs(t, err, gfinality.ErrUnknownReceiptKind)

	_, err = gfinality.ReceiptHash(&gfinality.TxReceipt{})
	require.ErrorIs(t, err, gfinality.ErrUnknownReceiptKind)
}
