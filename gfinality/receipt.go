package gfinality

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/gordian-engine/gfinality/gmerkle"
)

const (
	txReceiptTag    byte = 0x10
	stateReceiptTag byte = 0x11
)

// Location identifies the block a receipt was committed in.
type Location struct {
	Height    uint64
	BlockHash gmerkle.Hash
}

// Receipt is one of [TxReceipt], [StateReceipt], or [HashedReceipt],
// passed by value.
// The set of variants is closed; see [ReceiptHash].
type Receipt interface {
	Location() Location

	isReceipt()
}

// TxReceipt records the outcome of a transaction.
type TxReceipt struct {
	Block Location

	TxHash  gmerkle.Hash
	Success bool
	GasUsed uint64
}

// StateReceipt records a state write.
type StateReceipt struct {
	Block Location

	Key       []byte
	ValueHash gmerkle.Hash
}

// HashedReceipt is a receipt whose hash was computed elsewhere,
// for receipt kinds this package does not model.
type HashedReceipt struct {
	Block Location

	Hash gmerkle.Hash
}

func (r TxReceipt) Location() Location     { return r.Block }
func (r StateReceipt) Location() Location  { return r.Block }
func (r HashedReceipt) Location() Location { return r.Block }

func (TxReceipt) isReceipt()     {}
func (StateReceipt) isReceipt()  {}
func (HashedReceipt) isReceipt() {}

// ReceiptHash returns the Merkle leaf value for r.
// The hash covers the block height but not the block hash,
// because the block hash is computed from the receipt hashes.
func ReceiptHash(r Receipt) (gmerkle.Hash, error) {
	switch r := r.(type) {
	case TxReceipt:
		var buf [1 + 8 + gmerkle.HashSize + 1 + 8]byte
		buf[0] = txReceiptTag
		binary.BigEndian.PutUint64(buf[1:], r.Block.Height)
		copy(buf[9:], r.TxHash[:])
		if r.Success {
			buf[9+gmerkle.HashSize] = 1
		}
		binary.BigEndian.PutUint64(buf[10+gmerkle.HashSize:], r.GasUsed)
		return sha256.Sum256(buf[:]), nil

	case StateReceipt:
		buf := make([]byte, 0, 1+8+binary.MaxVarintLen64+len(r.Key)+gmerkle.HashSize)
		buf = append(buf, stateReceiptTag)
		buf = binary.BigEndian.AppendUint64(buf, r.Block.Height)
		buf = binary.AppendUvarint(buf, uint64(len(r.Key)))
		buf = append(buf, r.Key...)
		buf = append(buf, r.ValueHash[:]...)
		return sha256.Sum256(buf), nil

	case HashedReceipt:
		return r.Hash, nil

	default:
		return gmerkle.Hash{}, fmt.Errorf("%w: %T", ErrUnknownReceiptKind, r)
	}
}
