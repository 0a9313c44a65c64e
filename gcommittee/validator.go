package gcommittee

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"

	"github.com/gordian-engine/gfinality/gvrf"
)

// ValidatorInfo is one member of a committee.
type ValidatorInfo struct {
	NodeID string

	// Encoded BLS public key, decoded by the signature scheme in use.
	BLSPubKey []byte

	VRFPubKey gvrf.PublicKey

	Stake uint64
}

// Equal reports whether v and other hold identical values.
func (v ValidatorInfo) Equal(other ValidatorInfo) bool {
	return v.NodeID == other.NodeID &&
		bytes.Equal(v.BLSPubKey, other.BLSPubKey) &&
		v.VRFPubKey == other.VRFPubKey &&
		v.Stake == other.Stake
}

// Clone returns a copy of v that shares no memory with it.
func (v ValidatorInfo) Clone() ValidatorInfo {
	v.BLSPubKey = bytes.Clone(v.BLSPubKey)
	return v
}

// EncodedSize is the length of v's canonical encoding.
func (v ValidatorInfo) EncodedSize() int {
	return uvarintLen(uint64(len(v.NodeID))) + len(v.NodeID) +
		uvarintLen(uint64(len(v.BLSPubKey))) + len(v.BLSPubKey) +
		gvrf.PublicKeySize +
		8
}

// AppendBinary appends the canonical encoding of v to dst:
//
//	uvarint(len(node_id)) || node_id || uvarint(len(bls_key)) || bls_key || vrf_key (32) || stake (8, big endian)
func (v ValidatorInfo) AppendBinary(dst []byte) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(v.NodeID)))
	dst = append(dst, v.NodeID...)
	dst = binary.AppendUvarint(dst, uint64(len(v.BLSPubKey)))
	dst = append(dst, v.BLSPubKey...)
	dst = append(dst, v.VRFPubKey[:]...)
	return binary.BigEndian.AppendUint64(dst, v.Stake)
}

// ValidatorsEncodedSize is the length of the canonical encoding of vals,
// a 4-byte count followed by each validator.
func ValidatorsEncodedSize(vals []ValidatorInfo) int {
	n := 4
	for _, v := range vals {
		n += v.EncodedSize()
	}
	return n
}

// HashValidators returns the SHA-256 digest of the canonical encoding of vals.
// Order is significant.
func HashValidators(vals []ValidatorInfo) [sha256.Size]byte {
	buf := make([]byte, 0, ValidatorsEncodedSize(vals))
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(vals)))
	for _, v := range vals {
		buf = v.AppendBinary(buf)
	}
	return sha256.Sum256(buf)
}

func uvarintLen(x uint64) int {
	var buf [binary.MaxVarintLen64]byte
	return binary.PutUvarint(buf[:], x)
}
