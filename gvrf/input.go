package gvrf

import "encoding/binary"

const electionInputTag = "gfinality/leader-election/v1"

// ElectionInput returns the canonical VRF input for proposer election
// at the given epoch, height, and round:
//
//	tag || epoch (8, big endian) || height (8, big endian) || round (4, big endian)
//
// Every node must hash the same bytes for proofs to be comparable.
func ElectionInput(epoch, height uint64, round uint32) []byte {
	out := make([]byte, len(electionInputTag)+8+8+4)
	n := copy(out, electionInputTag)
	binary.BigEndian.PutUint64(out[n:], epoch)
	binary.BigEndian.PutUint64(out[n+8:], height)
	binary.BigEndian.PutUint32(out[n+16:], round)
	return out
}
