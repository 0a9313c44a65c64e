// Package gfinalitytest provides validators with deterministic keys,
// along with blocks and votes for finality engine tests,
// and compliance tests for ProofStore implementations.
package gfinalitytest

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	petname "github.com/dustinkirkland/golang-petname"
	"github.com/gordian-engine/gfinality/gcommittee"
	"github.com/gordian-engine/gfinality/gcrypto/gblsminsig"
	"github.com/gordian-engine/gfinality/gcrypto/gblsminsig/gblsminsigtest"
	"github.com/gordian-engine/gfinality/gfinality"
	"github.com/gordian-engine/gfinality/gmerkle"
	"github.com/gordian-engine/gfinality/gthreshold"
	"github.com/gordian-engine/gfinality/gvrf"
)

// Fixture is a committee of validators whose keys are deterministic by index.
//
// Node IDs are readable names suffixed with the validator index.
// The names vary between fixtures and between runs,
// and so does [gcommittee.HashValidators] over the validators:
// an engine must trust the committee of the same fixture that votes.
type Fixture struct {
	Signers    []gblsminsig.Signer
	VRFKeys    []gvrf.PrivateKey
	Validators []gcommittee.ValidatorInfo

	// Prefix of signed finality messages.
	// Defaults to gfinality.DefaultDomainTag; set it to match a customized engine.
	DomainTag []byte
}

// NewFixture returns a Fixture with one validator per stake value.
func NewFixture(stakes ...uint64) *Fixture {
	n := len(stakes)
	f := &Fixture{
		Signers:    gblsminsigtest.DeterministicSigners(n),
		VRFKeys:    make([]gvrf.PrivateKey, n),
		Validators: make([]gcommittee.ValidatorInfo, n),
		DomainTag:  []byte(gfinality.DefaultDomainTag),
	}

	var vrf gvrf.Ristretto255
	for i, stake := range stakes {
		sk, pk, err := vrf.GenerateKeyPair([]byte(fmt.Sprintf("gfinalitytest vrf seed %d", i)))
		if err != nil {
			panic(fmt.Errorf("failed to generate VRF key %d: %w", i, err))
		}
		f.VRFKeys[i] = sk

		f.Validators[i] = gcommittee.ValidatorInfo{
			NodeID:    fmt.Sprintf("%s-%d", petname.Generate(2, "-"), i),
			BLSPubKey: f.Signers[i].PubKey().PubKeyBytes(),
			VRFPubKey: pk,
			Stake:     stake,
		}
	}

	return f
}

// Possession returns each validator's BLS proof of possession, in index order.
func (f *Fixture) Possession() [][]byte {
	out := make([][]byte, len(f.Signers))
	for i, s := range f.Signers {
		proof, err := s.ProvePossession()
		if err != nil {
			panic(fmt.Errorf("failed to prove possession for validator %d: %w", i, err))
		}
		out[i] = proof
	}
	return out
}

// Committee returns the fixture's validators as a registered committee for epoch.
func (f *Fixture) Committee(epoch uint64) *gcommittee.Committee {
	c, err := gcommittee.NewRegisteredCommittee(epoch, f.Validators, f.Possession())
	if err != nil {
		panic(fmt.Errorf("failed to build fixture committee: %w", err))
	}
	return c
}

// Block is a block of receipts whose hash is the Merkle root of their hashes.
type Block struct {
	Height uint64
	Hash   gmerkle.Hash

	Receipts      []gfinality.Receipt
	ReceiptHashes []gmerkle.Hash
}

// NewBlock returns a block at height with n receipts,
// cycling through the transaction, state, and pre-hashed receipt kinds.
// The same arguments always produce the same block.
func (f *Fixture) NewBlock(height uint64, n int) Block {
	b := Block{
		Height:        height,
		Receipts:      make([]gfinality.Receipt, n),
		ReceiptHashes: make([]gmerkle.Hash, n),
	}

	// Receipt hashes do not depend on the block hash,
	// so hash first and fill in the location afterwards.
	loc := gfinality.Location{Height: height}
	for i := range n {
		b.Receipts[i] = receipt(loc, i)
	}
	for i, r := range b.Receipts {
		h, err := gfinality.ReceiptHash(r)
		if err != nil {
			panic(fmt.Errorf("BUG: hashing fixture receipt %d: %w", i, err))
		}
		b.ReceiptHashes[i] = h
	}

	b.Hash = gmerkle.Build(b.ReceiptHashes).Root()
	loc.BlockHash = b.Hash
	for i := range b.Receipts {
		b.Receipts[i] = receipt(loc, i)
	}

	return b
}

func receipt(loc gfinality.Location, i int) gfinality.Receipt {
	seed := func(kind string) gmerkle.Hash {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(i))
		return sha256.Sum256(append([]byte(kind), buf[:]...))
	}

	switch i % 3 {
	case 0:
		return gfinality.TxReceipt{
			Block:   loc,
			TxHash:  seed("tx"),
			Success: i%2 == 0,
			GasUsed: uint64(21_000 + i),
		}
	case 1:
		return gfinality.StateReceipt{
			Block:     loc,
			Key:       []byte(fmt.Sprintf("account/%d/balance", i)),
			ValueHash: seed("value"),
		}
	default:
		return gfinality.HashedReceipt{
			Block: loc,
			Hash:  seed("external"),
		}
	}
}

// Votes returns votes from the validators at idxs,
// signing the finality message for b in round.
func (f *Fixture) Votes(b Block, round uint32, idxs ...int) []gthreshold.Vote {
	msg := gfinality.SignBytes(f.DomainTag, b.Hash, b.Height, round)

	votes := make([]gthreshold.Vote, len(idxs))
	for i, idx := range idxs {
		sig, err := f.Signers[idx].Sign(context.Background(), msg)
		if err != nil {
			panic(fmt.Errorf("failed to sign vote for validator %d: %w", idx, err))
		}
		votes[i] = gthreshold.Vote{ValidatorIndex: idx, Signature: sig}
	}
	return votes
}
