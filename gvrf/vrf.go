package gvrf

import (
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	PrivateKeySize = 32
	PublicKeySize  = 32
	ProofSize      = 80
	OutputSize     = 32
)

var (
	ErrInvalidLength     = errors.New("invalid length")
	ErrInvalidPrivateKey = errors.New("invalid private key")
)

// VerifiableRandomFunction is a keyed function whose outputs look random
// to anyone without the private key, but which come with a proof
// that anyone holding the public key can check.
//
// Implementations must be deterministic and safe for concurrent use.
type VerifiableRandomFunction interface {
	// GenerateKeyPair derives a key pair from seed.
	// The same seed always yields the same pair.
	GenerateKeyPair(seed []byte) (PrivateKey, PublicKey, error)

	// Prove returns the proof and output for input under sk.
	// The only error case is a malformed private key.
	Prove(sk PrivateKey, input []byte) (Proof, Output, error)

	// Verify reports whether proof was produced by the private key matching pk
	// for exactly input, and whether output is the output of that proof.
	// Any mismatch yields false; Verify never errors.
	Verify(pk PublicKey, input []byte, proof Proof, output Output) bool
}

// PrivateKey is a VRF secret scalar.
// It belongs to exactly one validator process and is never sent to peers.
type PrivateKey [PrivateKeySize]byte

// PublicKey is the encoded group element matching a PrivateKey.
type PublicKey [PublicKeySize]byte

// Proof accompanies an Output so that peers can verify it.
type Proof [ProofSize]byte

// Output is the pseudorandom value derived from a Proof.
type Output [OutputSize]byte

// NewPrivateKey copies b into a PrivateKey, rejecting any other length.
func NewPrivateKey(b []byte) (PrivateKey, error) {
	var k PrivateKey
	return k, copyExact(k[:], b, "private key")
}

// NewPublicKey copies b into a PublicKey, rejecting any other length.
func NewPublicKey(b []byte) (PublicKey, error) {
	var k PublicKey
	return k, copyExact(k[:], b, "public key")
}

// NewProof copies b into a Proof, rejecting any other length.
func NewProof(b []byte) (Proof, error) {
	var p Proof
	return p, copyExact(p[:], b, "proof")
}

// NewOutput copies b into an Output, rejecting any other length.
func NewOutput(b []byte) (Output, error) {
	var o Output
	return o, copyExact(o[:], b, "output")
}

func copyExact(dst, src []byte, what string) error {
	if len(src) != len(dst) {
		return fmt.Errorf("%w: %s must be %d bytes, got %d", ErrInvalidLength, what, len(dst), len(src))
	}
	copy(dst, src)
	return nil
}

func (k PublicKey) String() string {
	return hex.EncodeToString(k[:])
}

// GoString keeps private key material out of %#v output.
func (PrivateKey) GoString() string {
	return "gvrf.PrivateKey{REDACTED}"
}

// String keeps private key material out of %v and %s output.
func (PrivateKey) String() string {
	return "REDACTED"
}
