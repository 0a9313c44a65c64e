package gblsminsig

import (
	"context"
	"errors"
	"fmt"

	"github.com/gordian-engine/gfinality/gcrypto"
	blst "github.com/supranational/blst/bindings/go"
)

// DomainSeparationTag follows the ciphersuite format from
// draft-irtf-cfrg-bls-signature-05, section 4.1:
//
//	"BLS_SIG_" || H2C_SUITE_ID || SC_TAG || "_"
//
// with the RFC9380 hash-to-curve suite for G1 (where min-sig signatures live)
// and the "NUL" tag of the basic scheme.
//
// Aggregate verification in this package only ever aggregates signatures
// over one common message. That is only sound against rogue keys
// when every aggregated key has a proof of possession,
// checked once when the key joins a roster; see [VerifyPossession].
// Validating each key on decode does not cover it.
var DomainSeparationTag = []byte("BLS_SIG_BLS12381G1_XMD:SHA-256_SSWU_RO_NUL_")

// PossessionTag is the domain separation tag for proofs of possession,
// from section 4.2.3 of the same draft.
// It differs from [DomainSeparationTag] so that no ordinary signature
// can be presented as a proof of possession.
var PossessionTag = []byte("BLS_POP_BLS12381G1_XMD:SHA-256_SSWU_RO_POP_")

// ErrInvalidPossession is returned by [VerifyPossession]
// for a proof that does not match its public key.
var ErrInvalidPossession = errors.New("invalid proof of possession")

// keyGenSalt is the KeyGen salt used by [NewSigner].
// Changing it changes every derived key.
var keyGenSalt = []byte("GFINALITY-BLS-KEYGEN-SALT-")

const (
	// PubKeySize is the size of a compressed G2 public key.
	PubKeySize = blst.BLST_P2_COMPRESS_BYTES

	// SignatureSize is the size of a compressed G1 signature.
	SignatureSize = blst.BLST_P1_COMPRESS_BYTES
)

// PubKey wraps a blst.P2Affine and satisfies [gcrypto.PubKey].
type PubKey blst.P2Affine

// NewPubKey decodes a compressed P2 affine point.
// The point must be on the curve, in the right subgroup, and not the identity.
func NewPubKey(b []byte) (PubKey, error) {
	if len(b) != PubKeySize {
		return PubKey{}, fmt.Errorf(
			"%w: expected %d compressed bytes, got %d",
			gcrypto.ErrInvalidPubKey, PubKeySize, len(b),
		)
	}

	p2a := new(blst.P2Affine).Uncompress(b)
	if p2a == nil {
		return PubKey{}, fmt.Errorf("%w: failed to decompress input", gcrypto.ErrInvalidPubKey)
	}

	if !p2a.KeyValidate() {
		return PubKey{}, fmt.Errorf("%w: key failed validation", gcrypto.ErrInvalidPubKey)
	}

	return PubKey(*p2a), nil
}

// Equal reports whether other is the same BLS public key as k.
func (k PubKey) Equal(other gcrypto.PubKey) bool {
	o, ok := other.(PubKey)
	if !ok {
		return false
	}

	p2k := blst.P2Affine(k)
	p2o := blst.P2Affine(o)
	return p2k.Equals(&p2o)
}

// PubKeyBytes returns the compressed encoding of k.
func (k PubKey) PubKeyBytes() []byte {
	p2a := blst.P2Affine(k)
	return p2a.Compress()
}

// Verify reports whether sig is k's signature over msg.
// The signature must be a compressed P1 point.
func (k PubKey) Verify(msg, sig []byte) bool {
	if len(sig) != SignatureSize {
		return false
	}

	p1a := new(blst.P1Affine).Uncompress(sig)
	if p1a == nil {
		return false
	}

	// Group check on the signature, rejecting the identity point;
	// the key was validated on decode.
	if !p1a.SigValidate(true) {
		return false
	}

	p2a := blst.P2Affine(k)
	return p1a.Verify(false, &p2a, false, blst.Message(msg), DomainSeparationTag)
}

// Signer satisfies [gcrypto.Signer] for min-sig BLS.
type Signer struct {
	secret blst.SecretKey

	// Public key point derived from secret.
	point blst.P2Affine
}

// NewSigner derives a signer from the given key material,
// which must be at least 32 bytes and should be cryptographically random.
func NewSigner(ikm []byte) (Signer, error) {
	if len(ikm) < blst.BLST_SCALAR_BYTES {
		return Signer{}, fmt.Errorf(
			"ikm data too short: got %d, need at least %d",
			len(ikm), blst.BLST_SCALAR_BYTES,
		)
	}

	secret := blst.KeyGenV5(ikm, keyGenSalt)
	if secret == nil {
		return Signer{}, errors.New("failed to derive secret key")
	}

	point := new(blst.P2Affine).From(secret)

	return Signer{
		secret: *secret,
		point:  *point,
	}, nil
}

// PubKey returns the [PubKey] for s.
func (s Signer) PubKey() gcrypto.PubKey {
	return PubKey(s.point)
}

// Sign returns the compressed G1 signature over input,
// using [DomainSeparationTag].
func (s Signer) Sign(_ context.Context, input []byte) ([]byte, error) {
	sig := new(blst.P1Affine).Sign(&s.secret, input, DomainSeparationTag, true)
	if sig == nil {
		return nil, errors.New("failed to sign")
	}

	return sig.Compress(), nil
}

// ProvePossession returns a proof that s holds the secret key for its public key.
// The proof is a signature over the compressed public key under [PossessionTag].
func (s Signer) ProvePossession() ([]byte, error) {
	proof := new(blst.P1Affine).Sign(&s.secret, s.point.Compress(), PossessionTag, true)
	if proof == nil {
		return nil, errors.New("failed to sign proof of possession")
	}

	return proof.Compress(), nil
}

// VerifyPossession checks proof, as made by [Signer.ProvePossession],
// for the compressed public key pubKey.
func VerifyPossession(pubKey, proof []byte) error {
	k, err := NewPubKey(pubKey)
	if err != nil {
		return err
	}

	if len(proof) != SignatureSize {
		return fmt.Errorf(
			"%w: proof of possession has length %d, expected %d",
			ErrInvalidPossession, len(proof), SignatureSize,
		)
	}

	p1a := new(blst.P1Affine).Uncompress(proof)
	if p1a == nil || !p1a.SigValidate(true) {
		return fmt.Errorf("%w: malformed proof", ErrInvalidPossession)
	}

	p2a := blst.P2Affine(k)
	if !p1a.Verify(false, &p2a, false, blst.Message(p2a.Compress()), PossessionTag) {
		return ErrInvalidPossession
	}
	return nil
}
