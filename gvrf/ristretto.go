package gvrf

import (
	"bytes"
	"crypto/sha512"
	"fmt"
	"io"

	"github.com/cloudflare/circl/group"
	"golang.org/x/crypto/hkdf"
)

const (
	keyGenInfo    = "gfinality-vrf-keygen-v1"
	keyScalarDST  = "gfinality-vrf-v1-keyscalar"
	hashToGroupDS = "gfinality-vrf-v1-h2g_ristretto255_XMD:SHA-512_R255MAP_RO_"
	nonceDST      = "gfinality-vrf-v1-nonce"

	challengeTag = 0x02
	outputTag    = 0x03

	elementSize   = 32
	scalarSize    = 32
	challengeSize = 16
)

// groupOrder is the ristretto255 group order, little endian,
// used to reject non-canonical scalar encodings.
var groupOrder = [scalarSize]byte{
	0xed, 0xd3, 0xf5, 0x5c, 0x1a, 0x63, 0x12, 0x58,
	0xd6, 0x9c, 0xf7, 0xa2, 0xde, 0xf9, 0xde, 0x14,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10,
}

// Ristretto255 is the ristretto255 [VerifiableRandomFunction].
// The zero value is ready to use.
type Ristretto255 struct{}

var _ VerifiableRandomFunction = Ristretto255{}

var g = group.Ristretto255

// GenerateKeyPair expands seed with HKDF-SHA512 and maps the result to a non-zero scalar.
// Seeds should carry at least 32 bytes of entropy, but any seed is accepted,
// including an empty one.
func (Ristretto255) GenerateKeyPair(seed []byte) (PrivateKey, PublicKey, error) {
	okm := make([]byte, 64)
	if _, err := io.ReadFull(hkdf.New(sha512.New, seed, nil, []byte(keyGenInfo)), okm); err != nil {
		return PrivateKey{}, PublicKey{}, fmt.Errorf("expanding seed: %w", err)
	}

	x := g.HashToScalar(okm, []byte(keyScalarDST))
	if x.IsZero() {
		// Probability 2^-252; report it rather than produce an unusable key.
		return PrivateKey{}, PublicKey{}, fmt.Errorf("%w: seed maps to zero scalar", ErrInvalidPrivateKey)
	}

	var sk PrivateKey
	if err := marshalInto(sk[:], x); err != nil {
		return PrivateKey{}, PublicKey{}, err
	}

	var pk PublicKey
	if err := marshalInto(pk[:], g.NewElement().MulGen(x)); err != nil {
		return PrivateKey{}, PublicKey{}, err
	}

	return sk, pk, nil
}

// PublicKey returns the public key matching sk.
func (Ristretto255) PublicKey(sk PrivateKey) (PublicKey, error) {
	x, err := decodePrivateKey(sk)
	if err != nil {
		return PublicKey{}, err
	}

	var pk PublicKey
	if err := marshalInto(pk[:], g.NewElement().MulGen(x)); err != nil {
		return PublicKey{}, err
	}
	return pk, nil
}

func (Ristretto255) Prove(sk PrivateKey, input []byte) (Proof, Output, error) {
	x, err := decodePrivateKey(sk)
	if err != nil {
		return Proof{}, Output{}, err
	}

	pkBytes, err := g.NewElement().MulGen(x).MarshalBinary()
	if err != nil {
		return Proof{}, Output{}, fmt.Errorf("encoding public key: %w", err)
	}

	h := hashToGroup(pkBytes, input)
	hBytes, err := h.MarshalBinary()
	if err != nil {
		return Proof{}, Output{}, fmt.Errorf("encoding input point: %w", err)
	}

	gamma := g.NewElement().Mul(h, x)

	nonceMsg := make([]byte, 0, scalarSize+elementSize)
	nonceMsg = append(nonceMsg, sk[:]...)
	nonceMsg = append(nonceMsg, hBytes...)
	k := g.HashToScalar(nonceMsg, []byte(nonceDST))

	u := g.NewElement().MulGen(k)
	v := g.NewElement().Mul(h, k)

	cBytes, err := challenge(pkBytes, hBytes, gamma, u, v)
	if err != nil {
		return Proof{}, Output{}, err
	}
	c, err := challengeScalar(cBytes)
	if err != nil {
		return Proof{}, Output{}, err
	}

	s := g.NewScalar().Add(k, g.NewScalar().Mul(c, x))

	var proof Proof
	if err := marshalInto(proof[:elementSize], gamma); err != nil {
		return Proof{}, Output{}, err
	}
	copy(proof[elementSize:elementSize+challengeSize], cBytes)
	if err := marshalInto(proof[elementSize+challengeSize:], s); err != nil {
		return Proof{}, Output{}, err
	}

	return proof, outputFromGamma(proof[:elementSize]), nil
}

func (Ristretto255) Verify(pk PublicKey, input []byte, proof Proof, output Output) bool {
	y := g.NewElement()
	if err := y.UnmarshalBinary(pk[:]); err != nil || y.IsIdentity() {
		return false
	}

	gamma, c, s, ok := decodeProof(proof)
	if !ok {
		return false
	}

	h := hashToGroup(pk[:], input)
	hBytes, err := h.MarshalBinary()
	if err != nil {
		return false
	}

	// U = s*G - c*Y, V = s*H - c*Gamma.
	u := g.NewElement().Add(
		g.NewElement().MulGen(s),
		g.NewElement().Neg(g.NewElement().Mul(y, c)),
	)
	v := g.NewElement().Add(
		g.NewElement().Mul(h, s),
		g.NewElement().Neg(g.NewElement().Mul(gamma, c)),
	)

	want, err := challenge(pk[:], hBytes, gamma, u, v)
	if err != nil {
		return false
	}
	if !bytes.Equal(want, proof[elementSize:elementSize+challengeSize]) {
		return false
	}

	return outputFromGamma(proof[:elementSize]) == output
}

// ProofToOutput returns the output a valid proof commits to,
// without checking the proof against any key.
// It reports false if the proof is structurally malformed.
func (Ristretto255) ProofToOutput(proof Proof) (Output, bool) {
	if _, _, _, ok := decodeProof(proof); !ok {
		return Output{}, false
	}
	return outputFromGamma(proof[:elementSize]), true
}

func decodePrivateKey(sk PrivateKey) (group.Scalar, error) {
	if !isCanonicalScalar(sk[:]) {
		return nil, fmt.Errorf("%w: non-canonical scalar", ErrInvalidPrivateKey)
	}
	x := g.NewScalar()
	if err := x.UnmarshalBinary(sk[:]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPrivateKey, err)
	}
	if x.IsZero() {
		return nil, fmt.Errorf("%w: zero scalar", ErrInvalidPrivateKey)
	}
	return x, nil
}

func decodeProof(proof Proof) (gamma group.Element, c, s group.Scalar, ok bool) {
	gamma = g.NewElement()
	if err := gamma.UnmarshalBinary(proof[:elementSize]); err != nil || gamma.IsIdentity() {
		return nil, nil, nil, false
	}

	c, err := challengeScalar(proof[elementSize : elementSize+challengeSize])
	if err != nil {
		return nil, nil, nil, false
	}

	sBytes := proof[elementSize+challengeSize:]
	if !isCanonicalScalar(sBytes) {
		return nil, nil, nil, false
	}
	s = g.NewScalar()
	if err := s.UnmarshalBinary(sBytes); err != nil {
		return nil, nil, nil, false
	}

	return gamma, c, s, true
}

func hashToGroup(pk, input []byte) group.Element {
	msg := make([]byte, 0, len(pk)+len(input))
	msg = append(msg, pk...)
	msg = append(msg, input...)
	return g.HashToElement(msg, []byte(hashToGroupDS))
}

// challenge hashes the transcript and returns the truncated challenge bytes.
func challenge(pk, h []byte, gamma, u, v group.Element) ([]byte, error) {
	hh := sha512.New()
	hh.Write([]byte{challengeTag})
	hh.Write(pk)
	hh.Write(h)
	for _, e := range []group.Element{gamma, u, v} {
		b, err := e.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("encoding challenge point: %w", err)
		}
		hh.Write(b)
	}
	return hh.Sum(nil)[:challengeSize], nil
}

// challengeScalar interprets the 16 challenge bytes as a little endian scalar.
func challengeScalar(cBytes []byte) (group.Scalar, error) {
	var buf [scalarSize]byte
	copy(buf[:], cBytes)
	c := g.NewScalar()
	if err := c.UnmarshalBinary(buf[:]); err != nil {
		return nil, fmt.Errorf("decoding challenge: %w", err)
	}
	return c, nil
}

func outputFromGamma(gamma []byte) Output {
	hh := sha512.New()
	hh.Write([]byte{outputTag})
	hh.Write(gamma)

	var o Output
	copy(o[:], hh.Sum(nil))
	return o
}

func marshalInto(dst []byte, m interface{ MarshalBinary() ([]byte, error) }) error {
	b, err := m.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encoding group value: %w", err)
	}
	if len(b) != len(dst) {
		panic(fmt.Errorf("BUG: encoded group value has %d bytes, expected %d", len(b), len(dst)))
	}
	copy(dst, b)
	return nil
}

// isCanonicalScalar reports whether the little endian b is less than the group order.
func isCanonicalScalar(b []byte) bool {
	for i := scalarSize - 1; i >= 0; i-- {
		switch {
		case b[i] < groupOrder[i]:
			return true
		case b[i] > groupOrder[i]:
			return false
		}
	}
	return false
}
