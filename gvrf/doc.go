// Package gvrf provides the verifiable random function used for leader election.
//
// A validator proves over a public input (see [ElectionInput])
// with its [PrivateKey], producing an [Output] and a [Proof].
// Any peer holding the [PublicKey] can check the pair with Verify
// and then feed the output into stake-weighted selection.
//
// The [VerifiableRandomFunction] interface keeps callers independent of the construction.
// [Ristretto255] is an ECVRF-style construction over the ristretto255 group:
//
//	H = hash_to_group(pk || alpha)
//	Gamma = x*H
//	k = hash_to_scalar(x || H)
//	c = first 16 bytes of SHA-512(tag || pk || H || Gamma || k*G || k*H)
//	s = k + c*x
//	proof = Gamma || c || s (80 bytes)
//	output = first 32 bytes of SHA-512(tag || Gamma)
//
// Proofs are deterministic: the same key and input always give the same bytes.
// The byte layout is not intended to interoperate with RFC 9381 implementations.
package gvrf
