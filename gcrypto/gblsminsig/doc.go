// Package gblsminsig wraps [github.com/supranational/blst/bindings/go]
// to provide BLS12-381 keys with minimized signatures
// (48-byte G1 signatures, 96-byte G2 public keys),
// and an [AggregationScheme] that satisfies [gcrypto.ThresholdSignatureScheme]
// by adding signature points together.
//
// Keys are favored over signatures for size because a finality proof
// carries one aggregate signature but is verified against a roster
// that verifiers already hold.
//
// The blst dependency requires CGo,
// so therefore this package also requires CGo.
//
// Two key references for correctly understanding and using BLS keys are
// [RFC9380] (Hashing to Elliptic Curves)
// and the IETF draft for [BLS Signatures].
//
// [RFC9380]: https://www.rfc-editor.org/rfc/rfc9380.html
// [BLS Signatures]: https://datatracker.ietf.org/doc/html/draft-irtf-cfrg-bls-signature-05
package gblsminsig
