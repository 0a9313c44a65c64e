// Package gthreshold turns a set of per-validator votes into
// one aggregate signature plus a validator bitmap,
// and defines the byzantine quorum rule shared by generation and verification.
//
// The signature arithmetic is delegated to a [gcrypto.ThresholdSignatureScheme];
// this package only tracks who signed.
package gthreshold
