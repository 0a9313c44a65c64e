// Package gcommittee holds the per-epoch validator roster.
//
// A [Committee] is an immutable snapshot: it is built once at an epoch boundary
// and never modified, so readers need no locks.
// A [Holder] publishes the current Committee and replaces it atomically,
// so concurrent readers observe either the old roster or the new one, never a mix.
package gcommittee
