// Package gfinality turns a quorum of validator votes into a [FinalityProof]:
// a compact, independently verifiable certificate that a block,
// and a given receipt within it, are irreversibly committed.
//
// A FinalityProof combines three things:
//   - an aggregate threshold signature over the block hash, height, and round (see [SignBytes]),
//   - a bitmap of the validators that contributed to it, interpreted against the proof's validator set,
//   - a Merkle inclusion proof for the receipt under the block hash.
//
// The block hash is the Merkle root of the block's receipt hashes,
// so the signature and the inclusion proof commit to the same value.
//
// Receipts enter the package through the [Receipt] sum type.
// Past [ReceiptHash], the engine only deals in hashes.
//
// The [Engine] generates and verifies proofs.
// Generation runs every structural check (receipt presence, quorum size,
// duplicate voters, block hash) before any cryptographic work.
// Verification only accepts a proof whose validator set is the committee
// the engine was built to trust; a proof cannot vouch for its own signers.
// It never returns an error for an invalid proof;
// it returns a [FinalityVerification] describing which checks passed.
//
// [Engine.WaitForFinality] is the only blocking call.
// It returns as soon as a proof for the receipt is generated by the same engine
// or found in its [ProofStore], and otherwise fails with [ErrFinalityTimeout].
package gfinality
