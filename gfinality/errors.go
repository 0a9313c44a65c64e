package gfinality

import "errors"

// Structural errors, reported before any cryptographic work.
var (
	ErrReceiptNotFound      = errors.New("receipt not found in block receipts")
	ErrMixedBlockReceipts   = errors.New("receipts belong to different blocks")
	ErrEmptyBatch           = errors.New("empty receipt batch")
	ErrEmptyValidatorSet    = errors.New("empty validator set")
	ErrUnknownReceiptKind   = errors.New("unknown receipt kind")
	ErrBlockHashMismatch    = errors.New("block hash does not match receipts root")
	ErrReceiptCountMismatch = errors.New("receipt count does not match inclusion proofs")
)

var (
	// ErrInsufficientSignatures is returned when the votes cannot reach a quorum.
	// No proof is produced.
	ErrInsufficientSignatures = errors.New("insufficient signatures for quorum")

	// ErrInvalidAggregateSignature is returned when the assembled aggregate
	// does not verify, meaning at least one vote signed something else.
	ErrInvalidAggregateSignature = errors.New("aggregate signature does not verify")

	ErrInvalidVoteSignature = errors.New("vote signature does not verify")

	// ErrFinalityTimeout means finality was not reached before the deadline.
	// It does not mean the receipt is invalid.
	ErrFinalityTimeout = errors.New("timed out waiting for finality")

	ErrProofNotFound = errors.New("finality proof not found")

	ErrInvalidConfig = errors.New("invalid config")
)
