package gfinality

import (
	"context"
	"fmt"
	"time"

	"github.com/gordian-engine/gfinality/gcommittee"
	"github.com/gordian-engine/gfinality/gmerkle"
	"github.com/gordian-engine/gfinality/gthreshold"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// certificateCheck is the part of verification shared by every receipt
// certified by the same signature.
type certificateCheck struct {
	signers int
	total   int

	thresholdMet     bool
	signatureValid   bool
	committeeMatched bool
}

func (c certificateCheck) result(inclusionValid bool) FinalityVerification {
	return FinalityVerification{
		IsValid: c.thresholdMet && inclusionValid && c.signatureValid && c.committeeMatched,

		SignaturesVerified: c.signers,
		TotalValidators:    c.total,

		ThresholdMet:     c.thresholdMet,
		InclusionValid:   inclusionValid,
		SignatureValid:   c.signatureValid,
		CommitteeMatched: c.committeeMatched,

		VerifiedAt: time.Now(),
	}
}

// VerifyFinalityProof independently checks p for the receipt with hash receiptHash.
// It requires p's validator set to be the engine's current committee,
// and recomputes the quorum from the bitmap and the validator set,
// the inclusion of receiptHash under p.BlockHash,
// and the aggregate signature over [Engine.SignBytes] by the bitmap's validators.
//
// Verification never fails with an error;
// the returned FinalityVerification reports each check.
func (e *Engine) VerifyFinalityProof(
	ctx context.Context, p FinalityProof, receiptHash gmerkle.Hash,
) FinalityVerification {
	ctx, span := e.tracer.Start(ctx, "Engine.VerifyFinalityProof", trace.WithAttributes(
		attribute.Int64("height", int64(p.BlockHeight)),
		attribute.Int64("round", int64(p.CommitRound)),
	))
	defer span.End()

	c := e.checkCertificate(ctx, p)
	v := c.result(verifyInclusion(p.InclusionProof, p.BlockHash, receiptHash))

	span.SetAttributes(attribute.Bool("valid", v.IsValid))
	e.metrics.verified(v.IsValid)
	e.logVerification(p, receiptHash, v)

	return v
}

// VerifyBatchFinalityProof checks b against receiptHashes,
// which must be in the same order as the batch's inclusion proofs.
// The signature is checked once; the inclusion proofs are checked in parallel,
// at most Config.VerifyConcurrency at a time.
//
// Errors are only returned for a malformed request
// (an empty batch or mismatched counts) or a cancelled context.
// Invalid proofs are reported through the returned results, one per receipt.
func (e *Engine) VerifyBatchFinalityProof(
	ctx context.Context, b BatchFinalityProof, receiptHashes []gmerkle.Hash,
) ([]FinalityVerification, error) {
	if b.Len() == 0 {
		return nil, ErrEmptyBatch
	}
	if len(receiptHashes) != b.Len() {
		return nil, fmt.Errorf(
			"%w: %d receipt hashes for %d inclusion proofs",
			ErrReceiptCountMismatch, len(receiptHashes), b.Len(),
		)
	}

	ctx, span := e.tracer.Start(ctx, "Engine.VerifyBatchFinalityProof", trace.WithAttributes(
		attribute.Int64("height", int64(b.BlockHeight)),
		attribute.Int("receipts", b.Len()),
	))
	defer span.End()

	c := e.checkCertificate(ctx, b.FinalityProof)

	out := make([]FinalityVerification, b.Len())
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(e.cfg.VerifyConcurrency)
	for i, rh := range receiptHashes {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			out[i] = c.result(verifyInclusion(b.InclusionProofs[i], b.BlockHash, rh))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("batch verification interrupted: %w", err)
	}

	valid := 0
	for _, v := range out {
		e.metrics.verified(v.IsValid)
		if v.IsValid {
			valid++
		}
	}
	span.SetAttributes(attribute.Int("valid", valid))

	if valid < len(out) {
		e.log.Info(
			"Batch finality proof failed verification",
			"height", b.BlockHeight, "round", b.CommitRound,
			"valid", valid, "receipts", len(out),
			"threshold_met", c.thresholdMet, "signature_valid", c.signatureValid,
			"committee_matched", c.committeeMatched,
		)
	}

	return out, nil
}

func verifyInclusion(p gmerkle.Proof, blockHash, receiptHash gmerkle.Hash) bool {
	return p.LeafHash == receiptHash && p.Verify(blockHash)
}

func (e *Engine) checkCertificate(ctx context.Context, p FinalityProof) certificateCheck {
	_, span := e.tracer.Start(ctx, "Engine.checkCertificate")
	defer span.End()

	n := len(p.ValidatorSet)
	c := certificateCheck{
		signers: p.ValidatorBitmap.Count(),
		total:   n,

		// The proof's own validator set is never trusted;
		// it must encode identically to the current committee.
		committeeMatched: gcommittee.HashValidators(p.ValidatorSet) == e.committees.Load().Hash(),
	}

	// A bitmap that does not fit the validator set cannot be interpreted,
	// so neither the quorum nor the signature can hold.
	wellFormed := n > 0 && len(p.ValidatorBitmap) == (n+7)/8 && !p.ValidatorBitmap.HasBitsBeyond(n)
	c.thresholdMet = wellFormed && c.signers >= gthreshold.Quorum(n)

	if wellFormed && c.signers > 0 {
		keys, err := e.decodeKeys(p.ValidatorSet)
		if err == nil {
			msg := e.SignBytes(p.BlockHash, p.BlockHeight, p.CommitRound)
			c.signatureValid = gthreshold.Verify(e.scheme, msg, p.AggregateSignature, p.ValidatorBitmap, keys)
		} else {
			e.log.Debug("Finality proof has undecodable validator key", "height", p.BlockHeight, "err", err)
		}
	}

	return c
}

func (e *Engine) logVerification(p FinalityProof, receiptHash gmerkle.Hash, v FinalityVerification) {
	if v.IsValid {
		e.log.Debug(
			"Verified finality proof",
			"height", p.BlockHeight, "round", p.CommitRound, "receipt", receiptHash,
			"signers", v.SignaturesVerified, "validators", v.TotalValidators,
		)
		return
	}

	e.log.Info(
		"Finality proof failed verification",
		"height", p.BlockHeight, "round", p.CommitRound, "receipt", receiptHash,
		"signers", v.SignaturesVerified, "validators", v.TotalValidators,
		"threshold_met", v.ThresholdMet, "inclusion_valid", v.InclusionValid,
		"signature_valid", v.SignatureValid, "committee_matched", v.CommitteeMatched,
	)
}
