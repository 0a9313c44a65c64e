package gfinality

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/gordian-engine/gfinality/gcommittee"
	"github.com/gordian-engine/gfinality/gcrypto"
	"github.com/gordian-engine/gfinality/gcrypto/gblsminsig"
	"github.com/gordian-engine/gfinality/gmerkle"
	"github.com/gordian-engine/gfinality/gthreshold"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Engine generates and verifies finality proofs.
// All methods are safe for concurrent use.
type Engine struct {
	log *slog.Logger

	cfg       Config
	domainTag []byte

	scheme     gcrypto.ThresholdSignatureScheme
	store      ProofStore
	metrics    *Metrics
	tracer     trace.Tracer
	committees *gcommittee.Holder

	mu      sync.Mutex
	waiters map[gmerkle.Hash]map[chan FinalityProof]struct{}
}

// NewEngine returns an Engine using cfg.
//
// Verification only accepts proofs whose validator set
// is exactly the committee currently held in committees.
// NewEngine panics if committees is nil.
//
// Unless overridden by opts, the engine logs to [slog.Default],
// aggregates with BLS min-sig, and keeps proofs in a [MemProofStore].
func NewEngine(cfg Config, committees *gcommittee.Holder, opts ...Option) (*Engine, error) {
	if committees == nil {
		panic(errors.New("BUG: NewEngine called with nil committee holder"))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:        cfg,
		domainTag:  []byte(cfg.DomainTag),
		committees: committees,
		waiters:    make(map[gmerkle.Hash]map[chan FinalityProof]struct{}),
	}
	for _, o := range opts {
		o(e)
	}

	if e.log == nil {
		e.log = slog.Default()
	}
	if e.tracer == nil {
		e.tracer = noop.NewTracerProvider().Tracer("gfinality")
	}
	if e.scheme == nil {
		s, err := gblsminsig.NewAggregationScheme(cfg.KeyCacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create signature scheme: %w", err)
		}
		e.scheme = s
	}
	if e.store == nil {
		s, err := NewMemProofStore(cfg.ProofCacheSize)
		if err != nil {
			return nil, err
		}
		e.store = s
	}

	return e, nil
}

// SignBytes is [SignBytes] with the engine's domain tag.
// Validators sign these bytes to vote for finality.
func (e *Engine) SignBytes(blockHash gmerkle.Hash, height uint64, round uint32) []byte {
	return SignBytes(e.domainTag, blockHash, height, round)
}

// GenerateFinalityProof certifies receipt, which must be one of blockReceipts,
// using votes from vals in round.
//
// The Merkle root of blockReceipts must equal the block hash in receipt's Location.
// Generation fails with [ErrInsufficientSignatures] when fewer than
// a quorum of vals voted, and no proof is produced.
//
// On success, the proof is saved to the engine's ProofStore
// and delivered to any WaitForFinality callers for the receipt.
func (e *Engine) GenerateFinalityProof(
	ctx context.Context,
	receipt Receipt,
	blockReceipts []gmerkle.Hash,
	round uint32,
	votes []gthreshold.Vote,
	vals []gcommittee.ValidatorInfo,
) (FinalityProof, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.GenerateFinalityProof", trace.WithAttributes(
		attribute.Int("receipts", len(blockReceipts)),
		attribute.Int("votes", len(votes)),
		attribute.Int("validators", len(vals)),
	))
	defer span.End()

	p, rh, err := e.generate(ctx, receipt, blockReceipts, round, votes, vals)
	if err != nil {
		e.generationFailed(span, err, "round", round, "votes", len(votes), "validators", len(vals))
		return FinalityProof{}, err
	}

	e.metrics.proofsGenerated(1)
	e.log.Debug(
		"Generated finality proof",
		"height", p.BlockHeight, "round", round,
		"block_hash", p.BlockHash, "receipt", rh,
		"signers", p.ValidatorBitmap.Count(), "validators", len(vals),
	)

	e.publish(ctx, rh, p)
	return p, nil
}

func (e *Engine) generate(
	ctx context.Context,
	receipt Receipt,
	blockReceipts []gmerkle.Hash,
	round uint32,
	votes []gthreshold.Vote,
	vals []gcommittee.ValidatorInfo,
) (FinalityProof, gmerkle.Hash, error) {
	rh, err := ReceiptHash(receipt)
	if err != nil {
		return FinalityProof{}, gmerkle.Hash{}, err
	}
	loc := receipt.Location()

	idx := slices.Index(blockReceipts, rh)
	if idx < 0 {
		return FinalityProof{}, rh, fmt.Errorf(
			"%w: receipt %s at height %d", ErrReceiptNotFound, rh, loc.Height,
		)
	}

	if err := checkVotes(votes, len(vals)); err != nil {
		return FinalityProof{}, rh, err
	}

	tree := gmerkle.Build(blockReceipts)
	if root := tree.Root(); root != loc.BlockHash {
		return FinalityProof{}, rh, fmt.Errorf(
			"%w: receipts root %s, block hash %s", ErrBlockHashMismatch, root, loc.BlockHash,
		)
	}

	inclusion, err := tree.Proof(idx)
	if err != nil {
		panic(fmt.Errorf("BUG: proof for located receipt index %d: %w", idx, err))
	}

	agg, bitmap, err := e.certify(ctx, loc, round, votes, vals)
	if err != nil {
		return FinalityProof{}, rh, err
	}

	return FinalityProof{
		BlockHeight:        loc.Height,
		BlockHash:          loc.BlockHash,
		CommitRound:        round,
		AggregateSignature: agg,
		ValidatorBitmap:    bitmap,
		ValidatorSet:       cloneValidators(vals),
		InclusionProof:     inclusion,
	}, rh, nil
}

// GenerateBatchFinalityProof certifies every receipt of one block with a single aggregate.
// The receipts must all share one Location, and together they must be
// the block's complete receipt list, in block order,
// so that their Merkle root equals the block hash.
func (e *Engine) GenerateBatchFinalityProof(
	ctx context.Context,
	receipts []Receipt,
	round uint32,
	votes []gthreshold.Vote,
	vals []gcommittee.ValidatorInfo,
) (BatchFinalityProof, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.GenerateBatchFinalityProof", trace.WithAttributes(
		attribute.Int("receipts", len(receipts)),
		attribute.Int("votes", len(votes)),
		attribute.Int("validators", len(vals)),
	))
	defer span.End()

	b, hashes, err := e.generateBatch(ctx, receipts, round, votes, vals)
	if err != nil {
		e.generationFailed(span, err, "round", round, "receipts", len(receipts), "votes", len(votes))
		return BatchFinalityProof{}, err
	}

	e.metrics.proofsGenerated(len(hashes))
	e.log.Debug(
		"Generated batch finality proof",
		"height", b.BlockHeight, "round", round,
		"block_hash", b.BlockHash, "receipts", len(hashes),
		"signers", b.ValidatorBitmap.Count(), "validators", len(vals),
	)

	for i, rh := range hashes {
		e.publish(ctx, rh, b.ProofAt(i))
	}

	return b, nil
}

func (e *Engine) generateBatch(
	ctx context.Context,
	receipts []Receipt,
	round uint32,
	votes []gthreshold.Vote,
	vals []gcommittee.ValidatorInfo,
) (BatchFinalityProof, []gmerkle.Hash, error) {
	if len(receipts) == 0 {
		return BatchFinalityProof{}, nil, ErrEmptyBatch
	}

	hashes := make([]gmerkle.Hash, len(receipts))
	loc := receipts[0].Location()
	for i, r := range receipts {
		if rl := r.Location(); rl != loc {
			return BatchFinalityProof{}, nil, fmt.Errorf(
				"%w: receipt 0 at height %d (%s), receipt %d at height %d (%s)",
				ErrMixedBlockReceipts, loc.Height, loc.BlockHash, i, rl.Height, rl.BlockHash,
			)
		}

		h, err := ReceiptHash(r)
		if err != nil {
			return BatchFinalityProof{}, nil, fmt.Errorf("receipt %d: %w", i, err)
		}
		hashes[i] = h
	}

	if err := checkVotes(votes, len(vals)); err != nil {
		return BatchFinalityProof{}, nil, err
	}

	tree := gmerkle.Build(hashes)
	if root := tree.Root(); root != loc.BlockHash {
		return BatchFinalityProof{}, nil, fmt.Errorf(
			"%w: receipts root %s, block hash %s", ErrBlockHashMismatch, root, loc.BlockHash,
		)
	}

	inclusions := make([]gmerkle.Proof, len(hashes))
	for i := range hashes {
		p, err := tree.Proof(i)
		if err != nil {
			panic(fmt.Errorf("BUG: proof for batch index %d: %w", i, err))
		}
		inclusions[i] = p
	}

	agg, bitmap, err := e.certify(ctx, loc, round, votes, vals)
	if err != nil {
		return BatchFinalityProof{}, nil, err
	}

	return BatchFinalityProof{
		FinalityProof: FinalityProof{
			BlockHeight:        loc.Height,
			BlockHash:          loc.BlockHash,
			CommitRound:        round,
			AggregateSignature: agg,
			ValidatorBitmap:    bitmap,
			ValidatorSet:       cloneValidators(vals),
			InclusionProof:     inclusions[0],
		},
		InclusionProofs: inclusions,
	}, hashes, nil
}

// checkVotes runs the structural vote checks, without any cryptography.
func checkVotes(votes []gthreshold.Vote, n int) error {
	if n == 0 {
		return ErrEmptyValidatorSet
	}

	q := gthreshold.Quorum(n)
	if len(votes) < q {
		return fmt.Errorf(
			"%w: have %d votes, need %d of %d validators",
			ErrInsufficientSignatures, len(votes), q, n,
		)
	}

	// Duplicate and out of range indices are errors, so once this passes
	// every vote is a distinct signer.
	if _, err := gthreshold.Signers(votes, n); err != nil {
		return fmt.Errorf("invalid votes: %w", err)
	}

	return nil
}

// certify aggregates the votes and checks the aggregate once,
// so a single bad vote fails generation instead of producing an unverifiable proof.
func (e *Engine) certify(
	ctx context.Context,
	loc Location,
	round uint32,
	votes []gthreshold.Vote,
	vals []gcommittee.ValidatorInfo,
) ([]byte, gthreshold.Bitmap, error) {
	_, span := e.tracer.Start(ctx, "Engine.certify")
	defer span.End()

	keys, err := e.decodeKeys(vals)
	if err != nil {
		return nil, nil, err
	}

	agg, bitmap, err := gthreshold.Aggregate(e.scheme, votes, len(vals))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to aggregate votes: %w", err)
	}

	msg := e.SignBytes(loc.BlockHash, loc.Height, round)
	if !gthreshold.Verify(e.scheme, msg, agg, bitmap, keys) {
		return nil, nil, fmt.Errorf(
			"%w: height %d, round %d, %d signers",
			ErrInvalidAggregateSignature, loc.Height, round, bitmap.Count(),
		)
	}

	return agg, bitmap, nil
}

func (e *Engine) decodeKeys(vals []gcommittee.ValidatorInfo) ([]gcrypto.PubKey, error) {
	keys := make([]gcrypto.PubKey, len(vals))
	for i, v := range vals {
		k, err := e.scheme.DecodePubKey(v.BLSPubKey)
		if err != nil {
			return nil, fmt.Errorf("validator %d (%s): %w", i, v.NodeID, err)
		}
		keys[i] = k
	}
	return keys, nil
}

func (e *Engine) generationFailed(span trace.Span, err error, logArgs ...any) {
	span.RecordError(err)
	span.SetStatus(codes.Error, "generation failed")
	e.metrics.generationFailed(err)
	e.log.Info("Rejected finality proof generation", append(logArgs, "err", err)...)
}

func cloneValidators(vals []gcommittee.ValidatorInfo) []gcommittee.ValidatorInfo {
	out := make([]gcommittee.ValidatorInfo, len(vals))
	for i, v := range vals {
		out[i] = v.Clone()
	}
	return out
}

// publish stores p and hands it to every goroutine waiting on receiptHash.
func (e *Engine) publish(ctx context.Context, receiptHash gmerkle.Hash, p FinalityProof) {
	if err := e.store.SaveProof(ctx, receiptHash, p); err != nil {
		// Waiters still get the proof below; only later lookups miss it.
		e.log.Warn(
			"Failed to save finality proof",
			"height", p.BlockHeight, "receipt", receiptHash, "err", err,
		)
	}

	e.mu.Lock()
	ws := e.waiters[receiptHash]
	delete(e.waiters, receiptHash)
	e.mu.Unlock()

	for ch := range ws {
		// Each channel has capacity 1 and is removed from the map before sending,
		// so this never blocks.
		ch <- p.Clone()
	}
}

// WaitForFinality blocks until a proof for receiptHash is available,
// and returns it.
// A proof already in the ProofStore is returned immediately.
//
// If timeout elapses first, WaitForFinality returns an error wrapping [ErrFinalityTimeout].
// A non-positive timeout uses the configured DefaultWaitTimeout.
// If ctx is cancelled first, it returns an error wrapping the context's cause.
// In every case the wait registration is released before returning.
func (e *Engine) WaitForFinality(
	ctx context.Context, receiptHash gmerkle.Hash, timeout time.Duration,
) (FinalityProof, error) {
	if timeout <= 0 {
		timeout = e.cfg.DefaultWaitTimeout
	}

	// Register before checking the store,
	// so a proof published in between is not missed.
	ch := e.addWaiter(receiptHash)
	defer e.removeWaiter(receiptHash, ch)

	p, err := e.store.LoadProof(ctx, receiptHash)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrProofNotFound) {
		return FinalityProof{}, fmt.Errorf("failed to load stored proof: %w", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case p := <-ch:
		return p, nil

	case <-timer.C:
		e.metrics.waitTimedOut()
		e.log.Debug("Finality wait timed out", "receipt", receiptHash, "timeout", timeout)
		return FinalityProof{}, fmt.Errorf(
			"%w: receipt %s after %s", ErrFinalityTimeout, receiptHash, timeout,
		)

	case <-ctx.Done():
		return FinalityProof{}, fmt.Errorf(
			"context finished while waiting for finality: %w", context.Cause(ctx),
		)
	}
}

// PendingWaits returns the number of WaitForFinality calls currently blocked.
func (e *Engine) PendingWaits() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0
	for _, ws := range e.waiters {
		n += len(ws)
	}
	return n
}

func (e *Engine) addWaiter(receiptHash gmerkle.Hash) chan FinalityProof {
	ch := make(chan FinalityProof, 1)

	e.mu.Lock()
	defer e.mu.Unlock()

	ws, ok := e.waiters[receiptHash]
	if !ok {
		ws = make(map[chan FinalityProof]struct{})
		e.waiters[receiptHash] = ws
	}
	ws[ch] = struct{}{}
	return ch
}

func (e *Engine) removeWaiter(receiptHash gmerkle.Hash, ch chan FinalityProof) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ws, ok := e.waiters[receiptHash]
	if !ok {
		// Already removed by publish.
		return
	}
	delete(ws, ch)
	if len(ws) == 0 {
		delete(e.waiters, receiptHash)
	}
}
