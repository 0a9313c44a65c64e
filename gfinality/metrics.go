package gfinality

import (
	"errors"
	"fmt"

	"github.com/gordian-engine/gfinality/gthreshold"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "gfinality"

	reasonLabel = "reason"
	resultLabel = "result"
)

// Metrics are the Prometheus collectors updated by an [Engine].
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ProofsGenerated    prometheus.Counter
	GenerationFailures *prometheus.CounterVec
	Verifications      *prometheus.CounterVec
	WaitTimeouts       prometheus.Counter
}

// NewMetrics creates the engine collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ProofsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "proofs_generated_total",
			Help:      "Number of finality proofs generated, counting each receipt of a batch.",
		}),
		GenerationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "generation_failures_total",
			Help:      "Number of rejected finality proof generations, by reason.",
		}, []string{reasonLabel}),
		Verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "verifications_total",
			Help:      "Number of finality proof verifications, by result.",
		}, []string{resultLabel}),
		WaitTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "wait_timeouts_total",
			Help:      "Number of WaitForFinality calls that reached their deadline.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.ProofsGenerated, m.GenerationFailures, m.Verifications, m.WaitTimeouts,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register finality metrics: %w", err)
		}
	}

	return m, nil
}

func (m *Metrics) proofsGenerated(n int) {
	if m == nil {
		return
	}
	m.ProofsGenerated.Add(float64(n))
}

func (m *Metrics) generationFailed(err error) {
	if m == nil {
		return
	}
	m.GenerationFailures.WithLabelValues(failureReason(err)).Inc()
}

func (m *Metrics) verified(valid bool) {
	if m == nil {
		return
	}
	result := "invalid"
	if valid {
		result = "valid"
	}
	m.Verifications.WithLabelValues(result).Inc()
}

func (m *Metrics) waitTimedOut() {
	if m == nil {
		return
	}
	m.WaitTimeouts.Inc()
}

// failureReason maps generation errors to a bounded set of label values.
func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientSignatures):
		return "insufficient_signatures"
	case errors.Is(err, ErrReceiptNotFound):
		return "receipt_not_found"
	case errors.Is(err, ErrMixedBlockReceipts):
		return "mixed_block_receipts"
	case errors.Is(err, ErrEmptyBatch):
		return "empty_batch"
	case errors.Is(err, ErrEmptyValidatorSet):
		return "empty_validator_set"
	case errors.Is(err, ErrUnknownReceiptKind):
		return "unknown_receipt_kind"
	case errors.Is(err, ErrBlockHashMismatch):
		return "block_hash_mismatch"
	case errors.Is(err, ErrInvalidAggregateSignature):
		return "invalid_aggregate_signature"
	case errors.Is(err, gthreshold.ErrDuplicateSigner):
		return "duplicate_signer"
	case errors.Is(err, gthreshold.ErrValidatorIndexOutOfRange):
		return "validator_index_out_of_range"
	default:
		return "other"
	}
}
