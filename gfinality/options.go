package gfinality

import (
	"log/slog"

	"github.com/gordian-engine/gfinality/gcrypto"
	"go.opentelemetry.io/otel/trace"
)

// Option customizes an [Engine] in [NewEngine].
type Option func(*Engine)

func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithMetrics records engine activity in m.
// Without it, nothing is recorded.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTracer sets the tracer for engine spans.
// The default tracer is a no-op.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithProofStore replaces the default in-memory proof store.
func WithProofStore(s ProofStore) Option {
	return func(e *Engine) { e.store = s }
}

// WithScheme replaces the default BLS min-sig aggregation scheme.
func WithScheme(s gcrypto.ThresholdSignatureScheme) Option {
	return func(e *Engine) { e.scheme = s }
}
