package gfinality

import (
	"errors"
	"fmt"
	"runtime"
	"time"
)

// Config holds the tunable parameters of an [Engine].
// Start from [DefaultConfig] and override fields as needed.
type Config struct {
	// Prefix of every signed finality message.
	// All validators and verifiers on a network must agree on it.
	DomainTag string

	// Number of proofs kept by the default in-memory ProofStore.
	ProofCacheSize int

	// Number of decoded public keys kept by the default signature scheme.
	KeyCacheSize int

	// Maximum number of inclusion proofs checked in parallel
	// by VerifyBatchFinalityProof.
	VerifyConcurrency int

	// Used by WaitForFinality when called with a non-positive timeout.
	DefaultWaitTimeout time.Duration
}

const DefaultDomainTag = "gfinality/finality/v1"

func DefaultConfig() Config {
	return Config{
		DomainTag:          DefaultDomainTag,
		ProofCacheSize:     4096,
		KeyCacheSize:       1024,
		VerifyConcurrency:  runtime.GOMAXPROCS(0),
		DefaultWaitTimeout: 30 * time.Second,
	}
}

// Validate reports every invalid field, each wrapping [ErrInvalidConfig].
func (c Config) Validate() error {
	var errs []error
	if c.DomainTag == "" {
		errs = append(errs, fmt.Errorf("%w: DomainTag must not be empty", ErrInvalidConfig))
	}
	if c.ProofCacheSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: ProofCacheSize must be positive (got %d)", ErrInvalidConfig, c.ProofCacheSize))
	}
	if c.KeyCacheSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: KeyCacheSize must be positive (got %d)", ErrInvalidConfig, c.KeyCacheSize))
	}
	if c.VerifyConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("%w: VerifyConcurrency must be positive (got %d)", ErrInvalidConfig, c.VerifyConcurrency))
	}
	if c.DefaultWaitTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: DefaultWaitTimeout must be positive (got %s)", ErrInvalidConfig, c.DefaultWaitTimeout))
	}
	return errors.Join(errs...)
}
