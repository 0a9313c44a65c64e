// Package gblsminsigtest provides deterministic BLS signers for tests.
package gblsminsigtest

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gordian-engine/gfinality/gcrypto/gblsminsig"
)

var (
	muSigners sync.Mutex
	signers   []gblsminsig.Signer
)

// DeterministicSigners returns n signers whose key material depends only on their index,
// so signers[i] is the same across calls and across processes.
//
// Key derivation is slow enough to matter in tests,
// so generated signers are kept for the life of the process.
func DeterministicSigners(n int) []gblsminsig.Signer {
	muSigners.Lock()
	defer muSigners.Unlock()

	if len(signers) < n {
		grown := make([]gblsminsig.Signer, n)
		copy(grown, signers)

		var wg sync.WaitGroup
		for i := len(signers); i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				grown[i] = newSigner(i)
			}(i)
		}
		wg.Wait()

		signers = grown
	}

	out := make([]gblsminsig.Signer, n)
	copy(out, signers)
	return out
}

// DeterministicPubKeys returns the public keys of [DeterministicSigners].
func DeterministicPubKeys(n int) []gblsminsig.PubKey {
	out := make([]gblsminsig.PubKey, n)
	for i, s := range DeterministicSigners(n) {
		out[i] = s.PubKey().(gblsminsig.PubKey)
	}
	return out
}

func newSigner(i int) gblsminsig.Signer {
	var ikm [32]byte
	copy(ikm[:8], "gfintest")
	binary.BigEndian.PutUint64(ikm[24:], uint64(i))

	s, err := gblsminsig.NewSigner(ikm[:])
	if err != nil {
		panic(fmt.Errorf("failed to make signer %d: %w", i, err))
	}
	return s
}
