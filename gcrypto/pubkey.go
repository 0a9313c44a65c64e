package gcrypto

import "context"

// PubKey is the public half of a validator's signing key.
type PubKey interface {
	PubKeyBytes() []byte

	Equal(other PubKey) bool

	Verify(msg, sig []byte) bool
}

// Signer produces signatures that verify against its PubKey.
//
// Sign accepts a context because some signers live in a separate process
// or on separate hardware.
type Signer interface {
	PubKey() PubKey

	Sign(ctx context.Context, input []byte) ([]byte, error)
}
