// Package cryptoctx implements the per-connection X25519 key agreement and
// ChaCha20-Poly1305 AEAD used to protect text messages once a Hello
// handshake has completed.
package cryptoctx

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
)

var (
	ErrNoKey        = errors.New("cryptoctx: shared key not established")
	ErrBadKeyLength = errors.New("cryptoctx: malformed remote public key")
	ErrAEADFailure  = errors.New("cryptoctx: authentication failed")
)

// AcceptResult reports whether accepting a remote key derived a fresh shared
// key or found one already set.
type AcceptResult int

const (
	Fresh AcceptResult = iota
	AlreadySet
)

// Context holds one connection's ephemeral X25519 keypair and, once a peer's
// public key has been accepted, the derived 32-byte shared key. A freshly
// generated keypair per connection gives each session an ephemeral-looking
// key even though the underlying primitive is static X25519.
type Context struct {
	mu sync.Mutex

	privateKey [32]byte
	publicKey  [32]byte

	sharedKey []byte // nil until accept_remote succeeds
}

// New generates a fresh X25519 keypair for one connection.
func New() (*Context, error) {
	var priv [32]byte
	if _, err := io.ReadFull(rand.Reader, priv[:]); err != nil {
		return nil, fmt.Errorf("cryptoctx: failed to generate private key: %w", err)
	}

	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("cryptoctx: failed to derive public key: %w", err)
	}

	c := &Context{privateKey: priv}
	copy(c.publicKey[:], pub)
	return c, nil
}

// PublicKey returns this side's public key.
func (c *Context) PublicKey() [32]byte {
	return c.publicKey
}

// AcceptRemote derives the shared key from the peer's public key on first
// call; later calls are no-ops, so the first Hello always wins even under
// concurrent handshakes.
func (c *Context) AcceptRemote(remote [32]byte) (AcceptResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sharedKey != nil {
		return AlreadySet, nil
	}

	shared, err := curve25519.X25519(c.privateKey[:], remote[:])
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrBadKeyLength, err)
	}

	c.sharedKey = shared
	return Fresh, nil
}

// SharedKey returns the derived 32-byte key, or nil if no Hello has
// completed yet.
func (c *Context) SharedKey() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sharedKey == nil {
		return nil
	}
	out := make([]byte, len(c.sharedKey))
	copy(out, c.sharedKey)
	return out
}

func (c *Context) aead() (cipher.AEAD, error) {
	key := c.SharedKey()
	if key == nil {
		return nil, ErrNoKey
	}
	return chacha20poly1305.New(key)
}

// Encrypt seals plaintext under a fresh random 12-byte nonce.
func (c *Context) Encrypt(plaintext []byte) (nonce [12]byte, ciphertext []byte, err error) {
	aead, err := c.aead()
	if err != nil {
		return nonce, nil, err
	}

	if _, err = io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nonce, nil, fmt.Errorf("cryptoctx: failed to generate nonce: %w", err)
	}

	ciphertext = aead.Seal(nil, nonce[:], plaintext, nil)
	return nonce, ciphertext, nil
}

// Decrypt opens ciphertext sealed under nonce. Any nonce is accepted; replay
// protection is left to the AEAD tag, matching this threat model's no-replay-
// cache requirement.
func (c *Context) Decrypt(nonce [12]byte, ciphertext []byte) ([]byte, error) {
	aead, err := c.aead()
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, nonce[:], ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrAEADFailure, err)
	}
	return plaintext, nil
}
