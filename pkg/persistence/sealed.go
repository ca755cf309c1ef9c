package persistence

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Sealing errors.
var (
	ErrSecretTooShort = errors.New("sealing secret must be at least 16 bytes")
	ErrUnsealFailed   = errors.New("unseal failed")
)

// sealInfo is the HKDF context for the cache encryption key.
const sealInfo = "realtime-cache-seal-v1"

// SealedStore encrypts values with XChaCha20-Poly1305 before handing them to
// the wrapped Store. The key name is bound as associated data so a value
// cannot be moved to another key undetected. Keys themselves are stored in
// the clear.
type SealedStore struct {
	inner Store
	aead  cipher.AEAD
}

// NewSealedStore derives the encryption key from secret and salt and wraps
// inner. The salt is typically the user id so that caches of different users
// never share a key.
func NewSealedStore(inner Store, secret, salt []byte) (*SealedStore, error) {
	if len(secret) < 16 {
		return nil, ErrSecretTooShort
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, []byte(sealInfo)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &SealedStore{inner: inner, aead: aead}, nil
}

// Get implements Store.
func (s *SealedStore) Get(key string) ([]byte, error) {
	sealed, err := s.inner.Get(key)
	if err != nil {
		return nil, err
	}
	ns := s.aead.NonceSize()
	if len(sealed) < ns+s.aead.Overhead() {
		return nil, fmt.Errorf("%w: %s: value too short", ErrUnsealFailed, key)
	}
	plain, err := s.aead.Open(nil, sealed[:ns], sealed[ns:], []byte(key))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsealFailed, key)
	}
	return plain, nil
}

// Put implements Store.
func (s *SealedStore) Put(key string, value []byte) error {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(value)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("nonce: %w", err)
	}
	return s.inner.Put(key, s.aead.Seal(nonce, nonce, value, []byte(key)))
}

// Delete implements Store.
func (s *SealedStore) Delete(key string) error {
	return s.inner.Delete(key)
}

// Keys implements Store.
func (s *SealedStore) Keys(prefix string) ([]string, error) {
	return s.inner.Keys(prefix)
}

// Close implements Store.
func (s *SealedStore) Close() error {
	return s.inner.Close()
}
