// Package crypto seals platform credentials before they reach the datastore.
//
// Sealed values look like "enc:v1:<base64(nonce|ciphertext)>". Values without
// the prefix are treated as legacy plaintext and returned as-is by Open.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const sealedPrefix = "enc:v1:"

var ErrEmptyKey = errors.New("crypto: empty master key")

// TokenCipher is safe for concurrent use.
type TokenCipher struct {
	aead cipher.AEAD
}

// NewTokenCipher derives an AES-256-GCM key from masterKey. The purpose string
// separates keys derived from the same secret.
func NewTokenCipher(masterKey, purpose string) (*TokenCipher, error) {
	if masterKey == "" {
		return nil, ErrEmptyKey
	}
	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(masterKey), []byte("blog-publisher-credentials"), []byte(purpose))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("crypto: derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: %w", err)
	}
	return &TokenCipher{aead: aead}, nil
}

func (c *TokenCipher) Seal(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("crypto: nonce: %w", err)
	}
	out := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(out), nil
}

func (c *TokenCipher) Open(stored string) (string, error) {
	if !IsSealed(stored) {
		return stored, nil
	}
	raw, err := base64.StdEncoding.DecodeString(stored[len(sealedPrefix):])
	if err != nil {
		return "", fmt.Errorf("crypto: decode: %w", err)
	}
	n := c.aead.NonceSize()
	if len(raw) < n {
		return "", errors.New("crypto: sealed value too short")
	}
	plain, err := c.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return "", fmt.Errorf("crypto: open: %w", err)
	}
	return string(plain), nil
}

func IsSealed(stored string) bool {
	return strings.HasPrefix(stored, sealedPrefix)
}
