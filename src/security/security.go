// Package security encrypts the opaque per-participant model-provider
// config blob (API key overrides, temperature, max_tokens) before it is
// persisted, grounded on the encrypted-credential-column pattern in
// model/user_exchange.go (APIKeyHash/APISecretHash) and the
// security.DecryptString call site already present in
// executors/start_loop.go.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// EncryptString encrypts plaintext with AES-256-GCM using the configured
// key, returning a base64-encoded nonce||ciphertext blob.
func EncryptString(cfg Config, plaintext string) (string, error) {
	gcm, err := newGCM(cfg)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("security: generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptString reverses EncryptString. An empty input decrypts to an
// empty string so callers can treat "no override configured" uniformly.
func DecryptString(cfg Config, encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}

	gcm, err := newGCM(cfg)
	if err != nil {
		return "", err
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("security: decode ciphertext: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(raw) < nonceSize {
		return "", fmt.Errorf("security: ciphertext shorter than nonce size")
	}

	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("security: decrypt: %w", err)
	}
	return string(plaintext), nil
}

// deriveKey stretches the configured key material into a 32-byte AES-256
// key via HKDF-SHA256 rather than using the configured bytes directly, so
// key material of any length always yields a correctly-sized AES key. The
// configured value must be valid base64; anything else fails to decode.
func deriveKey(cfg Config) ([]byte, error) {
	secret, err := base64.StdEncoding.DecodeString(cfg.ModelConfigKey)
	if err != nil {
		return nil, fmt.Errorf("security: decode key: %w", err)
	}

	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, secret, nil, []byte("agentarena-model-config"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("security: derive key: %w", err)
	}
	return key, nil
}

func newGCM(cfg Config) (cipher.AEAD, error) {
	key, err := deriveKey(cfg)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("security: new cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("security: new GCM: %w", err)
	}
	return gcm, nil
}
