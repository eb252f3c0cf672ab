// Package medcrypt encrypts medical-form payloads before they touch the
// flat-file ledgers. Ciphertext is base64 so it can sit in a CSV column.
package medcrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

// kdfSalt is fixed per deployment; rotating the secret re-encrypts everything
// anyway because old ciphertexts become unreadable.
var kdfSalt = []byte("doctor-k-therapy.medical-form.v1")

// Encrypter seals and opens medical-form payloads with AES-256-GCM.
type Encrypter struct {
	aead cipher.AEAD
}

// New derives the AES key from the configured secret.
func New(secret string) (*Encrypter, error) {
	if secret == "" {
		return nil, fmt.Errorf("medcrypt: secret required")
	}
	key, err := scrypt.Key([]byte(secret), kdfSalt, 1<<15, 8, 1, 32)
	if err != nil {
		return nil, fmt.Errorf("medcrypt: derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("medcrypt: cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("medcrypt: gcm: %w", err)
	}
	return &Encrypter{aead: aead}, nil
}

// Encrypt seals plaintext and returns base64(nonce || ciphertext).
func (e *Encrypter) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("medcrypt: nonce: %w", err)
	}
	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func (e *Encrypter) Decrypt(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("medcrypt: decode: %w", err)
	}
	if len(raw) < e.aead.NonceSize() {
		return "", fmt.Errorf("medcrypt: ciphertext too short")
	}
	nonce, ciphertext := raw[:e.aead.NonceSize()], raw[e.aead.NonceSize():]
	plaintext, err := e.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("medcrypt: open: %w", err)
	}
	return string(plaintext), nil
}
