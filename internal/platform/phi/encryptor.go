// Package phi provides field-level encryption for protected health
// information stored at rest, such as patient medical histories and
// insurance details.
package phi

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
)

// Encryptor seals and opens individual PHI fields with AES-256-GCM. Each
// value is encrypted under a fresh random nonce, which is prepended to the
// ciphertext before base64 encoding.
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor creates an Encryptor from a 32-byte AES-256 key.
func NewEncryptor(key []byte) (*Encryptor, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("phi encryptor: key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("phi encryptor: create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("phi encryptor: create GCM: %w", err)
	}

	return &Encryptor{aead: aead}, nil
}

// NewEncryptorFromHex builds an Encryptor from a 64-character hex key, the
// form the key takes in configuration.
func NewEncryptorFromHex(hexKey string) (*Encryptor, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("phi encryptor: decode hex key: %w", err)
	}
	return NewEncryptor(key)
}

// Encrypt encrypts a field value and returns base64(nonce + ciphertext).
func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("phi encrypt: generate nonce: %w", err)
	}

	// Seal appends the ciphertext to nonce, so the result is nonce + ciphertext.
	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt: it decodes the base64 value, splits off the
// prepended nonce and opens the remainder.
func (e *Encryptor) Decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("phi decrypt: base64 decode: %w", err)
	}

	nonceSize := e.aead.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("phi decrypt: ciphertext too short")
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := e.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("phi decrypt: %w", err)
	}
	return string(plaintext), nil
}

// EncryptOptional encrypts a nullable field. A nil or empty value passes
// through unchanged so optional columns stay NULL in storage.
func (e *Encryptor) EncryptOptional(value *string) (*string, error) {
	if value == nil || *value == "" {
		return value, nil
	}
	sealed, err := e.Encrypt(*value)
	if err != nil {
		return nil, err
	}
	return &sealed, nil
}

// DecryptOptional is the inverse of EncryptOptional.
func (e *Encryptor) DecryptOptional(value *string) (*string, error) {
	if value == nil || *value == "" {
		return value, nil
	}
	plain, err := e.Decrypt(*value)
	if err != nil {
		return nil, err
	}
	return &plain, nil
}
