// Package phi encrypts personal fields (prescription text, delivery
// addresses, phone numbers) before they are written to the database.
package phi

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// Encryptor provides AES-256-GCM encryption for single field values.
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor creates an Encryptor with the given 32-byte key.
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

// Encrypt returns base64(nonce || ciphertext).
func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("phi encrypt: generate nonce: %w", err)
	}
	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (e *Encryptor) Decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("phi decrypt: base64 decode: %w", err)
	}

	nonceSize := e.aead.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("phi decrypt: ciphertext too short")
	}
	plaintext, err := e.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("phi decrypt: %w", err)
	}
	return string(plaintext), nil
}

// Service is the field cipher handed to the postgres stores. With no key
// configured it passes values through unchanged.
type Service struct {
	enc *Encryptor
}

// NewService parses a 64-character hex key. An empty key disables
// encryption; a malformed one is an error so the server refuses to start.
func NewService(key string, logger zerolog.Logger) (*Service, error) {
	if key == "" {
		logger.Warn().Msg("field encryption disabled: PHI_ENCRYPTION_KEY is not set")
		return &Service{}, nil
	}

	raw, err := hex.DecodeString(key)
	if err != nil {
		return nil, fmt.Errorf("PHI_ENCRYPTION_KEY is not valid hex: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("PHI_ENCRYPTION_KEY must be 32 bytes (64 hex chars), got %d bytes", len(raw))
	}

	enc, err := NewEncryptor(raw)
	if err != nil {
		return nil, err
	}
	logger.Info().Msg("field encryption enabled")
	return &Service{enc: enc}, nil
}

func (s *Service) Enabled() bool {
	return s.enc != nil
}

func (s *Service) EncryptField(value string) (string, error) {
	if s.enc == nil {
		return value, nil
	}
	return s.enc.Encrypt(value)
}

func (s *Service) DecryptField(value string) (string, error) {
	if s.enc == nil {
		return value, nil
	}
	return s.enc.Decrypt(value)
}
