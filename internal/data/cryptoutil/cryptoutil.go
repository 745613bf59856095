// Package cryptoutil encrypts durable session values at rest.
package cryptoutil

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/eduassist/portal/internal/ports"
)

// Encryptor seals and opens stored values.
type Encryptor interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(ciphertext string) ([]byte, error)
}

// Versioned prefix to allow future key/algorithm rotations without data migrations.
const cipherPrefixV1 = "v1:"

// AESGCMEncryptor implements Encryptor using AES-256-GCM.
type AESGCMEncryptor struct {
	aead cipher.AEAD
}

// NewAESGCMEncryptor constructs an encryptor. Key must be 32 bytes (AES-256).
func NewAESGCMEncryptor(key []byte) (*AESGCMEncryptor, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("aes-gcm key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AESGCMEncryptor{aead: aead}, nil
}

// ParseKey decodes a 32-byte key given as hex or standard base64.
func ParseKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if b, err := hex.DecodeString(s); err == nil && len(b) == 32 {
		return b, nil
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil && len(b) == 32 {
		return b, nil
	}
	return nil, errors.New("encryption key must be 32 bytes, hex or base64 encoded")
}

// Encrypt seals plaintext under a random nonce and returns "v1:" + base64(nonce||ciphertext).
func (e *AESGCMEncryptor) Encrypt(plaintext []byte) (string, error) {
	nonce := make([]byte, e.aead.NonceSize(), e.aead.NonceSize()+len(plaintext)+e.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := e.aead.Seal(nonce, nonce, plaintext, nil)
	return cipherPrefixV1 + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt.
func (e *AESGCMEncryptor) Decrypt(ciphertext string) ([]byte, error) {
	if !IsSealed(ciphertext) {
		return nil, errors.New("unknown ciphertext version")
	}
	data, err := base64.StdEncoding.DecodeString(ciphertext[len(cipherPrefixV1):])
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}
	n := e.aead.NonceSize()
	if len(data) < n {
		return nil, errors.New("ciphertext too short")
	}
	return e.aead.Open(nil, data[:n], data[n:], nil)
}

// IsSealed reports whether v carries a known ciphertext prefix.
func IsSealed(v string) bool { return strings.HasPrefix(v, cipherPrefixV1) }

// Storage wraps a DurableStorage so values are encrypted before they leave
// the process. Values written before encryption was enabled are returned as
// stored.
type Storage struct {
	inner ports.DurableStorage
	enc   Encryptor
}

var _ ports.DurableStorage = (*Storage)(nil)

// NewStorage wraps inner with enc.
func NewStorage(inner ports.DurableStorage, enc Encryptor) *Storage {
	return &Storage{inner: inner, enc: enc}
}

func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	v, err := s.inner.Get(ctx, key)
	if err != nil || !IsSealed(v) {
		return v, err
	}
	pt, err := s.enc.Decrypt(v)
	if err != nil {
		return "", fmt.Errorf("decrypt %s: %w", key, err)
	}
	return string(pt), nil
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	ct, err := s.enc.Encrypt([]byte(value))
	if err != nil {
		return fmt.Errorf("encrypt %s: %w", key, err)
	}
	return s.inner.Set(ctx, key, ct)
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	return s.inner.Remove(ctx, key)
}
