// Copyright (c) 2024-2025 Efe Turkel
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package keystore encrypts provider credentials at rest.
//
// Values are stored as ENC:base64(nonce|ciphertext|tag) using AES-256-GCM
// with a PBKDF2-SHA-256 derived key. The salt lives next to the config so a
// keystore follows its install directory.
package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// EncryptedPrefix marks a value as encrypted.
const EncryptedPrefix = "ENC:"

const (
	nonceSize = 12
	keySize   = 32
	saltSize  = 32
	// OWASP guidance for PBKDF2-SHA-256.
	pbkdf2Iterations = 600000
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrInvalidCiphertext = errors.New("invalid ciphertext format")
	ErrDecryptionFailed  = errors.New("decryption failed: authentication tag mismatch")
)

// =============================================================================
// KEYSTORE
// =============================================================================

// Keystore encrypts and decrypts credential strings with a passphrase-derived
// key. The per-install salt is created on first use.
type Keystore struct {
	aead cipher.AEAD
}

// zeroBytes clears key material after use.
func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// New derives the keystore key from the passphrase and the salt stored at
// saltPath, creating the salt file on first use.
func New(passphrase, saltPath string) (*Keystore, error) {
	salt, err := loadOrCreateSalt(saltPath)
	if err != nil {
		return nil, err
	}

	key := pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iterations, keySize, sha256.New)
	defer zeroBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Keystore{aead: aead}, nil
}

func loadOrCreateSalt(path string) ([]byte, error) {
	salt, err := os.ReadFile(path)
	if err == nil && len(salt) == saltSize {
		return salt, nil
	}

	salt = make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create keystore directory: %w", err)
	}
	if err := os.WriteFile(path, salt, 0600); err != nil {
		return nil, fmt.Errorf("failed to write salt: %w", err)
	}
	return salt, nil
}

// =============================================================================
// STRING OPERATIONS
// =============================================================================

// EncryptString returns the value as ENC:base64(nonce|ciphertext|tag).
func (k *Keystore) EncryptString(plaintext string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := k.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return EncryptedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptString reverses EncryptString. Values without the ENC: prefix are
// returned as-is so plaintext configs keep working.
func (k *Keystore) DecryptString(value string) (string, error) {
	if !strings.HasPrefix(value, EncryptedPrefix) {
		return value, nil
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, EncryptedPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	if len(data) < nonceSize+k.aead.Overhead() {
		return "", ErrInvalidCiphertext
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := k.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

// IsEncrypted reports whether a value carries the ENC: prefix.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, EncryptedPrefix)
}
