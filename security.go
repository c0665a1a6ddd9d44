package cachegate

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

// ErrCiphertextTooShort is returned by Decrypt when the input is shorter
// than a nonce, i.e. could not possibly be one of ours.
var ErrCiphertextTooShort = errors.New("cachegate: ciphertext too short")

const (
	scryptN      = 1 << 15
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
)

// HashKey renders a cache key as a SHA-256 hex digest, used when the
// configured MetaStore backend should never see a raw URL.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// aead derives a 256-bit key from passphrase via scrypt, salted with salt,
// and returns the corresponding AES-256-GCM AEAD.
func aead(passphrase, salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key(passphrase, salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("cachegate: derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cachegate: build cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext under a key derived from passphrase and salt,
// prefixing the result with a freshly generated nonce.
func Encrypt(passphrase, salt, plaintext []byte) ([]byte, error) {
	gcm, err := aead(passphrase, salt)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("cachegate: generate nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt reverses Encrypt, deriving the same key from passphrase and salt.
func Decrypt(passphrase, salt, ciphertext []byte) ([]byte, error) {
	gcm, err := aead(passphrase, salt)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, ErrCiphertextTooShort
	}
	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, sealed, nil)
}
