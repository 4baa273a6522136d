// Package crypto seals and opens short secrets (the chat credential) with
// AES-256-GCM keyed by MASTER_KEY.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

var (
	ErrShortKey          = errors.New("MASTER_KEY must be at least 32 bytes")
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
)

func Encrypt(masterKey, plaintext string) (string, error) {
	gcm, err := newAEAD(masterKey)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func Decrypt(masterKey, encoded string) (string, error) {
	gcm, err := newAEAD(masterKey)
	if err != nil {
		return "", err
	}
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	if len(data) < gcm.NonceSize() {
		return "", ErrInvalidCiphertext
	}
	nonce, body := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, body, nil)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	return string(plaintext), nil
}

// only the first 32 bytes of the master key are used
func newAEAD(masterKey string) (cipher.AEAD, error) {
	if len(masterKey) < 32 {
		return nil, ErrShortKey
	}
	block, err := aes.NewCipher([]byte(masterKey)[:32])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
