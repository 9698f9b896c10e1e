package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

var errCiphertextTooShort = errors.New("ciphertext shorter than nonce")

// encryptKeyHex encrypts plaintext with AES-256-GCM under masterKey and
// returns hex(nonce || ciphertext). A fresh random nonce is drawn per call,
// so encrypting the same key twice yields different ciphertexts.
func encryptKeyHex(masterKey, plaintext []byte) (string, error) {
	block, err := aes.NewCipher(masterKey)
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("creating gcm: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, plaintext, nil)
	return hex.EncodeToString(sealed), nil
}

// decryptKeyHex reverses encryptKeyHex. GCM authentication makes a wrong
// master key or corrupt ciphertext an error, never wrong plaintext.
func decryptKeyHex(masterKey []byte, encrypted string) ([]byte, error) {
	raw, err := hex.DecodeString(encrypted)
	if err != nil {
		return nil, fmt.Errorf("decoding ciphertext: %w", err)
	}

	block, err := aes.NewCipher(masterKey)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating gcm: %w", err)
	}

	if len(raw) < gcm.NonceSize() {
		return nil, errCiphertextTooShort
	}
	nonce, ciphertext := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypting key: %w", err)
	}
	return plaintext, nil
}
