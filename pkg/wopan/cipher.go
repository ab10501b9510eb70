// Copyright 2025 WoVault Authors
// SPDX-License-Identifier: Apache-2.0

package wopan

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// metadataIV is the fixed initialization vector mandated by the upload
// endpoint. It must match the web client byte for byte; randomizing it
// breaks interoperability.
const metadataIV = "wNSOYIB1k1DjY5lA"

// metadataKeySize is the AES-128 key length carved from the access token.
const metadataKeySize = 16

// MetadataCipher produces the encrypted fileInfo payload required by the
// upload endpoint: compact JSON, AES-128-CBC under the protocol's fixed IV,
// PKCS#7 padding, base64 output.
//
// The key is the first 16 bytes of the access token. Both the fixed IV and
// the truncated key derivation are requirements of the remote service, not
// cryptographic choices of this package.
type MetadataCipher struct {
	key []byte
}

// NewMetadataCipher derives the envelope key from accessToken. Tokens
// shorter than 16 bytes cannot key the cipher and are rejected as invalid
// credentials.
func NewMetadataCipher(accessToken string) (*MetadataCipher, error) {
	if len(accessToken) < metadataKeySize {
		return nil, &Error{
			Code:    ErrCodeCredential,
			Message: fmt.Sprintf("access token must be at least %d bytes, got %d", metadataKeySize, len(accessToken)),
		}
	}
	return &MetadataCipher{key: []byte(accessToken[:metadataKeySize])}, nil
}

// Encrypt serializes env to compact JSON and encrypts it. The result is
// deterministic for a given key and envelope.
func (c *MetadataCipher) Encrypt(env *FileInfoEnvelope) (string, error) {
	plaintext, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("marshal envelope: %w", err)
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}

	// Add PKCS#7 padding
	padding := aes.BlockSize - (len(plaintext) % aes.BlockSize)
	padded := make([]byte, len(plaintext)+padding)
	copy(padded, plaintext)
	for i := len(plaintext); i < len(padded); i++ {
		padded[i] = byte(padding)
	}

	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, []byte(metadataIV)).CryptBlocks(ciphertext, padded)

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt and returns the envelope's JSON bytes.
func (c *MetadataCipher) Decrypt(encoded string) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext length %d is not a positive multiple of the block size", len(ciphertext))
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, []byte(metadataIV)).CryptBlocks(plaintext, ciphertext)

	// Remove and verify PKCS#7 padding
	padding := int(plaintext[len(plaintext)-1])
	if padding == 0 || padding > aes.BlockSize || padding > len(plaintext) {
		return nil, fmt.Errorf("invalid padding")
	}
	for i := len(plaintext) - padding; i < len(plaintext); i++ {
		if plaintext[i] != byte(padding) {
			return nil, fmt.Errorf("invalid padding")
		}
	}

	return plaintext[:len(plaintext)-padding], nil
}
