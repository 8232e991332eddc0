package secure

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Channel seals and opens command payloads under one AES key.
type Channel struct {
	key     []byte
	padding Padding
}

// NewChannel creates a channel for a 16, 24 or 32 byte key.
func NewChannel(key []byte, p Padding) (*Channel, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, &CryptoError{Op: "new channel", Err: fmt.Errorf("invalid AES key size %d", len(key))}
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Channel{key: k, padding: p}, nil
}

// ParseKey decodes a hex pre-shared key.
func ParseKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, &CryptoError{Op: "parse key", Err: err}
	}
	switch len(key) {
	case 16, 24, 32:
		return key, nil
	default:
		return nil, &CryptoError{Op: "parse key", Err: fmt.Errorf("invalid AES key size %d", len(key))}
	}
}

// Padding returns the channel's padding scheme.
func (c *Channel) Padding() Padding {
	return c.padding
}

// Seal encrypts one payload with the zero IV.
func (c *Channel) Seal(plaintext []byte) ([]byte, error) {
	return Encrypt(plaintext, c.key, nil, c.padding)
}

// Open decrypts one payload.
func (c *Channel) Open(ciphertext []byte) ([]byte, error) {
	return Decrypt(ciphertext, c.key, nil, c.padding)
}
