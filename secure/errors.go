package secure

import (
	"errors"
	"fmt"
)

// ErrSessionConsumed is returned when a session's key is requested twice.
var ErrSessionConsumed = errors.New("session already consumed")

// ErrNoSharedKey is returned when the AES key is requested before the
// shared secret has been derived.
var ErrNoSharedKey = errors.New("shared key not derived")

// CryptoError reports a malformed peer key or a failed encrypt/decrypt.
// The handshake or message that produced it should be abandoned.
type CryptoError struct {
	// Op is the failed operation (e.g. "parse peer key", "decrypt")
	Op string

	// Err is the underlying cause
	Err error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("crypto %s failed: %v", e.Op, e.Err)
}

func (e *CryptoError) Unwrap() error {
	return e.Err
}

// IsCryptoError returns true if err is or wraps a CryptoError.
func IsCryptoError(err error) bool {
	var ce *CryptoError
	return errors.As(err, &ce)
}
