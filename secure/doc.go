// Package secure implements the encrypted command channel: ECDH P-256 key
// agreement and AES-CBC framing with a fixed all-zero IV.
//
// A handshake creates one Session per side. The sides swap 64-byte raw
// public keys (X||Y), derive the same 32-byte shared secret, and use its
// first 16 bytes as the AES-128 key for exactly one message:
//
//	s, _ := secure.NewSession(nil)
//	// send s.PublicKey(), receive peer
//	if _, err := s.SharedKey(peer); err != nil { ... }
//	ch, err := s.Channel(secure.PaddingPKCS7)
//	ct, err := ch.Seal([]byte("run --port /dev/ttyUSB0"))
//
// After Channel (or AESKey) the session is spent; a second call returns
// ErrSessionConsumed.
//
// Two padding schemes exist. PaddingZero is the legacy scheme deployed
// devices speak: zero-fill to 16 bytes, truncated at the first NUL on
// decrypt, so payloads containing NUL bytes do not survive it.
// PaddingPKCS7 is exact for any payload.
package secure
