package secure

import (
	"crypto/ecdh"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
)

// Key sizes.
const (
	// PublicKeySize is the size of a raw P-256 public key (X||Y)
	PublicKeySize = 64

	// SharedKeySize is the size of the ECDH shared secret
	SharedKeySize = 32

	// AESKeySize is the size of the per-message AES key taken from the secret
	AESKeySize = 16

	// uncompressedPoint prefixes an X||Y point in SEC 1 encoding
	uncompressedPoint = 0x04
)

// Session is one side of a single-use ECDH handshake. It is safe for
// concurrent use, but its key can only be taken once.
type Session struct {
	mu       sync.Mutex
	priv     *ecdh.PrivateKey
	shared   []byte
	consumed bool
}

// NewSession generates an ephemeral P-256 key pair. A nil rand uses
// crypto/rand.
func NewSession(random io.Reader) (*Session, error) {
	if random == nil {
		random = rand.Reader
	}
	priv, err := ecdh.P256().GenerateKey(random)
	if err != nil {
		return nil, &CryptoError{Op: "generate key", Err: err}
	}
	return &Session{priv: priv}, nil
}

// PublicKey returns the raw 64-byte public key.
func (s *Session) PublicKey() []byte {
	return s.priv.PublicKey().Bytes()[1:]
}

// CreatePublicKey returns the public key hex encoded.
func (s *Session) CreatePublicKey() string {
	return hex.EncodeToString(s.PublicKey())
}

// ParsePublicKey loads a raw 64-byte X||Y key. The 65-byte SEC 1 form is
// accepted as well.
func ParsePublicKey(raw []byte) (*ecdh.PublicKey, error) {
	switch len(raw) {
	case PublicKeySize:
		raw = append([]byte{uncompressedPoint}, raw...)
	case PublicKeySize + 1:
	default:
		return nil, &CryptoError{
			Op:  "parse peer key",
			Err: fmt.Errorf("want %d bytes, got %d", PublicKeySize, len(raw)),
		}
	}

	pub, err := ecdh.P256().NewPublicKey(raw)
	if err != nil {
		return nil, &CryptoError{Op: "parse peer key", Err: err}
	}
	return pub, nil
}

// SharedKey derives the shared secret with the peer's raw public key and
// returns a copy of it.
func (s *Session) SharedKey(peer []byte) ([]byte, error) {
	pub, err := ParsePublicKey(peer)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.consumed {
		return nil, ErrSessionConsumed
	}
	secret, err := s.priv.ECDH(pub)
	if err != nil {
		return nil, &CryptoError{Op: "derive shared key", Err: err}
	}
	s.shared = secret

	out := make([]byte, len(secret))
	copy(out, secret)
	return out, nil
}

// CreateSharedKey is SharedKey with hex input and output.
func (s *Session) CreateSharedKey(peerHex string) (string, error) {
	peer, err := hex.DecodeString(peerHex)
	if err != nil {
		return "", &CryptoError{Op: "parse peer key", Err: err}
	}
	shared, err := s.SharedKey(peer)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(shared), nil
}

// AESKey returns the first 16 bytes of the shared secret and spends the
// session: the secret is wiped and later calls return ErrSessionConsumed.
func (s *Session) AESKey() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.consumed {
		return nil, ErrSessionConsumed
	}
	if s.shared == nil {
		return nil, ErrNoSharedKey
	}

	key := make([]byte, AESKeySize)
	copy(key, s.shared[:AESKeySize])

	for i := range s.shared {
		s.shared[i] = 0
	}
	s.shared = nil
	s.consumed = true
	return key, nil
}

// Channel spends the session on a channel keyed with its AES key.
func (s *Session) Channel(p Padding) (*Channel, error) {
	key, err := s.AESKey()
	if err != nil {
		return nil, err
	}
	return NewChannel(key, p)
}
