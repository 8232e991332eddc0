package efuse

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"os"
	"strings"

	"github.com/moffa90/go-bflb/codec"
)

// Key slot assignment.
const (
	// pkHashSlot is the first of the two slots holding the public key hash
	pkHashSlot = 0

	// aesKeySlot is the first slot holding AES key material
	aesKeySlot = 2
)

// AESMode selects flash encryption.
type AESMode int

// Supported AES modes.
const (
	AESNone AESMode = iota
	AES128
	AES192
	AES256
)

func (m AESMode) String() string {
	switch m {
	case AESNone:
		return "none"
	case AES128:
		return "aes128"
	case AES192:
		return "aes192"
	case AES256:
		return "aes256"
	default:
		return fmt.Sprintf("AESMode(%d)", int(m))
	}
}

// fieldValue is the ef_sf_aes_mode encoding of the mode.
func (m AESMode) fieldValue() uint32 {
	switch m {
	case AES128:
		return 1
	case AES256:
		return 2
	case AES192:
		return 3
	default:
		return 0
	}
}

// ParseAESMode parses "none", "aes128", "aes192" or "aes256" (the "aes"
// prefix is optional).
func ParseAESMode(s string) (AESMode, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "aes") {
	case "", "none":
		return AESNone, nil
	case "128":
		return AES128, nil
	case "192":
		return AES192, nil
	case "256":
		return AES256, nil
	default:
		return AESNone, &ConfigError{Check: "aes mode", Message: fmt.Sprintf("unknown AES mode %q", s)}
	}
}

// Locks are the explicit protect requests. Nothing is locked unless asked.
type Locks struct {
	// PKHashWrite write-protects the public key hash slots
	PKHashWrite bool

	// PKHashRead read-protects the public key hash slots
	PKHashRead bool

	// AESKeyWrite write-protects the AES key slots
	AESKeyWrite bool

	// AESKeyRead read-protects the AES key slots
	AESKeyRead bool
}

// Request describes one provisioning run.
type Request struct {
	// AESMode selects flash encryption; AESNone requires an empty AESKeyHex
	AESMode AESMode

	// PublicKeyPEM is the PEM encoded P-256 signing public key (optional)
	PublicKeyPEM []byte

	// AESKeyHex is the hex encoded AES key
	AESKeyHex string

	// Locks holds the per-key protect flags
	Locks Locks
}

// Encoder builds eFuse records against a schema.
type Encoder struct {
	config Config
}

// NewEncoder creates an Encoder. Without options it uses the default
// Schema and Size.
func NewEncoder(opts ...Option) *Encoder {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Encoder{config: cfg}
}

// Build encodes req with the default schema.
func Build(req Request) (*codec.Record, error) {
	return NewEncoder().Build(req)
}

// Build validates the key material and encodes it into a new record.
// Validation failures are returned as *ConfigError before anything is
// encoded. Fields missing from the schema are logged and skipped.
func (e *Encoder) Build(req Request) (*codec.Record, error) {
	keyHex, err := ValidateAESKey(req.AESMode, req.AESKeyHex)
	if err != nil {
		return nil, err
	}

	var pkHash []byte
	if len(req.PublicKeyPEM) > 0 {
		if pkHash, err = PublicKeyHash(req.PublicKeyPEM); err != nil {
			return nil, err
		}
	}

	rec := codec.NewRecord(e.config.Size)

	if pkHash != nil {
		slots, err := e.writeKey(rec, pkHashSlot, hex.EncodeToString(pkHash))
		if err != nil {
			return nil, err
		}
		e.set(rec, "ef_sboot_sign_mode", 1)
		e.lockSlots(rec, slots, req.Locks.PKHashWrite, req.Locks.PKHashRead)
	}

	if req.AESMode != AESNone {
		e.set(rec, "ef_sf_aes_mode", req.AESMode.fieldValue())
		slots, err := e.writeKey(rec, aesKeySlot, keyHex)
		if err != nil {
			return nil, err
		}
		e.lockSlots(rec, slots, req.Locks.AESKeyWrite, req.Locks.AESKeyRead)
	}

	return rec, nil
}

// ValidateAESKey checks the key length rules for mode and returns the
// normalized (trimmed, lower-case) key.
//
//	none:   key must be empty
//	aes128: exactly 32 hex characters
//	aes192: 32 or 48 hex characters
//	aes256: exactly 64 hex characters
func ValidateAESKey(mode AESMode, key string) (string, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	n := len(key)

	switch mode {
	case AESNone:
		if n != 0 {
			return "", &ConfigError{Check: "aes mode none", Message: "AES key given but AES mode is none"}
		}
		return "", nil
	case AES128:
		if n != 32 {
			return "", &ConfigError{Check: "aes128 key length",
				Message: fmt.Sprintf("key must be 32 hex characters, got %d", n)}
		}
	case AES192:
		if n < 32 {
			return "", &ConfigError{Check: "aes192 minimum key length",
				Message: fmt.Sprintf("key must be at least 32 hex characters, got %d", n)}
		}
		if n != 32 && n != 48 {
			return "", &ConfigError{Check: "aes192 key length",
				Message: fmt.Sprintf("key must be 48 hex characters, got %d", n)}
		}
	case AES256:
		if n != 64 {
			return "", &ConfigError{Check: "aes256 key length",
				Message: fmt.Sprintf("key must be 64 hex characters, got %d", n)}
		}
	default:
		return "", &ConfigError{Check: "aes mode", Message: fmt.Sprintf("unsupported mode %s", mode)}
	}

	if _, err := hex.DecodeString(key); err != nil {
		return "", &ConfigError{Check: "aes key encoding", Message: err.Error()}
	}
	return key, nil
}

// PublicKeyHash returns the SHA-256 of the raw X||Y point of a PEM encoded
// P-256 public key, the value the boot ROM compares against.
func PublicKeyHash(pemBytes []byte) ([]byte, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, &ConfigError{Check: "public key", Message: "no PEM block found"}
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, &ConfigError{Check: "public key", Message: err.Error()}
	}
	pub, ok := parsed.(*ecdsa.PublicKey)
	if !ok {
		return nil, &ConfigError{Check: "public key", Message: fmt.Sprintf("unsupported key type %T", parsed)}
	}
	ecdhPub, err := pub.ECDH()
	if err != nil {
		return nil, &ConfigError{Check: "public key", Message: err.Error()}
	}

	// Drop the 0x04 uncompressed-point prefix.
	sum := sha256.Sum256(ecdhPub.Bytes()[1:])
	return sum[:], nil
}

// writeKey writes hex key material word by word from firstSlot on and
// returns the slots it touched.
func (e *Encoder) writeKey(rec *codec.Record, firstSlot int, keyHex string) ([]int, error) {
	words, err := codec.HexWords(keyHex)
	if err != nil {
		return nil, &ConfigError{Check: "key encoding", Message: err.Error()}
	}

	var slots []int
	for i, w := range words {
		slot := firstSlot + i/KeySlotWords
		if i%KeySlotWords == 0 {
			slots = append(slots, slot)
		}
		e.set(rec, KeySlotField(slot, i%KeySlotWords), w)
	}
	return slots, nil
}

func (e *Encoder) lockSlots(rec *codec.Record, slots []int, write, read bool) {
	for _, slot := range slots {
		if write {
			e.set(rec, WriteLockField(slot), 1)
		}
		if read {
			e.set(rec, ReadLockField(slot), 1)
		}
	}
}

func (e *Encoder) set(rec *codec.Record, name string, value uint32) {
	if err := rec.Encode(e.config.Schema, name, value); err != nil {
		e.logWarn("skipping eFuse field", "field", name, "error", err)
		return
	}
	e.logDebug("set eFuse field", "field", name, "value", fmt.Sprintf("0x%08X", value))
}

// WriteFiles writes the record data and mask images for the burn step.
func WriteFiles(dataPath, maskPath string, rec *codec.Record) error {
	if err := os.WriteFile(dataPath, rec.Data, 0o644); err != nil {
		return fmt.Errorf("write eFuse data: %w", err)
	}
	if err := os.WriteFile(maskPath, rec.Mask, 0o644); err != nil {
		return fmt.Errorf("write eFuse mask: %w", err)
	}
	return nil
}

func (e *Encoder) logDebug(msg string, keyvals ...interface{}) {
	if e.config.Logger != nil {
		e.config.Logger.Debug(msg, keyvals...)
	}
}

func (e *Encoder) logWarn(msg string, keyvals ...interface{}) {
	if e.config.Logger != nil {
		e.config.Logger.Warn(msg, keyvals...)
	}
}
