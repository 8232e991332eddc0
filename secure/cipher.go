package secure

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
)

// Padding selects how plaintext is padded to the AES block size.
type Padding int

const (
	// PaddingPKCS7 is standard PKCS#7 padding, exact for any payload.
	PaddingPKCS7 Padding = iota

	// PaddingZero fills with NUL bytes and truncates at the first NUL on
	// decrypt. Deployed devices expect it.
	PaddingZero
)

func (p Padding) String() string {
	switch p {
	case PaddingPKCS7:
		return "pkcs7"
	case PaddingZero:
		return "zero"
	default:
		return fmt.Sprintf("Padding(%d)", int(p))
	}
}

var zeroIV = make([]byte, aes.BlockSize)

func newCBC(key, iv []byte) (cipher.Block, []byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}
	if iv == nil {
		iv = zeroIV
	}
	if len(iv) != aes.BlockSize {
		return nil, nil, fmt.Errorf("IV must be %d bytes, got %d", aes.BlockSize, len(iv))
	}
	return block, iv, nil
}

// Encrypt pads plaintext and encrypts it with AES-CBC. key may be 16, 24 or
// 32 bytes; a nil iv means 16 zero bytes.
func Encrypt(plaintext, key, iv []byte, p Padding) ([]byte, error) {
	block, iv, err := newCBC(key, iv)
	if err != nil {
		return nil, &CryptoError{Op: "encrypt", Err: err}
	}

	var padded []byte
	switch p {
	case PaddingZero:
		padded = zeroPad(plaintext)
	case PaddingPKCS7:
		padded = pkcs7Pad(plaintext)
	default:
		return nil, &CryptoError{Op: "encrypt", Err: fmt.Errorf("unknown padding %s", p)}
	}

	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

// Decrypt reverses Encrypt. The ciphertext must be a non-empty multiple of
// the block size.
func Decrypt(ciphertext, key, iv []byte, p Padding) ([]byte, error) {
	block, iv, err := newCBC(key, iv)
	if err != nil {
		return nil, &CryptoError{Op: "decrypt", Err: err}
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, &CryptoError{
			Op:  "decrypt",
			Err: fmt.Errorf("ciphertext length %d is not a multiple of %d", len(ciphertext), aes.BlockSize),
		}
	}

	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)

	switch p {
	case PaddingZero:
		if i := bytes.IndexByte(out, 0); i >= 0 {
			out = out[:i]
		}
		return out, nil
	case PaddingPKCS7:
		plain, err := pkcs7Unpad(out)
		if err != nil {
			return nil, &CryptoError{Op: "decrypt", Err: err}
		}
		return plain, nil
	default:
		return nil, &CryptoError{Op: "decrypt", Err: fmt.Errorf("unknown padding %s", p)}
	}
}

// zeroPad fills to the next block boundary. Empty input becomes one block.
func zeroPad(b []byte) []byte {
	n := len(b) + (aes.BlockSize-len(b)%aes.BlockSize)%aes.BlockSize
	if n == 0 {
		n = aes.BlockSize
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

func pkcs7Pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	out := make([]byte, len(b), len(b)+n)
	copy(out, b)
	return append(out, bytes.Repeat([]byte{byte(n)}, n)...)
}

var errBadPadding = errors.New("bad PKCS#7 padding")

func pkcs7Unpad(b []byte) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, errBadPadding
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, errBadPadding
		}
	}
	return b[:len(b)-n], nil
}
