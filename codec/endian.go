package codec

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
)

// hexWordLength is the number of hex characters in one 32-bit word.
const hexWordLength = 8

// SwapHexWords reverses the byte pairs inside every 4-byte word of a hex
// string: "aabbccdd11223344" becomes "ddccbbaa44332211".
//
// This is the textual endian transform used when key material is written
// into eFuse words. It is not a string reverse: word order is preserved.
func SwapHexWords(s string) (string, error) {
	if len(s)%hexWordLength != 0 {
		return "", fmt.Errorf("hex length %d is not a multiple of %d", len(s), hexWordLength)
	}

	out := make([]byte, len(s))
	for w := 0; w < len(s); w += hexWordLength {
		for i := 0; i < hexWordLength; i += 2 {
			j := w + hexWordLength - 2 - i
			out[w+i] = s[j]
			out[w+i+1] = s[j+1]
		}
	}
	return string(out), nil
}

// HexWords splits a hex string into 32-bit values, applying SwapHexWords to
// every word first. The result equals reading the decoded bytes as
// little-endian words, so writing the values back little-endian reproduces
// the original byte order.
func HexWords(s string) ([]uint32, error) {
	if _, err := hex.DecodeString(s); err != nil {
		return nil, fmt.Errorf("invalid hex data: %w", err)
	}

	swapped, err := SwapHexWords(s)
	if err != nil {
		return nil, err
	}

	words := make([]uint32, 0, len(swapped)/hexWordLength)
	for w := 0; w < len(swapped); w += hexWordLength {
		v, err := strconv.ParseUint(swapped[w:w+hexWordLength], 16, 32)
		if err != nil {
			return nil, fmt.Errorf("word %d: %w", w/hexWordLength, err)
		}
		words = append(words, uint32(v))
	}
	return words, nil
}

// WordsLE splits b into little-endian 32-bit words. len(b) must be a
// multiple of 4.
func WordsLE(b []byte) ([]uint32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("length %d is not a multiple of 4", len(b))
	}
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return words, nil
}

// Uint32BE reads a big-endian uint32 at off, reporting false if out of range.
func Uint32BE(b []byte, off int) (uint32, bool) {
	if off < 0 || off+4 > len(b) {
		return 0, false
	}
	return binary.BigEndian.Uint32(b[off:]), true
}

// Uint32LE reads a little-endian uint32 at off, reporting false if out of range.
func Uint32LE(b []byte, off int) (uint32, bool) {
	if off < 0 || off+4 > len(b) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(b[off:]), true
}

// Uint16LE reads a little-endian uint16 at off, reporting false if out of range.
func Uint16LE(b []byte, off int) (uint16, bool) {
	if off < 0 || off+2 > len(b) {
		return 0, false
	}
	return binary.LittleEndian.Uint16(b[off:]), true
}
