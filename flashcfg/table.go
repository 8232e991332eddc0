package flashcfg

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/moffa90/go-bflb/codec"
)

// Directory geometry.
const (
	// countSize is the size of the leading entry count
	countSize = 4

	// EntrySize is the size of one directory entry
	EntrySize = 8
)

const recordName = "flash config table"

// ErrNotFound is returned by Lookup when no entry matches the JEDEC ID.
var ErrNotFound = errors.New("flash config not found")

// JEDECID is a flash JEDEC ID: manufacturer, memory type and capacity in the
// upper three bytes, low byte zero.
type JEDECID uint32

// NewJEDECID builds an ID from the three bytes a flash returns for 0x9F.
func NewJEDECID(mid, memType, capacity byte) JEDECID {
	return JEDECID(uint32(mid)<<24 | uint32(memType)<<16 | uint32(capacity)<<8)
}

// ParseJEDECID parses six hex characters such as "ef4016".
func ParseJEDECID(s string) (JEDECID, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	if len(s) != 6 {
		return 0, fmt.Errorf("invalid JEDEC ID %q: want 6 hex characters", s)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid JEDEC ID %q: %w", s, err)
	}
	return NewJEDECID(b[0], b[1], b[2]), nil
}

func (id JEDECID) String() string {
	return fmt.Sprintf("%06x", uint32(id)>>8)
}

// Part is one directory entry with its configuration body.
type Part struct {
	ID     JEDECID
	Config *codec.Record
}

// Table is a decoded flash config table.
type Table struct {
	Parts []Part
}

// Add appends a part. Duplicate IDs and bodies of the wrong size are
// rejected.
func (t *Table) Add(id JEDECID, cfg *codec.Record) error {
	if cfg == nil || cfg.Size() != BodySize {
		return fmt.Errorf("flash config for %s must be %d bytes", id, BodySize)
	}
	if uint32(id)&0xFF != 0 {
		return fmt.Errorf("JEDEC ID %08x has a non-zero low byte", uint32(id))
	}
	for _, p := range t.Parts {
		if p.ID == id {
			return fmt.Errorf("duplicate flash config for JEDEC ID %s", id)
		}
	}
	t.Parts = append(t.Parts, Part{ID: id, Config: cfg})
	return nil
}

// Encode lays out the directory followed by the blob region. Parts with
// identical bodies share a blob.
func (t *Table) Encode() ([]byte, error) {
	if len(t.Parts) == 0 {
		return nil, &codec.FormatError{Record: recordName, Reason: "no parts"}
	}

	dir := make([]byte, countSize, countSize+len(t.Parts)*EntrySize+codec.CRC32Size)
	binary.LittleEndian.PutUint32(dir, uint32(len(t.Parts)))

	var blobs []byte
	offsets := make(map[string]uint32)

	for _, p := range t.Parts {
		if p.Config == nil || p.Config.Size() != BodySize {
			return nil, &codec.FormatError{
				Record: recordName,
				Reason: fmt.Sprintf("config for %s is not %d bytes", p.ID, BodySize),
			}
		}

		key := string(p.Config.Data)
		off, ok := offsets[key]
		if !ok {
			off = uint32(len(blobs))
			offsets[key] = off
			blobs = append(blobs, EncodeBlob(p.Config)...)
		}

		dir = binary.BigEndian.AppendUint32(dir, uint32(p.ID))
		dir = binary.LittleEndian.AppendUint32(dir, off)
	}

	out := codec.AppendCRC32(dir, dir)
	out = append(out, blobs...)
	return codec.AppendCRC32(out, blobs), nil
}

// EncodeBlob frames one body as magic + body + CRC32.
func EncodeBlob(cfg *codec.Record) []byte {
	b := make([]byte, 0, BlobSize)
	b = append(b, Magic...)
	b = append(b, cfg.Data...)
	return codec.AppendCRC32(b, cfg.Data)
}

// DecodeBlob checks the magic and CRC of one blob and returns its body.
func DecodeBlob(b []byte) (*codec.Record, error) {
	if len(b) < BlobSize {
		return nil, &codec.FormatError{Record: recordName, Reason: "blob truncated"}
	}
	if !bytes.Equal(b[:len(Magic)], []byte(Magic)) {
		return nil, &codec.FormatError{Record: recordName, Reason: "bad blob magic"}
	}
	body := b[len(Magic) : len(Magic)+BodySize]
	if !codec.CheckCRC32(body, b[len(Magic)+BodySize:BlobSize]) {
		return nil, &codec.FormatError{Record: recordName, Reason: "blob CRC32 mismatch"}
	}

	rec := NewConfig()
	copy(rec.Data, body)
	return rec, nil
}

type entry struct {
	id  JEDECID
	off uint32
}

// directory validates both regions and returns the entries and the blob
// region.
func directory(b []byte) ([]entry, []byte, error) {
	count, ok := codec.Uint32LE(b, 0)
	if !ok {
		return nil, nil, &codec.FormatError{Record: recordName, Reason: "too short"}
	}
	if count == 0 {
		return nil, nil, &codec.FormatError{Record: recordName, Reason: "empty directory"}
	}

	dirEnd := countSize + int(count)*EntrySize
	if count > uint32(len(b)/EntrySize) || dirEnd+codec.CRC32Size > len(b) {
		return nil, nil, &codec.FormatError{Record: recordName, Reason: "directory truncated"}
	}
	if !codec.CheckCRC32(b[:dirEnd], b[dirEnd:dirEnd+codec.CRC32Size]) {
		return nil, nil, &codec.FormatError{Record: recordName, Reason: "directory CRC32 mismatch"}
	}

	entries := make([]entry, 0, count)
	regionLen := 0
	for i := 0; i < int(count); i++ {
		base := countSize + i*EntrySize
		id, _ := codec.Uint32BE(b, base)
		off, _ := codec.Uint32LE(b, base+4)
		entries = append(entries, entry{id: JEDECID(id), off: off})
		if end := int(off) + BlobSize; end > regionLen {
			regionLen = end
		}
	}

	region := b[dirEnd+codec.CRC32Size:]
	if regionLen+codec.CRC32Size > len(region) {
		return nil, nil, &codec.FormatError{Record: recordName, Reason: "blob region truncated"}
	}
	if !codec.CheckCRC32(region[:regionLen], region[regionLen:regionLen+codec.CRC32Size]) {
		return nil, nil, &codec.FormatError{Record: recordName, Reason: "blob region CRC32 mismatch"}
	}
	return entries, region[:regionLen], nil
}

// Decode validates both CRCs and every blob.
func Decode(b []byte) (*Table, error) {
	entries, region, err := directory(b)
	if err != nil {
		return nil, err
	}

	t := &Table{Parts: make([]Part, 0, len(entries))}
	for _, e := range entries {
		cfg, err := DecodeBlob(region[e.off:])
		if err != nil {
			return nil, fmt.Errorf("JEDEC ID %s: %w", e.id, err)
		}
		t.Parts = append(t.Parts, Part{ID: e.id, Config: cfg})
	}
	return t, nil
}

// Lookup returns the body for id, or ErrNotFound.
func Lookup(b []byte, id JEDECID) (*codec.Record, error) {
	entries, region, err := directory(b)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.id == id {
			return DecodeBlob(region[e.off:])
		}
	}
	return nil, fmt.Errorf("JEDEC ID %s: %w", id, ErrNotFound)
}
