package codec

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// wordSize is the size of the little-endian word every field lives in.
const wordSize = 4

// Field locates a bit range inside the 32-bit little-endian word at Offset.
type Field struct {
	// Offset is the byte offset of the containing word
	Offset uint32 `yaml:"offset"`

	// Pos is the bit position of the least significant field bit (0..31)
	Pos uint8 `yaml:"pos"`

	// Len is the field width in bits (1..32)
	Len uint8 `yaml:"len"`
}

// Mask returns the field's bits within its word.
func (f Field) Mask() uint32 {
	return uint32((uint64(1)<<f.Len)-1) << f.Pos
}

func (f Field) validate() error {
	if f.Len < 1 || f.Len > 32 {
		return fmt.Errorf("bit length %d outside 1..32", f.Len)
	}
	if f.Pos > 31 {
		return fmt.Errorf("bit position %d outside 0..31", f.Pos)
	}
	if int(f.Pos)+int(f.Len) > 32 {
		return fmt.Errorf("bits [%d,%d) cross the word boundary", f.Pos, int(f.Pos)+int(f.Len))
	}
	return nil
}

// Schema maps unique field names to their locations.
type Schema map[string]Field

// Validate checks every field's geometry and that it fits in size bytes.
// Overlapping fields are allowed here; see Overlaps.
func (s Schema) Validate(size int) error {
	for _, name := range s.Names() {
		f := s[name]
		if err := f.validate(); err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
		if int(f.Offset)+wordSize > size {
			return fmt.Errorf("field %q: word at 0x%X exceeds record size %d", name, f.Offset, size)
		}
	}
	return nil
}

// Names returns the field names in sorted order.
func (s Schema) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Overlaps returns every pair of fields whose bit ranges intersect.
// Each pair is reported once, names sorted.
func (s Schema) Overlaps() [][2]string {
	var out [][2]string
	names := s.Names()
	for i, a := range names {
		for _, b := range names[i+1:] {
			fa, fb := s[a], s[b]
			if fa.Offset == fb.Offset && fa.Mask()&fb.Mask() != 0 {
				out = append(out, [2]string{a, b})
			}
		}
	}
	return out
}

// Record is a fixed-size bit-field buffer plus a mask marking explicitly
// written bits.
type Record struct {
	Data []byte
	Mask []byte
}

// NewRecord returns a zero-filled record of size bytes.
func NewRecord(size int) *Record {
	return &Record{
		Data: make([]byte, size),
		Mask: make([]byte, size),
	}
}

// Size returns the record length in bytes.
func (r *Record) Size() int {
	return len(r.Data)
}

func (r *Record) lookup(s Schema, name string) (Field, error) {
	f, ok := s[name]
	if !ok {
		return Field{}, &SchemaError{Field: name}
	}
	if err := f.validate(); err != nil {
		return Field{}, fmt.Errorf("field %q: %w", name, err)
	}
	if int(f.Offset)+wordSize > len(r.Data) {
		return Field{}, &FormatError{
			Record: "bit-field record",
			Reason: fmt.Sprintf("field %q at 0x%X exceeds record size %d", name, f.Offset, len(r.Data)),
		}
	}
	return f, nil
}

// Encode writes value into the named field. The value is truncated to the
// field width; callers are expected to pass values that fit.
func (r *Record) Encode(s Schema, name string, value uint32) error {
	f, err := r.lookup(s, name)
	if err != nil {
		return err
	}

	mask := f.Mask()
	word := binary.LittleEndian.Uint32(r.Data[f.Offset:])
	word = (word &^ mask) | ((value << f.Pos) & mask)
	binary.LittleEndian.PutUint32(r.Data[f.Offset:], word)

	m := binary.LittleEndian.Uint32(r.Mask[f.Offset:])
	binary.LittleEndian.PutUint32(r.Mask[f.Offset:], m|mask)
	return nil
}

// Decode extracts the named field.
func (r *Record) Decode(s Schema, name string) (uint32, error) {
	f, err := r.lookup(s, name)
	if err != nil {
		return 0, err
	}
	word := binary.LittleEndian.Uint32(r.Data[f.Offset:])
	return (word & f.Mask()) >> f.Pos, nil
}

// IsSet reports whether any bit of the named field was explicitly written.
func (r *Record) IsSet(s Schema, name string) bool {
	f, err := r.lookup(s, name)
	if err != nil {
		return false
	}
	return binary.LittleEndian.Uint32(r.Mask[f.Offset:])&f.Mask() != 0
}

// EncodeAll writes every value in name order. Errors do not stop the pass:
// unknown names and fields overlapping one already written in this pass are
// skipped and returned so the caller can log them.
func (r *Record) EncodeAll(s Schema, values map[string]uint32) []error {
	var errs []error
	written := make(map[uint32]uint32)

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		f, ok := s[name]
		if ok {
			if written[f.Offset]&f.Mask() != 0 {
				errs = append(errs, &FormatError{
					Record: "bit-field record",
					Reason: fmt.Sprintf("field %q overlaps a field written in the same pass", name),
				})
				continue
			}
		}
		if err := r.Encode(s, name, values[name]); err != nil {
			errs = append(errs, err)
			continue
		}
		written[f.Offset] |= f.Mask()
	}
	return errs
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := &Record{
		Data: make([]byte, len(r.Data)),
		Mask: make([]byte, len(r.Mask)),
	}
	copy(c.Data, r.Data)
	copy(c.Mask, r.Mask)
	return c
}
