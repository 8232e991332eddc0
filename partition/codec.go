package partition

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/moffa90/go-bflb/codec"
)

const recordName = "partition table"

func formatErr(format string, args ...any) error {
	return &codec.FormatError{Record: recordName, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks the magic, entry count and both CRC32s of a table buffer.
// It returns the entry count and table age. Any mismatch is a
// *codec.FormatError; the caller decides whether to try the backup copy.
//
// Trailing bytes after the entry CRC are ignored, so a whole flash sector
// may be passed in.
func Validate(b []byte) (count int, age uint32, err error) {
	if len(b) < HeaderSize {
		return 0, 0, formatErr("too short: got %d bytes, header is %d", len(b), HeaderSize)
	}

	magic := binary.BigEndian.Uint32(b[0:4])
	if magic != Magic {
		return 0, 0, formatErr("bad magic: got 0x%08X, expected 0x%08X", magic, uint32(Magic))
	}

	count = int(binary.LittleEndian.Uint16(b[6:8]))
	if count > MaxEntries {
		return 0, 0, formatErr("entry count %d exceeds %d", count, MaxEntries)
	}

	if !codec.CheckCRC32(b[:HeaderCRCOffset], b[HeaderCRCOffset:HeaderSize]) {
		return 0, 0, formatErr("header CRC32 mismatch: stored 0x%08X, computed 0x%08X",
			binary.LittleEndian.Uint32(b[HeaderCRCOffset:]), codec.CRC32(b[:HeaderCRCOffset]))
	}

	end := HeaderSize + count*EntrySize
	if len(b) < end+codec.CRC32Size {
		return 0, 0, formatErr("truncated: %d entries need %d bytes, got %d", count, Size(count), len(b))
	}

	if !codec.CheckCRC32(b[HeaderSize:end], b[end:end+codec.CRC32Size]) {
		return 0, 0, formatErr("entry CRC32 mismatch: stored 0x%08X, computed 0x%08X",
			binary.LittleEndian.Uint32(b[end:]), codec.CRC32(b[HeaderSize:end]))
	}

	return count, binary.LittleEndian.Uint32(b[8:12]), nil
}

// Parse validates the table and returns the recognized FW and mfg entries
// in table order.
func Parse(b []byte) ([]Image, error) {
	count, _, err := Validate(b)
	if err != nil {
		return nil, err
	}

	var images []Image
	for i := 0; i < count; i++ {
		e := b[HeaderSize+i*EntrySize : HeaderSize+(i+1)*EntrySize]

		typ, ok := recognize(entryName(e))
		if !ok {
			continue
		}

		addrOff, maxLenOff := entryAddressOffset, entryMaxLenOffset
		if e[entryActiveIndexOffset] != 0 {
			addrOff, maxLenOff = entryAltAddressOffset, entryAltMaxLenOffset
		}

		images = append(images, Image{
			Type:    typ,
			Address: binary.LittleEndian.Uint32(e[addrOff:]),
			MaxLen:  binary.LittleEndian.Uint32(e[maxLenOff:]),
		})
	}

	return images, nil
}

// Lookup returns the first recognized image of the given type.
func Lookup(b []byte, typ ImageType) (Image, error) {
	images, err := Parse(b)
	if err != nil {
		return Image{}, err
	}
	for _, img := range images {
		if img.Type == typ {
			return img, nil
		}
	}
	return Image{}, fmt.Errorf("no %s entry in partition table", typ)
}

// Decode validates the table and decodes every entry.
func Decode(b []byte) (*Table, error) {
	count, age, err := Validate(b)
	if err != nil {
		return nil, err
	}

	tbl := &Table{
		Version: binary.LittleEndian.Uint16(b[4:6]),
		Age:     age,
		Entries: make([]Entry, 0, count),
	}

	for i := 0; i < count; i++ {
		e := b[HeaderSize+i*EntrySize : HeaderSize+(i+1)*EntrySize]
		tbl.Entries = append(tbl.Entries, Entry{
			Type:        e[entryTypeOffset],
			Device:      e[entryDeviceOffset],
			ActiveIndex: e[entryActiveIndexOffset],
			Name:        entryName(e),
			Address: [2]uint32{
				binary.LittleEndian.Uint32(e[entryAddressOffset:]),
				binary.LittleEndian.Uint32(e[entryAltAddressOffset:]),
			},
			MaxLen: [2]uint32{
				binary.LittleEndian.Uint32(e[entryMaxLenOffset:]),
				binary.LittleEndian.Uint32(e[entryAltMaxLenOffset:]),
			},
			Len: binary.LittleEndian.Uint32(e[entryLenOffset:]),
			Age: binary.LittleEndian.Uint32(e[entryAgeOffset:]),
		})
	}

	return tbl, nil
}

// Encode serializes the table with both CRC32s.
func (t *Table) Encode() ([]byte, error) {
	if len(t.Entries) > MaxEntries {
		return nil, fmt.Errorf("too many entries: got %d, maximum is %d", len(t.Entries), MaxEntries)
	}

	b := make([]byte, HeaderSize, Size(len(t.Entries)))
	binary.BigEndian.PutUint32(b[0:4], Magic)
	binary.LittleEndian.PutUint16(b[4:6], t.Version)
	binary.LittleEndian.PutUint16(b[6:8], uint16(len(t.Entries)))
	binary.LittleEndian.PutUint32(b[8:12], t.Age)
	binary.LittleEndian.PutUint32(b[12:16], codec.CRC32(b[:HeaderCRCOffset]))

	for i, entry := range t.Entries {
		if len(entry.Name) > NameSize {
			return nil, fmt.Errorf("entry %d: name %q longer than %d bytes", i, entry.Name, NameSize)
		}

		e := make([]byte, EntrySize)
		e[entryTypeOffset] = entry.Type
		e[entryDeviceOffset] = entry.Device
		e[entryActiveIndexOffset] = entry.ActiveIndex
		copy(e[entryNameOffset:entryNameOffset+NameSize], entry.Name)
		binary.LittleEndian.PutUint32(e[entryAddressOffset:], entry.Address[0])
		binary.LittleEndian.PutUint32(e[entryAltAddressOffset:], entry.Address[1])
		binary.LittleEndian.PutUint32(e[entryMaxLenOffset:], entry.MaxLen[0])
		binary.LittleEndian.PutUint32(e[entryAltMaxLenOffset:], entry.MaxLen[1])
		binary.LittleEndian.PutUint32(e[entryLenOffset:], entry.Len)
		binary.LittleEndian.PutUint32(e[entryAgeOffset:], entry.Age)
		b = append(b, e...)
	}

	return codec.AppendCRC32(b, b[HeaderSize:]), nil
}

// Select validates both stored copies of a table and returns the decoded
// valid copy with the higher age, together with its index (0 = primary,
// 1 = backup). The primary wins ties. If neither copy is valid the primary's
// error is returned.
func Select(primary, backup []byte) (*Table, int, error) {
	pt, perr := Decode(primary)
	bt, berr := Decode(backup)

	switch {
	case perr == nil && berr == nil:
		if bt.Age > pt.Age {
			return bt, 1, nil
		}
		return pt, 0, nil
	case perr == nil:
		return pt, 0, nil
	case berr == nil:
		return bt, 1, nil
	default:
		return nil, 0, fmt.Errorf("no valid partition table copy: %w", perr)
	}
}

func entryName(e []byte) string {
	name := e[entryNameOffset : entryNameOffset+NameSize]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	return string(name)
}

func recognize(name string) (ImageType, bool) {
	switch {
	case strings.HasPrefix(name, string(ImageFirmware)):
		return ImageFirmware, true
	case strings.HasPrefix(name, string(ImageMfg)):
		return ImageMfg, true
	default:
		return "", false
	}
}
