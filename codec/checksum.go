package codec

import (
	"encoding/binary"
	"hash/crc32"
)

// CRC32Size is the size in bytes of a stored CRC32 value.
const CRC32Size = 4

// CRC32 computes the IEEE CRC32 over the concatenation of the given byte
// ranges. This is the zlib/binascii polynomial used by the boot ROM.
func CRC32(ranges ...[]byte) uint32 {
	var crc uint32
	for _, r := range ranges {
		crc = crc32.Update(crc, crc32.IEEETable, r)
	}
	return crc
}

// AppendCRC32 appends the little-endian CRC32 of data to dst.
func AppendCRC32(dst, data []byte) []byte {
	return binary.LittleEndian.AppendUint32(dst, CRC32(data))
}

// CheckCRC32 reports whether stored holds the little-endian CRC32 of data.
// The comparison is exact; stored must be exactly CRC32Size bytes.
func CheckCRC32(data, stored []byte) bool {
	if len(stored) != CRC32Size {
		return false
	}
	return binary.LittleEndian.Uint32(stored) == CRC32(data)
}
