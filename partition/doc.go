// Package partition encodes, validates and parses Bouffalo partition tables.
//
// # Table Format
//
// A partition table is a 16-byte header, up to 16 entries of 36 bytes and a
// trailing CRC32 over the entry block:
//
//	Header:  [MAGIC(4, BE "BFPT")][VERSION(2)][COUNT(2)][AGE(4)][HEADER_CRC32(4)]
//	Entry:   [TYPE][DEVICE][ACTIVE_INDEX][NAME(9)][ADDR0(4)][ADDR1(4)]
//	         [MAXLEN0(4)][MAXLEN1(4)][LEN(4)][AGE(4)]
//	Trailer: [ENTRIES_CRC32(4)]
//
// Integers other than the magic are little-endian. The header CRC covers the
// first 12 bytes; the trailer CRC covers all entries.
//
// ACTIVE_INDEX selects which of the two address/max-length pairs is live:
// zero reads ADDR0/MAXLEN0 at entry offsets 12/20, non-zero reads
// ADDR1/MAXLEN1 at 16/24. Tables already on devices depend on this layout.
//
// # Usage
//
//	tbl := &partition.Table{Entries: []partition.Entry{
//	    {Name: "FW", Address: [2]uint32{0x10000, 0xE8000}, MaxLen: [2]uint32{0x80000, 0x80000}},
//	}}
//	raw, err := tbl.Encode()
//
//	images, err := partition.Parse(raw)
//	// images[0] = {Type: "FW", Address: 0x10000, MaxLen: 0x80000}
//
// Devices keep two copies of the table. Validate checks one buffer; Select
// picks the newest valid copy of two.
package partition
