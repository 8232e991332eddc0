// Package codec implements the low-level binary primitives shared by the
// Bouffalo record formats: CRC32 integrity checks, endian packing helpers and
// a schema-driven bit-field record codec.
//
// # Bit-Field Records
//
// A Schema maps a field name to a location inside a fixed-size buffer:
//
//	Field{Offset: 0x7C, Pos: 17, Len: 1} // bit 17 of the 32-bit word at 0x7C
//
// Every field lives inside one little-endian 32-bit word. Encoding a field
// reads that word, clears Len bits at Pos, ORs in the value and writes the
// word back. The matching bits of the record's Mask are set so downstream
// burn/verify steps know which bits were written on purpose:
//
//	rec := codec.NewRecord(256)
//	if err := rec.Encode(schema, "ef_sf_aes_mode", 1); err != nil {
//	    // *codec.SchemaError for unknown names
//	}
//	v, _ := rec.Decode(schema, "ef_sf_aes_mode")
//
// # Checksums
//
// All Bouffalo boot structures use the IEEE CRC32 (the zlib polynomial):
//
//	crc := codec.CRC32(header[:12])
//	ok := codec.CheckCRC32(header[:12], header[12:16])
package codec
