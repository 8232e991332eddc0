// Package flashcfg encodes and decodes flash controller configuration
// tables.
//
// A table is a directory of JEDEC IDs, each pointing at a configuration
// blob describing read modes, clocks and timing for one flash part. The
// directory and the blob region are laid out contiguously, directory first,
// and each is protected by its own CRC32:
//
//	count u32 LE
//	count x { JEDEC ID u32 BE, blob offset u32 LE }
//	CRC32 over the above
//	blobs: { "FCFG", 84-byte body, CRC32 over body } ...
//	CRC32 over all blobs
//
// Blob bodies are bit-field records built against BodySchema, so fields are
// set by name:
//
//	rec := flashcfg.NewConfig()
//	_ = rec.Encode(flashcfg.BodySchema, "io_mode", 4)
//	t := &flashcfg.Table{}
//	_ = t.Add(flashcfg.NewJEDECID(0xEF, 0x40, 0x16), rec)
//	b, _ := t.Encode()
//
// Parts with identical bodies share one blob.
package flashcfg
