// Package protocol implements the wire formats of the fast-load file
// transfer and the command/reply datagram service.
//
// # Fast-load frames
//
// Every frame starts with a 4-byte header:
//
//	[CMD][0x00][LEN_L][LEN_H][PAYLOAD...]
//
// Where:
//   - CMD = 0xF0 (header), 0xF1 (chunk) or 0xF2 (trailer)
//   - LEN = 16-bit payload length (little-endian)
//
// A transfer is one header frame carrying the file size, then one chunk
// frame per chunk, then a trailer:
//
//	frame := protocol.BuildHeaderFrame(uint32(size))
//	frame, err := protocol.BuildChunkFrame(data)
//	frame := protocol.BuildTrailerFrame()
//
// The device answers header and chunk frames with exactly "OK" and the
// trailer with "OK" followed by the hex SHA-256 of everything it received:
//
//	if err := protocol.ParseAck(reply); err != nil { ... }
//	digest, err := protocol.ParseHashReply(reply)
//
// # Datagram service
//
// A client may open with "csk:" + its 64-byte raw public key; the server
// answers "ssk:" + its own. The next datagram from that client is AES-CBC
// ciphertext. Every request ends with "Finished with success" or
// "Finished with fail".
//
// # Error Handling
//
// Malformed frames and unexpected replies are returned as *ProtocolError:
//
//	err := protocol.ParseAck([]byte("ERR"))
//	// err.Error() returns: `ack: unexpected reply "ERR"`
package protocol
