package protocol

import (
	"encoding/binary"
	"fmt"
)

func appendFrameHeader(frame []byte, cmd byte, length uint16) []byte {
	frame = append(frame, cmd, 0x00)
	return binary.LittleEndian.AppendUint16(frame, length)
}

// BuildHeaderFrame constructs the frame that opens a transfer.
//
// Frame structure:
//
//	[0xF0][0x00][0x04][0x00][SIZE(4, little-endian)]
func BuildHeaderFrame(size uint32) []byte {
	frame := make([]byte, 0, FrameHeaderSize+SizeFieldSize)
	frame = appendFrameHeader(frame, CmdHeader, SizeFieldSize)
	return binary.LittleEndian.AppendUint32(frame, size)
}

// BuildChunkFrame constructs a data frame. The chunk must be between 1 and
// MaxChunkSize bytes.
//
// Frame structure:
//
//	[0xF1][0x00][LEN_L][LEN_H][DATA...]
func BuildChunkFrame(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("chunk cannot be empty")
	}
	if len(data) > MaxChunkSize {
		return nil, fmt.Errorf("chunk length %d exceeds maximum %d bytes", len(data), MaxChunkSize)
	}

	frame := make([]byte, 0, FrameHeaderSize+len(data))
	frame = appendFrameHeader(frame, CmdChunk, uint16(len(data)))
	return append(frame, data...), nil
}

// BuildTrailerFrame constructs the frame that ends a transfer.
//
// Frame structure:
//
//	[0xF2][0x00][0x00][0x00]
func BuildTrailerFrame() []byte {
	return appendFrameHeader(make([]byte, 0, FrameHeaderSize), CmdTrailer, 0)
}

// BuildClientHello constructs the handshake datagram a client opens with.
func BuildClientHello(pub []byte) ([]byte, error) {
	return buildHello(ClientHello, pub)
}

// BuildServerHello constructs the server's handshake reply.
func BuildServerHello(pub []byte) ([]byte, error) {
	return buildHello(ServerHello, pub)
}

func buildHello(prefix string, pub []byte) ([]byte, error) {
	if len(pub) != PublicKeySize {
		return nil, fmt.Errorf("public key must be exactly %d bytes, got %d", PublicKeySize, len(pub))
	}
	msg := make([]byte, 0, len(prefix)+PublicKeySize)
	msg = append(msg, prefix...)
	return append(msg, pub...), nil
}
