package protocol

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// ParseFrameHeader decodes the 4-byte header at the start of b.
func ParseFrameHeader(b []byte) (FrameHeader, error) {
	if len(b) < FrameHeaderSize {
		return FrameHeader{}, &ProtocolError{
			Operation: "parse frame",
			Reason:    fmt.Sprintf("frame too short: got %d bytes, minimum is %d", len(b), FrameHeaderSize),
		}
	}

	h := FrameHeader{Command: b[0], Length: binary.LittleEndian.Uint16(b[2:4])}
	switch h.Command {
	case CmdHeader:
		if h.Length != SizeFieldSize {
			return h, &ProtocolError{
				Operation: "parse frame",
				Reason:    fmt.Sprintf("header frame length %d, want %d", h.Length, SizeFieldSize),
			}
		}
	case CmdChunk:
		if h.Length == 0 {
			return h, &ProtocolError{Operation: "parse frame", Reason: "empty chunk"}
		}
	case CmdTrailer:
		if h.Length != 0 {
			return h, &ProtocolError{
				Operation: "parse frame",
				Reason:    fmt.Sprintf("trailer frame length %d, want 0", h.Length),
			}
		}
	default:
		return h, &ProtocolError{
			Operation: "parse frame",
			Reason:    fmt.Sprintf("unknown command 0x%02X", h.Command),
		}
	}
	return h, nil
}

// ParseHeaderSize returns the file size carried by a header frame payload.
func ParseHeaderSize(payload []byte) (uint32, error) {
	if len(payload) != SizeFieldSize {
		return 0, &ProtocolError{
			Operation: "parse header",
			Reason:    fmt.Sprintf("size field is %d bytes, want %d", len(payload), SizeFieldSize),
		}
	}
	return binary.LittleEndian.Uint32(payload), nil
}

// ParseAck checks that reply is exactly "OK".
func ParseAck(reply []byte) error {
	if !bytes.Equal(reply, []byte(AckOK)) {
		return &ProtocolError{Operation: "ack", Reason: fmt.Sprintf("unexpected reply %q", reply)}
	}
	return nil
}

// ParseHashReply extracts the lower-case hex digest from an "OK"+hash reply.
func ParseHashReply(reply []byte) (string, error) {
	if !bytes.HasPrefix(reply, []byte(AckOK)) {
		return "", &ProtocolError{Operation: "hash reply", Reason: fmt.Sprintf("unexpected reply %q", reply)}
	}

	digest := strings.ToLower(string(reply[len(AckOK):]))
	if len(digest) != HashHexSize {
		return "", &ProtocolError{
			Operation: "hash reply",
			Reason:    fmt.Sprintf("digest is %d characters, want %d", len(digest), HashHexSize),
		}
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return "", &ProtocolError{Operation: "hash reply", Reason: "digest is not hex"}
	}
	return digest, nil
}

// BuildHashReply constructs the device's reply to a trailer frame.
func BuildHashReply(digest []byte) []byte {
	return []byte(AckOK + hex.EncodeToString(digest))
}

// ParseClientHello returns the peer public key if msg is a client hello.
func ParseClientHello(msg []byte) ([]byte, bool) {
	return parseHello(ClientHello, msg)
}

// ParseServerHello returns the peer public key if msg is a server hello.
func ParseServerHello(msg []byte) ([]byte, bool) {
	return parseHello(ServerHello, msg)
}

func parseHello(prefix string, msg []byte) ([]byte, bool) {
	if !bytes.HasPrefix(msg, []byte(prefix)) {
		return nil, false
	}
	return msg[len(prefix):], true
}

// ParseReply interprets a service control reply.
func ParseReply(msg []byte) (bool, error) {
	switch string(msg) {
	case ReplySuccess:
		return true, nil
	case ReplyFail:
		return false, nil
	default:
		return false, &ProtocolError{Operation: "service reply", Reason: fmt.Sprintf("unexpected reply %q", msg)}
	}
}
