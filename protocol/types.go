package protocol

import "fmt"

// FrameHeader is the decoded 4-byte header of a fast-load frame.
type FrameHeader struct {
	// Command is CmdHeader, CmdChunk or CmdTrailer
	Command byte

	// Length is the payload length following the header
	Length uint16
}

func (h FrameHeader) String() string {
	return fmt.Sprintf("%s(len=%d)", frameName(h.Command), h.Length)
}

func frameName(cmd byte) string {
	switch cmd {
	case CmdHeader:
		return "header"
	case CmdChunk:
		return "chunk"
	case CmdTrailer:
		return "trailer"
	default:
		return fmt.Sprintf("unknown(0x%02X)", cmd)
	}
}
