package protocol

// Fast-load frame commands. Every frame starts with a 4-byte header:
// command, a reserved zero byte, and the payload length (little-endian).
const (
	// CmdHeader announces the transfer and carries the total size
	CmdHeader = 0xF0

	// CmdChunk carries one chunk of file data
	CmdChunk = 0xF1

	// CmdTrailer ends the transfer and requests the device hash
	CmdTrailer = 0xF2
)

// Frame layout constants.
const (
	// FrameHeaderSize is CMD(1) + RESERVED(1) + LEN(2)
	FrameHeaderSize = 4

	// SizeFieldSize is the payload length of a header frame (u32 file size)
	SizeFieldSize = 4

	// MaxChunkSize is the largest payload a 16-bit length can describe
	MaxChunkSize = 0xFFFF

	// DefaultChunkSize is the chunk size the device loader is tuned for
	DefaultChunkSize = 4096
)

// Fast-load replies.
const (
	// AckOK is the exact reply to a header or chunk frame
	AckOK = "OK"

	// HashHexSize is the length of a hex SHA-256 digest
	HashHexSize = 64

	// HashReplySize is "OK" followed by the hex SHA-256 of the received data
	HashReplySize = len(AckOK) + HashHexSize

	// CheckHash is sent to the device after the hash matched
	CheckHash = "check hash"
)

// Datagram service wire constants.
const (
	// ClientHello prefixes the client's raw public key
	ClientHello = "csk:"

	// ServerHello prefixes the server's raw public key
	ServerHello = "ssk:"

	// PublicKeySize is the size of a raw P-256 public key (X||Y)
	PublicKeySize = 64

	// ReplySuccess reports that the worker succeeded
	ReplySuccess = "Finished with success"

	// ReplyFail reports that the worker failed or the request was rejected
	ReplyFail = "Finished with fail"

	// StopCommand ends the service loop
	StopCommand = "stop"

	// MaxDatagramSize is the largest datagram the service reads
	MaxDatagramSize = 1024
)
