package fastload

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"io"

	"github.com/moffa90/go-bflb/protocol"
)

// Receiver plays the device side of a transfer. It backs the mock device
// example and loopback tests, and lets a host relay a transfer.
type Receiver struct {
	device io.ReadWriter
	config Config
}

// Result describes one received transfer.
type Result struct {
	// Announced is the size from the header frame
	Announced uint32

	// Received is the number of payload bytes received
	Received int64

	// Chunks is the number of chunk frames received
	Chunks int

	// Digest is the SHA-256 of the received payload
	Digest [sha256.Size]byte
}

// NewReceiver creates a Receiver reading frames from device.
// Only the Logger option applies.
func NewReceiver(device io.ReadWriter, opts ...Option) *Receiver {
	if device == nil {
		panic("device cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Receiver{device: withReadDeadline(device), config: cfg}
}

// Receive serves one transfer, writing the payload to dst. It returns after
// the sender's "check hash" or after the sender closes the transport
// following the hash reply.
func (r *Receiver) Receive(ctx context.Context, dst io.Writer) (*Result, error) {
	stop := watchContext(ctx, r.device)
	defer stop()

	var (
		res     Result
		h       hash.Hash
		started bool
	)

	for {
		hdr, err := r.readFrameHeader(ctx)
		if err != nil {
			return nil, err
		}

		payload := make([]byte, hdr.Length)
		if _, err := io.ReadFull(r.device, payload); err != nil {
			return nil, fmt.Errorf("read %s payload: %w", hdr, err)
		}

		switch hdr.Command {
		case protocol.CmdHeader:
			size, err := protocol.ParseHeaderSize(payload)
			if err != nil {
				return nil, err
			}
			res = Result{Announced: size}
			h = sha256.New()
			started = true
			r.logDebug("transfer announced", "size", size)

		case protocol.CmdChunk:
			if !started {
				return nil, &protocol.ProtocolError{Operation: "receive", Reason: "chunk before header"}
			}
			if _, err := dst.Write(payload); err != nil {
				return nil, fmt.Errorf("write payload: %w", err)
			}
			h.Write(payload)
			res.Received += int64(len(payload))
			res.Chunks++

		case protocol.CmdTrailer:
			if !started {
				return nil, &protocol.ProtocolError{Operation: "receive", Reason: "trailer before header"}
			}
			copy(res.Digest[:], h.Sum(nil))
			if _, err := r.device.Write(protocol.BuildHashReply(res.Digest[:])); err != nil {
				return nil, fmt.Errorf("write hash reply: %w", err)
			}
			r.logInfo("transfer received", "bytes", res.Received, "chunks", res.Chunks)
			return &res, r.awaitCheckHash()
		}

		if _, err := r.device.Write([]byte(protocol.AckOK)); err != nil {
			return nil, fmt.Errorf("write ack: %w", err)
		}
	}
}

func (r *Receiver) readFrameHeader(ctx context.Context) (protocol.FrameHeader, error) {
	buf := make([]byte, protocol.FrameHeaderSize)
	if _, err := io.ReadFull(r.device, buf); err != nil {
		if ctx.Err() != nil {
			return protocol.FrameHeader{}, fmt.Errorf("cancelled: %w", ctx.Err())
		}
		return protocol.FrameHeader{}, fmt.Errorf("read frame header: %w", err)
	}
	return protocol.ParseFrameHeader(buf)
}

func (r *Receiver) awaitCheckHash() error {
	buf := make([]byte, len(protocol.CheckHash))
	_, err := io.ReadFull(r.device, buf)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return nil
	case err != nil:
		return fmt.Errorf("read check hash: %w", err)
	case !bytes.Equal(buf, []byte(protocol.CheckHash)):
		return &protocol.ProtocolError{Operation: "receive", Reason: fmt.Sprintf("unexpected final message %q", buf)}
	}
	return nil
}

func (r *Receiver) logDebug(msg string, keysAndValues ...interface{}) {
	if r.config.Logger != nil {
		r.config.Logger.Debug(msg, keysAndValues...)
	}
}

func (r *Receiver) logInfo(msg string, keysAndValues ...interface{}) {
	if r.config.Logger != nil {
		r.config.Logger.Info(msg, keysAndValues...)
	}
}
