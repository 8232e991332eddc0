package fastload

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/moffa90/go-bflb/protocol"
)

// Sender streams files to a device loader over a reliable byte transport.
//
// A Sender runs one transfer at a time; the protocol has a single frame in
// flight and no multiplexing.
type Sender struct {
	device io.ReadWriter
	config Config
}

// New creates a new Sender with the given device and options.
// The device is typically a serial port or a TCP connection; net.Conn and
// go.bug.st/serial ports get their read timeouts applied natively. Any other
// reader is wrapped so that reply timeouts and cancellation still hold; a
// read abandoned on timeout keeps one goroutine blocked until the device
// returns from it.
//
// Example:
//
//	port, _ := serial.Open("/dev/ttyUSB0", &serial.Mode{BaudRate: 2000000})
//	s := fastload.New(port,
//	    fastload.WithProgressCallback(progressFunc),
//	    fastload.WithReadTimeout(2*time.Second),
//	)
func New(device io.ReadWriter, opts ...Option) *Sender {
	if device == nil {
		panic("device cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Sender{
		device: withReadDeadline(device),
		config: cfg,
	}
}

// SendFile sends the file at path.
func (s *Sender) SendFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	return s.Send(ctx, f, info.Size())
}

// Send performs the complete transfer sequence:
//  1. Header frame with the size, answered with "OK"
//  2. One chunk frame at a time, each answered with "OK"
//  3. Trailer frame, answered with "OK" + hex SHA-256 of the data
//  4. "check hash" once the digest matches
//
// Exactly size bytes are read from r. Any unexpected reply or timeout
// aborts the transfer with a *TransferError; nothing is retried.
func (s *Sender) Send(ctx context.Context, r io.Reader, size int64) error {
	if size < 0 || size > math.MaxUint32 {
		return fmt.Errorf("file size %d does not fit the header frame", size)
	}

	stop := watchContext(ctx, s.device)
	defer stop()

	startTime := time.Now()
	chunkSize := int64(s.config.ChunkSize)
	totalChunks := int((size + chunkSize - 1) / chunkSize)

	// Phase 1: header
	s.reportProgress(Progress{
		Phase:       PhaseHeader,
		TotalChunks: totalChunks,
		TotalBytes:  size,
	})

	if err := s.exchange(ctx, protocol.BuildHeaderFrame(uint32(size)), "header", CodeHeaderAck); err != nil {
		return err
	}
	s.logDebug("header acknowledged", "size", size, "chunks", totalChunks)

	// Phase 2: chunks
	hash := sha256.New()
	buf := make([]byte, chunkSize)
	var sent int64

	for i := 0; sent < size; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cancelled: %w", err)
		}

		n := min(chunkSize, size-sent)
		if _, err := io.ReadFull(r, buf[:n]); err != nil {
			return &TransferError{Code: CodeIO, Step: "read source", Err: err}
		}
		hash.Write(buf[:n])

		frame, err := protocol.BuildChunkFrame(buf[:n])
		if err != nil {
			return err
		}

		step := fmt.Sprintf("chunk %d/%d", i+1, totalChunks)
		if err := s.exchange(ctx, frame, step, CodeChunkAck); err != nil {
			return err
		}

		sent += n
		s.reportProgress(Progress{
			Phase:       PhaseSending,
			Chunk:       i + 1,
			TotalChunks: totalChunks,
			Percentage:  float64(sent) / float64(size) * 95,
			BytesSent:   sent,
			TotalBytes:  size,
			ElapsedTime: time.Since(startTime),
		})
	}

	// Phase 3: trailer and hash check
	s.reportProgress(Progress{
		Phase:       PhaseVerifying,
		Chunk:       totalChunks,
		TotalChunks: totalChunks,
		Percentage:  95,
		BytesSent:   sent,
		TotalBytes:  size,
		ElapsedTime: time.Since(startTime),
	})

	if err := s.write(protocol.BuildTrailerFrame(), "trailer"); err != nil {
		return err
	}
	reply, err := s.read(ctx, protocol.HashReplySize, "trailer")
	if err != nil {
		return err
	}

	if !bytes.HasPrefix(reply, []byte(protocol.AckOK)) {
		s.logError("trailer rejected", "reply", fmt.Sprintf("%q", reply))
		return &TransferError{Code: CodeTrailerReply, Step: "trailer", Reply: reply}
	}

	local := hex.EncodeToString(hash.Sum(nil))
	remote := strings.ToLower(string(reply[len(protocol.AckOK):]))
	if remote != local {
		s.logError("hash mismatch", "local", local, "device", remote)
		return &TransferError{
			Code:  CodeHashMismatch,
			Step:  "trailer",
			Reply: reply,
			Err:   fmt.Errorf("device hash %s, local hash %s", remote, local),
		}
	}

	if err := s.write([]byte(protocol.CheckHash), "check hash"); err != nil {
		return err
	}

	s.reportProgress(Progress{
		Phase:       PhaseComplete,
		Chunk:       totalChunks,
		TotalChunks: totalChunks,
		Percentage:  100,
		BytesSent:   sent,
		TotalBytes:  size,
		ElapsedTime: time.Since(startTime),
	})

	s.logInfo("fast load complete",
		"bytes", sent,
		"chunks", totalChunks,
		"sha256", local,
		"elapsed", time.Since(startTime).String(),
	)

	return nil
}

// exchange writes a frame and requires exactly "OK" back.
func (s *Sender) exchange(ctx context.Context, frame []byte, step string, code Code) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cancelled: %w", err)
	}
	if err := s.write(frame, step); err != nil {
		return err
	}

	reply, err := s.read(ctx, len(protocol.AckOK), step)
	if err != nil {
		return err
	}
	if err := protocol.ParseAck(reply); err != nil {
		s.logError("frame rejected", "step", step, "reply", fmt.Sprintf("%q", reply))
		return &TransferError{Code: code, Step: step, Reply: reply, Err: err}
	}
	return nil
}

func (s *Sender) write(frame []byte, step string) error {
	if err := writeFrame(s.device, frame, s.config.WriteTimeout); err != nil {
		if isTimeout(err) {
			return &TransferError{Code: CodeTimeout, Step: step, Err: err}
		}
		return &TransferError{Code: CodeIO, Step: step, Err: err}
	}
	return nil
}

func (s *Sender) read(ctx context.Context, max int, step string) ([]byte, error) {
	reply, err := readReply(ctx, s.device, max, s.config.ReadTimeout)
	switch {
	case err == nil:
		return reply, nil
	case ctx.Err() != nil:
		return nil, fmt.Errorf("cancelled: %w", ctx.Err())
	case errors.Is(err, ErrTimeout):
		s.logError("reply timeout", "step", step, "timeout", s.config.ReadTimeout.String())
		return nil, &TransferError{Code: CodeTimeout, Step: step, Err: err}
	default:
		return nil, &TransferError{Code: CodeIO, Step: step, Err: err}
	}
}

// reportProgress calls the progress callback if configured.
func (s *Sender) reportProgress(progress Progress) {
	if s.config.ProgressCallback != nil {
		s.config.ProgressCallback(progress)
	}
}

// logDebug logs a debug message if a logger is configured.
func (s *Sender) logDebug(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (s *Sender) logInfo(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if a logger is configured.
func (s *Sender) logError(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Error(msg, keysAndValues...)
	}
}
