package fastload

import (
	"errors"
	"fmt"
)

// Code identifies why a transfer failed.
type Code int

// Transfer failure codes. The numbered codes match the device loader's
// Error1..Error4 reports.
const (
	// CodeHeaderAck: the header frame was not answered with "OK"
	CodeHeaderAck Code = iota + 1

	// CodeChunkAck: a chunk frame was not answered with "OK"
	CodeChunkAck

	// CodeTrailerReply: the trailer reply did not start with "OK"
	CodeTrailerReply

	// CodeHashMismatch: the device hash differs from the local hash
	CodeHashMismatch

	// CodeTimeout: no reply arrived within the read timeout
	CodeTimeout

	// CodeIO: the transport or the source file failed
	CodeIO
)

func (c Code) String() string {
	switch c {
	case CodeHeaderAck, CodeChunkAck, CodeTrailerReply, CodeHashMismatch:
		return fmt.Sprintf("Error%d", int(c))
	case CodeTimeout:
		return "timeout"
	case CodeIO:
		return "io"
	default:
		return fmt.Sprintf("Code(%d)", int(c))
	}
}

// TransferError aborts a whole transfer. There is no partial resume; the
// caller restarts from the header.
type TransferError struct {
	// Code is the failure kind
	Code Code

	// Step is the frame being handled, e.g. "chunk 2/3"
	Step string

	// Reply is the device reply, when one was received
	Reply []byte

	// Err is the underlying cause, if any
	Err error
}

func (e *TransferError) Error() string {
	msg := fmt.Sprintf("fast load %s failed at %s", e.Code, e.Step)
	if e.Reply != nil {
		msg += fmt.Sprintf(": reply %q", e.Reply)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// IsTransferError returns true if err is or wraps a TransferError.
func IsTransferError(err error) bool {
	var te *TransferError
	return errors.As(err, &te)
}

// ErrorCode returns the code of a wrapped TransferError, or 0.
func ErrorCode(err error) Code {
	var te *TransferError
	if errors.As(err, &te) {
		return te.Code
	}
	return 0
}
