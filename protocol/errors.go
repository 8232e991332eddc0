package protocol

import (
	"errors"
	"fmt"
)

// ProtocolError reports a frame or reply that does not match the wire
// format.
type ProtocolError struct {
	// Operation is the frame or reply being handled
	Operation string

	// Reason describes the mismatch
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Operation, e.Reason)
}

// IsProtocolError returns true if err is or wraps a ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
