package codec

import (
	"errors"
	"fmt"
)

// ErrUnknownField is matched by every SchemaError via errors.Is.
var ErrUnknownField = errors.New("unknown field")

// FormatError indicates a magic, CRC or length mismatch in a binary record.
// It is always recoverable: the caller may retry with alternate data.
type FormatError struct {
	// Record names the structure being decoded (e.g. "partition table")
	Record string

	// Reason describes the failed check
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Record, e.Reason)
}

// SchemaError indicates that a field name is not present in a schema.
// Callers usually log it and continue with the remaining fields.
type SchemaError struct {
	Field string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("unknown field %q", e.Field)
}

// Is lets errors.Is(err, ErrUnknownField) match any SchemaError.
func (e *SchemaError) Is(target error) bool {
	return target == ErrUnknownField
}

// IsFormatError returns true if err is or wraps a FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}
