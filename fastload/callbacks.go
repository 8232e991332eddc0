package fastload

import "time"

// Transfer phases reported through Progress.
const (
	PhaseHeader    = "header"
	PhaseSending   = "sending"
	PhaseVerifying = "verifying"
	PhaseComplete  = "complete"
)

// Progress contains information about the transfer progress.
// Passed to ProgressCallback during Send.
type Progress struct {
	// Phase describes the current operation phase:
	//   "header"    - Announcing the file size
	//   "sending"   - Sending chunk frames
	//   "verifying" - Comparing the device hash
	//   "complete"  - Transfer completed successfully
	Phase string

	// Chunk is the number of chunks acknowledged so far
	Chunk int

	// TotalChunks is the total number of chunk frames
	TotalChunks int

	// Percentage is the completion percentage (0.0 to 100.0)
	Percentage float64

	// BytesSent is the number of file bytes acknowledged so far
	BytesSent int64

	// TotalBytes is the file size
	TotalBytes int64

	// ElapsedTime is the time elapsed since the transfer started
	ElapsedTime time.Duration
}

// ProgressCallback is called after every acknowledged frame.
// Implementations should return quickly; the next frame waits for it.
type ProgressCallback func(Progress)

// Logger is an optional logging interface. *log.Logger from
// github.com/charmbracelet/log satisfies it.
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg interface{}, keyvals ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg interface{}, keyvals ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg interface{}, keyvals ...interface{})
}
