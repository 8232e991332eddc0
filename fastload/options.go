package fastload

import (
	"time"

	"github.com/moffa90/go-bflb/protocol"
)

// Config holds the sender and receiver configuration.
type Config struct {
	// ProgressCallback is called after every frame to report progress (optional)
	ProgressCallback ProgressCallback

	// Logger is used for logging operations (optional)
	Logger Logger

	// ReadTimeout bounds the wait for each device reply
	ReadTimeout time.Duration

	// WriteTimeout bounds each frame write on transports with deadlines
	WriteTimeout time.Duration

	// ChunkSize is the maximum payload per chunk frame
	// Default is 4096 bytes
	ChunkSize int
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		ReadTimeout:  time.Second,
		WriteTimeout: 5 * time.Second,
		ChunkSize:    protocol.DefaultChunkSize,
	}
}

// Option is a functional option for configuring a Sender or Receiver.
type Option func(*Config)

// WithProgressCallback sets a callback function to track transfer progress.
//
// Example:
//
//	s := fastload.New(port,
//	    fastload.WithProgressCallback(func(p fastload.Progress) {
//	        fmt.Printf("%.1f%% complete\n", p.Percentage)
//	    }),
//	)
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithLogger sets a logger for transfer operations.
//
// Example:
//
//	s := fastload.New(port, fastload.WithLogger(log.Default()))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithTimeout sets both read and write timeouts.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.ReadTimeout = timeout
			c.WriteTimeout = timeout
		}
	}
}

// WithReadTimeout sets the reply timeout. A reply that does not arrive in
// time fails the transfer.
//
// Example:
//
//	s := fastload.New(port, fastload.WithReadTimeout(3*time.Second))
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.ReadTimeout = timeout
		}
	}
}

// WithWriteTimeout sets the write timeout.
func WithWriteTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.WriteTimeout = timeout
		}
	}
}

// WithChunkSize sets the maximum payload per chunk frame.
// Values outside 1..65535 are ignored.
//
// Example:
//
//	s := fastload.New(port, fastload.WithChunkSize(2048))
func WithChunkSize(size int) Option {
	return func(c *Config) {
		if size > 0 && size <= protocol.MaxChunkSize {
			c.ChunkSize = size
		}
	}
}
