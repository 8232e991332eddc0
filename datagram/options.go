package datagram

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/moffa90/go-bflb/secure"
)

// Mode selects how datagrams are protected.
type Mode int

const (
	// ModePlain carries command lines unencrypted
	ModePlain Mode = iota

	// ModeStatic encrypts every datagram with a pre-shared key
	ModeStatic

	// ModeECDH derives a fresh key per request from a handshake
	ModeECDH
)

func (m Mode) String() string {
	switch m {
	case ModeStatic:
		return "static"
	case ModeECDH:
		return "ecdh"
	default:
		return "plain"
	}
}

// Logger is an optional logging interface. *log.Logger from
// github.com/charmbracelet/log satisfies it.
type Logger interface {
	Debug(msg interface{}, keyvals ...interface{})
	Info(msg interface{}, keyvals ...interface{})
	Warn(msg interface{}, keyvals ...interface{})
	Error(msg interface{}, keyvals ...interface{})
}

// Config holds the server and client configuration.
type Config struct {
	// Mode selects plain, static key or ECDH protection
	Mode Mode

	// StaticKey is the pre-shared AES key for ModeStatic
	StaticKey []byte

	// Padding is the AES padding scheme
	Padding secure.Padding

	// SessionTTL bounds how long a handshake waits for its payload
	SessionTTL time.Duration

	// PollInterval is how often the receive loop checks for cancellation
	PollInterval time.Duration

	// ReplyTimeout bounds how long a client waits for each reply
	ReplyTimeout time.Duration

	// Registerer receives the server metrics (optional)
	Registerer prometheus.Registerer

	// Logger is used for logging operations (optional)
	Logger Logger
}

func defaultConfig() Config {
	return Config{
		Mode:         ModePlain,
		Padding:      secure.PaddingPKCS7,
		SessionTTL:   30 * time.Second,
		PollInterval: 250 * time.Millisecond,
		ReplyTimeout: 5 * time.Minute,
	}
}

// Option is a functional option for configuring a Server or Client.
type Option func(*Config)

// WithStaticKey protects every datagram with a pre-shared key.
func WithStaticKey(key []byte) Option {
	return func(c *Config) {
		c.Mode = ModeStatic
		c.StaticKey = key
	}
}

// WithECDH enables the per-request ECDH handshake.
func WithECDH() Option {
	return func(c *Config) {
		c.Mode = ModeECDH
	}
}

// WithPadding selects the AES padding scheme. Use secure.PaddingZero to
// talk to peers that only speak the legacy scheme.
func WithPadding(p secure.Padding) Option {
	return func(c *Config) {
		c.Padding = p
	}
}

// WithSessionTTL sets how long a handshake waits for its payload.
func WithSessionTTL(ttl time.Duration) Option {
	return func(c *Config) {
		if ttl > 0 {
			c.SessionTTL = ttl
		}
	}
}

// WithPollInterval sets how often the receive loop wakes to check for
// cancellation and expired handshakes.
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.PollInterval = d
		}
	}
}

// WithReplyTimeout sets how long a client waits for each reply. Workflow
// replies arrive only once flashing has finished.
func WithReplyTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.ReplyTimeout = d
		}
	}
}

// WithMetrics registers the server metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registerer = reg
	}
}

// WithLogger sets a logger.
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}
