package efuse

import "github.com/moffa90/go-bflb/codec"

// Logger receives warnings about skipped fields. *log.Logger from
// github.com/charmbracelet/log satisfies it.
type Logger interface {
	Debug(msg interface{}, keyvals ...interface{})
	Warn(msg interface{}, keyvals ...interface{})
}

// Config holds the encoder configuration.
type Config struct {
	// Schema is the field layout records are built against
	Schema codec.Schema

	// Size is the record size in bytes
	Size int

	// Logger is used for logging skipped fields (optional)
	Logger Logger
}

func defaultConfig() Config {
	return Config{
		Schema: Schema,
		Size:   Size,
	}
}

// Option is a functional option for configuring the Encoder.
type Option func(*Config)

// WithSchema builds records against an alternate schema of the given size,
// typically one returned by LoadSchema.
func WithSchema(schema codec.Schema, size int) Option {
	return func(c *Config) {
		if schema != nil && size > 0 {
			c.Schema = schema
			c.Size = size
		}
	}
}

// WithLogger sets a logger for skipped-field warnings.
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}
