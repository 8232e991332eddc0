package efuse

import (
	"errors"
	"fmt"
)

// ConfigError reports invalid key material or mode settings. Only the
// provisioning step that produced it should be aborted.
type ConfigError struct {
	// Check names the validation that failed (e.g. "aes128 key length")
	Check string

	// Message describes the failure for the operator
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid eFuse config (%s): %s", e.Check, e.Message)
}

// IsConfigError returns true if err is or wraps a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
