package contracts

import (
	"errors"
	"fmt"
)

var (
	// ErrNoOperations means the input produced zero valid operations (client error)
	ErrNoOperations = errors.New("no valid operations found")

	// ErrInvalidConfiguration is matched by every *ConfigError
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInternal wraps unexpected failures recovered at the analysis boundary
	ErrInternal = errors.New("internal analysis error")
)

// ConfigError reports a caller input that cannot produce meaningful thresholds
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrInvalidConfiguration) match any ConfigError
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}
