package recommend

import (
	"errors"
	"fmt"
)

// Sentinel errors the pipeline can raise. The driver maps these to
// error codes on the failure callback; see internal/job.
var (
	// ErrInvalidInput indicates malformed input: a missing required
	// column, a level outside {0,1,2,3}, or K <= 0.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates a penalty vector that is present but
	// not a non-empty sequence of floats in [0, 1].
	ErrInvalidConfig = errors.New("invalid configuration")
)

// InputError wraps ErrInvalidInput with a specific reason.
func InputError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, reason)
}

// ConfigError wraps ErrInvalidConfig with a specific reason.
func ConfigError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, reason)
}
