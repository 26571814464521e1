package availability

import (
	"errors"
	"fmt"
)

// ErrInvalidInput marks request-validation failures (non-positive duration,
// unparseable date, malformed policy). Callers should not retry.
var ErrInvalidInput = errors.New("availability: invalid input")

func invalidInputf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// LocalStoreError wraps a failure to reach the local appointment or policy
// store. It is fatal for the current request; callers should surface a
// retryable "temporarily unavailable" state rather than an empty slot list.
type LocalStoreError struct {
	Op  string
	Err error
}

func (e *LocalStoreError) Error() string {
	return fmt.Sprintf("availability: local store unavailable during %s: %v", e.Op, e.Err)
}

func (e *LocalStoreError) Unwrap() error { return e.Err }

// IsLocalStoreError reports whether err is (or wraps) a LocalStoreError.
func IsLocalStoreError(err error) bool {
	var lse *LocalStoreError
	return errors.As(err, &lse)
}
