package chat

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by every chat operation. Use errors.Is to test for a
// kind; the underlying cause stays reachable through the same chain.
var (
	ErrValidation    = errors.New("validation error")
	ErrAuthorization = errors.New("authorization error")
	ErrNotFound      = errors.New("not found")
	ErrProvider      = errors.New("provider error")
)

var kinds = []error{ErrValidation, ErrAuthorization, ErrNotFound, ErrProvider}

// Kind returns the error kind carried by err, or nil if err has none.
func Kind(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// ValidationErr reports a malformed request.
func ValidationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundErr reports a missing room or message.
func NotFoundErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// AuthorizationErr reports a caller that may not perform the operation.
func AuthorizationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAuthorization, fmt.Sprintf(format, args...))
}

// providerErr tags an untyped failure as a provider error. Errors that
// already carry a kind keep it.
func providerErr(op string, err error) error {
	if Kind(err) != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrProvider, err)
}
