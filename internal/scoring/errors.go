package scoring

import (
	"errors"
	"fmt"
)

// UnavailableError reports that the scoring engine failed or returned
// malformed output. It is retryable; no ledger state changes when it occurs.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("scoring engine unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// Unavailable wraps err as an UnavailableError unless it already is one.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	var u *UnavailableError
	if errors.As(err, &u) {
		return err
	}
	return &UnavailableError{Err: err}
}

// IsUnavailable reports whether err is a scoring availability failure.
func IsUnavailable(err error) bool {
	var u *UnavailableError
	return errors.As(err, &u)
}
