package provisioning

import "errors"

// permanentError marks a failure that retrying cannot fix. The worker
// dead-letters the job immediately instead of burning the attempt budget.
type permanentError struct {
	err error
}

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent wraps an error so the worker skips retries for it.
func Permanent(err error) error {
	return permanentError{err: err}
}

// IsPermanent reports whether an error was marked permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}
