package domain

import "errors"

// Error kinds surfaced by resolvers and adapters. Callers match them with
// errors.Is; adapters wrap them with request context.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrTransientNetwork = errors.New("transient network error")
	ErrIncompleteData   = errors.New("incomplete data")
)

// Retryable reports whether retrying the failed operation may succeed.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransientNetwork)
}
