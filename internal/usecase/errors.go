package usecase

import crerr "github.com/cockroachdb/errors"

// Sentinels mapped to HTTP status codes by the API layer. Wrap them with %w.
var (
	ErrInvalidInput          = crerr.New("invalid input")
	ErrNotFound              = crerr.New("fixture not found")
	ErrDependencyUnavailable = crerr.New("live scores dependency unavailable")
)
