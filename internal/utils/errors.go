package utils

import "errors"

// Common application errors used across services.
var (
	ErrInvalidToken      = errors.New("INVALID_TOKEN")
	ErrInvalidCredential = errors.New("INVALID_CREDENTIALS")
	ErrInactiveAccount   = errors.New("ACCOUNT_INACTIVE")
	ErrForbidden         = errors.New("FORBIDDEN")
	ErrNotFound          = errors.New("NOT_FOUND")
	ErrDuplicate         = errors.New("DUPLICATE")
	ErrInvalidInput      = errors.New("INVALID_INPUT")
	ErrInvalidState      = errors.New("INVALID_STATE")
	ErrUnsupportedFile   = errors.New("UNSUPPORTED_FILE")
	ErrUnavailable       = errors.New("UNAVAILABLE")
	ErrRateLimited       = errors.New("RATE_LIMITED")
)
