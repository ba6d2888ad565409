package domain

import "errors"

// Error classes. Concrete errors match one of these through errors.Is.
var (
	ErrValidation    = errors.New("validation error")
	ErrNetwork       = errors.New("network error")
	ErrNotFound      = errors.New("not found")
	ErrConfiguration = errors.New("configuration error")
)
