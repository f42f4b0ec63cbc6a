package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrUnprocessable         = errors.New("unprocessable request")
	ErrNotFound              = errors.New("resource not found")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
