// Package apperr holds the error kinds shared by the core and the HTTP layer.
// Callers wrap them with fmt.Errorf("...: %w", ...) and match with errors.Is.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidFormat = errors.New("invalid format")
)
