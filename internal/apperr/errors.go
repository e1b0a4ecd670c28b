// Package apperr defines sentinel errors matched with errors.Is across packages.
package apperr

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrInvalidKey = errors.New("invalid key")
)
