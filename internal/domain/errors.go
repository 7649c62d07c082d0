package domain

import "errors"

var (
	ErrInvalidID         = errors.New("invalid identifier")
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrConflict          = errors.New("conflicting asset state")
	ErrInvalidAngle      = errors.New("angle must be a non-zero multiple of 90 degrees")
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrBackendFailure    = errors.New("transform backend failure")
)
