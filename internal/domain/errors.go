package domain

import "errors"

// Common domain errors
var (
	ErrNotFound = errors.New("resource not found")
	ErrNoOrigin = errors.New("search origin not set")
)
