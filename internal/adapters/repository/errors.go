package repository

import "errors"

// Sentinel errors.
var (
	ErrNotFound    = errors.New("not found")
	ErrMissingUser = errors.New("missing user id")
	ErrMissingID   = errors.New("score without id")
)
