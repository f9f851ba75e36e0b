package service

import "errors"

// Sentinel errors returned by Submit.
var (
	ErrNotStarted      = errors.New("service not started")
	ErrMissingUser     = errors.New("missing user id")
	ErrUnsupportedType = errors.New("unsupported import type")
	ErrDuplicate       = errors.New("duplicate submission")
	ErrQueueFull       = errors.New("import queue full")
)
