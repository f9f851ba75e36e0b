package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest      = errors.New("bad request")
	ErrPayloadTooLarge = errors.New("upload too large")
	ErrBackpressure    = errors.New("backpressure")
)
