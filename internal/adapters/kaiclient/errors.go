package kaiclient

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors.
var (
	ErrBodyTooLarge   = errors.New("kaiclient: response body exceeds limit")
	ErrUnauthorized   = errors.New("kaiclient: partner rejected credentials")
	ErrNoRefresh      = errors.New("kaiclient: token refresh not configured")
	ErrMissingAPIKey  = errors.New("kaiclient: api-key partner without header name")
	ErrEmptyAuthToken = errors.New("kaiclient: auth document has no token")
)

// StatusError is a non-success response from a partner.
type StatusError struct {
	Partner string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("kaiclient: %s responded %d: %s", e.Partner, e.Code, e.Body)
}

// Is makes a 401 match ErrUnauthorized.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && e.Code == 401
}

// RateLimitError is a 429 response. RetryAfter is zero when the partner did
// not say.
type RateLimitError struct {
	Partner    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("kaiclient: %s rate limited, retry after %s", e.Partner, e.RetryAfter)
	}
	return fmt.Sprintf("kaiclient: %s rate limited", e.Partner)
}
