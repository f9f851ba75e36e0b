package kaiclient

import (
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultTimeout      = 15 * time.Second
	defaultMaxBodyBytes = 8 << 20
	defaultBurst        = 1
	errorBodyLimit      = 512
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

func resolveHTTPClient(client *http.Client, timeout time.Duration) *http.Client {
	if client != nil {
		return client
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func resolveLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst <= 0 {
		burst = defaultBurst
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

func resolveMaxBody(n int64) int64 {
	if n <= 0 {
		return defaultMaxBodyBytes
	}
	return n
}

// retryAfter reads a Retry-After header in either delta-seconds or HTTP-date form.
func retryAfter(h string, now time.Time) time.Duration {
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(h); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil && t.After(now) {
		return t.Sub(now)
	}
	return 0
}
