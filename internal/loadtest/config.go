// Package loadtest drives a running import service with generated Mer
// batches and checks that every accepted import lands in the store.
package loadtest

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid load test config")

// ErrMismatch is returned by Run when stored scores disagree with what the
// imports reported.
var ErrMismatch = errors.New("stored scores do not match imports")

// Config holds the load test parameters.
type Config struct {
	BaseURL string
	Users   int
	// Batches is the number of uploads per user; Records the rows per upload.
	Batches      int
	Records      int
	Workers      int
	Timeout      time.Duration
	PollInterval time.Duration
	// Deadline bounds the wait for queued imports to finish.
	Deadline time.Duration
	Seed     uint64
	// Repeat resubmits every batch once to exercise duplicate detection.
	Repeat  bool
	Verbose bool
}

// DefaultConfig returns the settings used by cmd/loadtest.
func DefaultConfig() Config {
	return Config{
		BaseURL:      "http://localhost:9080",
		Users:        50,
		Batches:      4,
		Records:      25,
		Workers:      8,
		Timeout:      30 * time.Second,
		PollInterval: 100 * time.Millisecond,
		Deadline:     2 * time.Minute,
		Seed:         1,
	}
}

// Validate checks the config before any request is sent.
func (c Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: empty base url", ErrInvalidConfig)
	case c.Users < 1, c.Batches < 1, c.Records < 1:
		return fmt.Errorf("%w: users, batches and records must be positive", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case c.Timeout <= 0, c.PollInterval <= 0, c.Deadline <= 0:
		return fmt.Errorf("%w: timeout, poll interval and deadline must be positive", ErrInvalidConfig)
	case c.Batches*c.Records > maxScoresPerUser:
		return fmt.Errorf("%w: %d scores per user exceeds the verifiable %d",
			ErrInvalidConfig, c.Batches*c.Records, maxScoresPerUser)
	}
	return nil
}

// Stats summarises a run.
type Stats struct {
	Generated int
	Submitted int
	Accepted  int
	Duplicate int
	Refused   int
	// Transport counts requests that never got a response.
	Transport int

	Succeeded   int
	Failed      int
	ScoresAdded int
	Verified    int

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}
