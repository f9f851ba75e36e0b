// Package config defines service configuration and its loading.
package config

import (
	"context"
	"runtime"
	"time"
	_ "time/tzdata" // zone names must resolve on minimal images
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`
	// QueueSize bounds the in-memory import queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of import workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize sets how many submission fingerprints are remembered.
	DedupeSize int `koanf:"dedupe_size"`
	// MaxUploadBytes caps a single uploaded file.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`
	// TimestampZone interprets zone-less timestamps in uploaded files.
	TimestampZone string `koanf:"timestamp_zone"`
	// ChartTableFile is an optional YAML table of chart maxima.
	ChartTableFile string `koanf:"chart_table_file"`

	// Partner API client.
	KaiMaxPages   int     `koanf:"kai_max_pages"`
	KaiTimeoutMS  int     `koanf:"kai_timeout_ms"`
	KaiRatePerSec float64 `koanf:"kai_rate_per_sec"`
	KaiBurst      int     `koanf:"kai_burst"`

	// Partner endpoints. Empty base URLs keep the built-in defaults; an
	// empty token URL disables token refresh for that partner.
	FloBaseURL  string `koanf:"flo_base_url"`
	EagBaseURL  string `koanf:"eag_base_url"`
	MinBaseURL  string `koanf:"min_base_url"`
	FloTokenURL string `koanf:"flo_token_url"`
	EagTokenURL string `koanf:"eag_token_url"`
	// OAuth client registration shared by the bearer partners.
	OAuthClientID     string `koanf:"oauth_client_id"`
	OAuthClientSecret string `koanf:"oauth_client_secret"`
}

// New creates a Config with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:       "info",
		Addr:           ":9080",
		QueueSize:      1024,
		WorkerCount:    runtime.NumCPU() * 2,
		DedupeSize:     50_000,
		MaxUploadBytes: 16 << 20,
		TimestampZone:  "Asia/Tokyo",
		KaiMaxPages:    100,
		KaiTimeoutMS:   15_000,
		KaiRatePerSec:  5,
		KaiBurst:       2,
	}
}

// KaiTimeout returns the partner request timeout.
func (c *Config) KaiTimeout() time.Duration {
	return time.Duration(c.KaiTimeoutMS) * time.Millisecond
}

// Location resolves TimestampZone.
func (c *Config) Location() (*time.Location, error) {
	if c.TimestampZone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.TimestampZone)
}
