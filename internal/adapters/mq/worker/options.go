package worker

import (
	"github.com/okian/scoreimport/pkg/logger"
)

type settings struct {
	name   string
	logger logger.Logger
}

// newSettings applies opts. The global logger is used only when none was given.
func newSettings(opts []Option) settings {
	cfg := settings{name: "worker"}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Get()
	}
	return cfg
}

// Option applies a configuration option to a worker or pool.
type Option func(*settings)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.name = name
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}
