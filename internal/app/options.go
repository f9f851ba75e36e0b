package service

import (
	"time"

	"github.com/okian/scoreimport/internal/adapters/formats/kai"
	"github.com/okian/scoreimport/internal/adapters/repository"
	"github.com/okian/scoreimport/internal/domain/normalize"
	"github.com/okian/scoreimport/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued imports.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many submission fingerprints are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore replaces the in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithFetcher sets the partner HTTP collaborator used by API imports.
func WithFetcher(f kai.Fetcher) Option {
	return func(s *Service) {
		s.fetcher = f
	}
}

// WithChartMaxima sets the chart lookup used for percent computation.
func WithChartMaxima(cm normalize.ChartMaxima) Option {
	return func(s *Service) {
		s.chartMaxima = cm
	}
}

// WithLocation sets the zone used for source timestamps without an offset.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithMaxPages bounds partner pagination.
func WithMaxPages(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxPages = n
		}
	}
}

// WithPartners replaces the default partner configurations.
func WithPartners(partners ...kai.Partner) Option {
	return func(s *Service) {
		if len(partners) > 0 {
			s.partners = partners
		}
	}
}
