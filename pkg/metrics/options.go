package metrics

import (
	"maps"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Manager before its collectors are registered.
type Option func(*Manager)

// WithNamespace overrides the "scoreimport" metric prefix. Empty is ignored.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithSubsystem overrides the "engine" subsystem. Empty is ignored.
func WithSubsystem(subsystem string) Option {
	return func(m *Manager) {
		if subsystem != "" {
			m.subsystem = subsystem
		}
	}
}

// WithHistogramBuckets replaces the millisecond buckets shared by every
// latency histogram.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// WithConstLabels attaches labels to every collector, e.g. the deployment
// region. Later calls add to earlier ones.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(m *Manager) {
		if len(labels) == 0 {
			return
		}
		if m.constLabels == nil {
			m.constLabels = make(prometheus.Labels, len(labels))
		}
		maps.Copy(m.constLabels, labels)
	}
}

// WithPrometheusRegistry registers collectors on registry instead of the
// default registerer.
func WithPrometheusRegistry(registry prometheus.Registerer) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}
