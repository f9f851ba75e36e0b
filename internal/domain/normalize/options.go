package normalize

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithChartMaxima sets the lookup used when a record does not carry its
// chart's maximum score.
func WithChartMaxima(cm ChartMaxima) Option {
	return func(n *Normalizer) {
		if cm != nil {
			n.maxima = cm
		}
	}
}
