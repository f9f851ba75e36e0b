package repository

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithMaxJobs bounds how many import statuses are retained. The oldest
// status is evicted first.
func WithMaxJobs(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.maxJobs = n
		}
	}
}
