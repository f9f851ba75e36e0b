package api

const (
	defaultMaxUploadBytes = 16 << 20
	defaultMaxScoreLimit  = 500
)

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxUploadBytes caps the size of file uploads.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// WithMaxScoreLimit caps the limit accepted by GET /scores.
func WithMaxScoreLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}
