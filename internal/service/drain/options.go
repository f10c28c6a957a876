package drain

type config struct {
	failureBuffer int
}

func defaultConfig() config {
	return config{failureBuffer: 256}
}

// Option defines a functional configuration type for the Drainer.
type Option func(*config)

// WithFailureBuffer sets how many unread failures are kept before new ones
// are only logged.
func WithFailureBuffer(size int) Option {
	return func(c *config) {
		if size >= 0 {
			c.failureBuffer = size
		}
	}
}
