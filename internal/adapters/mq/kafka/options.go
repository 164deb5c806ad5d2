package kafka

import (
	"time"

	"github.com/okian/cityconnect/pkg/logger"
)

// Option applies a configuration option to the Consumer.
type Option func(*Consumer)

// WithLogger sets the consumer logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Consumer) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithBackoff sets the pause before re-offering a message to a full queue.
func WithBackoff(d time.Duration) Option {
	return func(c *Consumer) {
		if d > 0 {
			c.backoff = d
		}
	}
}
