package repository

import "github.com/jonboulle/clockwork"

// DefaultRedisKey is the hash holding the roster in Redis.
const DefaultRedisKey = "cityconnect:technicians"

// Option applies a configuration option to a Store implementation.
type Option func(*options)

type options struct {
	clock clockwork.Clock
	key   string
}

func newOptions(opts []Option) options {
	o := options{clock: clockwork.NewRealClock(), key: DefaultRedisKey}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock sets the clock used for UpdatedAt stamps.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithKey sets the Redis hash key. Ignored by MemoryStore.
func WithKey(key string) Option {
	return func(o *options) {
		if key != "" {
			o.key = key
		}
	}
}
