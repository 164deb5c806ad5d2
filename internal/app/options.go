package service

import (
	"github.com/jonboulle/clockwork"

	"github.com/okian/cityconnect/internal/adapters/repository"
	"github.com/okian/cityconnect/internal/domain/ranking"
	"github.com/okian/cityconnect/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of status event workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the status event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many event ids are remembered for idempotency.
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

// WithStore sets the roster store. The default is an in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithStoreBackend names the backend reported by Stats.
func WithStoreBackend(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.backend = name
		}
	}
}

// WithPolicy sets the scoring weights. Invalid policies are ignored.
func WithPolicy(p ranking.Policy) Option {
	return func(s *Service) {
		if p.Validate() == nil {
			s.policy = p
		}
	}
}

// WithCategories extends or overrides the competency catalog.
func WithCategories(categories map[string][]string) Option {
	return func(s *Service) {
		if len(categories) > 0 {
			s.categories = categories
		}
	}
}

// WithMaxSuggestionLimit caps the limit a caller may ask for.
func WithMaxSuggestionLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxLimit = limit
		}
	}
}

// WithNearbyRadiusKm sets the radius used by nearby-only filtering when the
// caller does not give one.
func WithNearbyRadiusKm(km float64) Option {
	return func(s *Service) {
		if km > 0 {
			s.nearbyRadiusKm = km
		}
	}
}

// WithClock sets the clock used for uptime.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}
