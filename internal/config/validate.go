package config

import (
	"fmt"
	"strings"
)

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.EventQueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.MaxSuggestionLimit <= 0:
		return fmt.Errorf("%w: max_suggestion_limit must be positive", ErrInvalidConfig)
	case c.NearbyRadiusKm <= 0:
		return fmt.Errorf("%w: nearby_radius_km must be positive", ErrInvalidConfig)
	case c.ShutdownTimeout <= 0:
		return fmt.Errorf("%w: shutdown_timeout must be positive", ErrInvalidConfig)
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}

	switch c.RosterBackend {
	case BackendMemory:
	case BackendRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return fmt.Errorf("%w: redis_addr is required for the redis backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: roster_backend must be %s or %s, got %q", ErrInvalidConfig, BackendMemory, BackendRedis, c.RosterBackend)
	}

	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 || c.KafkaTopic == "" || c.KafkaGroupID == "" {
			return fmt.Errorf("%w: kafka needs kafka_brokers, kafka_topic and kafka_group_id", ErrInvalidConfig)
		}
	}

	if err := c.Scoring.Policy().Validate(); err != nil {
		return fmt.Errorf("%w: scoring: %w", ErrInvalidConfig, err)
	}
	return nil
}
