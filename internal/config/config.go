// Package config defines service configuration and its loader.
//
// Values are layered: defaults from New, then an optional YAML file named by
// DISPATCH_CONFIG, then DISPATCH_* environment variables. A double
// underscore in a variable name descends into a nested key, so
// DISPATCH_SCORING__URGENT_DISTANCE_WEIGHT sets scoring.urgent_distance_weight.
package config

import (
	"runtime"
	"time"

	"github.com/okian/cityconnect/internal/domain/ranking"
)

// Roster backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`
	// ShutdownTimeout bounds HTTP drain and worker drain on exit.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// EventQueueSize bounds the in-memory status event queue.
	EventQueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of status event workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize sets how many status event ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxSuggestionLimit caps the limit of POST /suggestions and GET /nearest.
	MaxSuggestionLimit int `koanf:"max_suggestion_limit"`
	// NearbyRadiusKm is the default radius of the nearby_only filter.
	NearbyRadiusKm float64 `koanf:"nearby_radius_km"`

	RosterBackend string `koanf:"roster_backend"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisDB       int    `koanf:"redis_db"`
	RedisKey      string `koanf:"redis_key"`

	KafkaEnabled bool     `koanf:"kafka_enabled"`
	KafkaBrokers []string `koanf:"kafka_brokers"`
	KafkaTopic   string   `koanf:"kafka_topic"`
	KafkaGroupID string   `koanf:"kafka_group_id"`

	// Categories extends or overrides the competency catalog:
	// category -> required skill tokens. An empty list removes a category.
	Categories map[string][]string `koanf:"categories"`

	Scoring Scoring `koanf:"scoring"`
}

// Scoring mirrors ranking.Policy with configuration keys.
type Scoring struct {
	AvailabilityPoints      float64 `koanf:"availability_points"`
	NormalDistanceWeight    float64 `koanf:"normal_distance_weight"`
	UrgentDistanceWeight    float64 `koanf:"urgent_distance_weight"`
	DistanceDecayPerKm      float64 `koanf:"distance_decay_per_km"`
	CompetencyPoints        float64 `koanf:"competency_points"`
	WorkloadPoints          float64 `koanf:"workload_points"`
	UrgentProximityBonus    float64 `koanf:"urgent_proximity_bonus"`
	UrgentProximityRadiusKm float64 `koanf:"urgent_proximity_radius_km"`
	MaxScore                float64 `koanf:"max_score"`
}

// Policy converts s to a ranking policy.
func (s Scoring) Policy() ranking.Policy {
	return ranking.Policy{
		AvailabilityPoints:      s.AvailabilityPoints,
		NormalDistanceWeight:    s.NormalDistanceWeight,
		UrgentDistanceWeight:    s.UrgentDistanceWeight,
		DistanceDecayPerKm:      s.DistanceDecayPerKm,
		CompetencyPoints:        s.CompetencyPoints,
		WorkloadPoints:          s.WorkloadPoints,
		UrgentProximityBonus:    s.UrgentProximityBonus,
		UrgentProximityRadiusKm: s.UrgentProximityRadiusKm,
		MaxScore:                s.MaxScore,
	}
}

func scoringFrom(p ranking.Policy) Scoring {
	return Scoring{
		AvailabilityPoints:      p.AvailabilityPoints,
		NormalDistanceWeight:    p.NormalDistanceWeight,
		UrgentDistanceWeight:    p.UrgentDistanceWeight,
		DistanceDecayPerKm:      p.DistanceDecayPerKm,
		CompetencyPoints:        p.CompetencyPoints,
		WorkloadPoints:          p.WorkloadPoints,
		UrgentProximityBonus:    p.UrgentProximityBonus,
		UrgentProximityRadiusKm: p.UrgentProximityRadiusKm,
		MaxScore:                p.MaxScore,
	}
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		ShutdownTimeout:    10 * time.Second,
		EventQueueSize:     10_000,
		WorkerCount:        runtime.NumCPU(),
		DedupeSize:         100_000,
		MaxSuggestionLimit: 100,
		NearbyRadiusKm:     ranking.DefaultNearbyRadiusKm,
		RosterBackend:      BackendMemory,
		RedisAddr:          "localhost:6379",
		RedisKey:           "cityconnect:technicians",
		KafkaTopic:         "technician-status",
		KafkaGroupID:       "cityconnect-dispatch",
		Scoring:            scoringFrom(ranking.DefaultPolicy()),
	}
}
