// Package seed populates a running dispatch service with a synthetic or
// file-based roster and checks the suggestions it returns.
package seed

import (
	"time"

	"github.com/okian/cityconnect/internal/domain/geo"
)

// Config holds configuration for a seeding run.
type Config struct {
	BaseURL      string         // Base URL of the service
	Technicians  int            // Technicians to generate when RosterFile is empty
	RosterFile   string         // Optional YAML roster
	Center       geo.Coordinate // Center of the generated roster
	RadiusKm     float64        // Generated technicians fall within this radius
	Samples      int            // Suggestion requests to verify
	Events       int            // Status events to send
	KafkaBrokers []string       // When set, status events go to Kafka instead of POST /events
	KafkaTopic   string
	Workers      int           // Concurrent HTTP workers
	Timeout      time.Duration // HTTP request timeout
	Seed         uint64        // Random seed; the same seed yields the same roster
	Verbose      bool
}

// Stats holds run statistics.
type Stats struct {
	TechniciansStored int
	TechniciansFailed int
	EventsAccepted    int
	EventsDuplicate   int
	EventsFailed      int
	SuggestionsTried  int
	SuggestionsFailed int
	Violations        int
	StartTime         time.Time
	Duration          time.Duration
}

// Candidate is the subset of a suggestion candidate the checks read.
type Candidate struct {
	Technician struct {
		ID        string `json:"id"`
		Available bool   `json:"available"`
	} `json:"technician"`
	Score      float64  `json:"score"`
	DistanceKm *float64 `json:"distance_km"`
}

// SuggestionResponse mirrors the POST /suggestions response.
type SuggestionResponse struct {
	Candidates []Candidate `json:"candidates"`
	Summary    struct {
		Count int    `json:"count"`
		Best  string `json:"best"`
	} `json:"summary"`
}

// SuggestionRequest mirrors the POST /suggestions body.
type SuggestionRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Category  string  `json:"category"`
	Urgency   string  `json:"urgency"`
	Limit     int     `json:"limit,omitempty"`
}
