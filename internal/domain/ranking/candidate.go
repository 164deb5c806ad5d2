package ranking

import "github.com/okian/cityconnect/internal/domain/model"

// Display tiers for a composite score.
const (
	recommendedThreshold = 80
	acceptableThreshold  = 60
)

// Tier buckets a score for presentation.
type Tier string

// Tier values.
const (
	TierRecommended Tier = "recommended"
	TierAcceptable  Tier = "acceptable"
	TierWeak        Tier = "weak"
)

// TierFor maps a composite score to its tier.
func TierFor(score float64) Tier {
	switch {
	case score >= recommendedThreshold:
		return TierRecommended
	case score >= acceptableThreshold:
		return TierAcceptable
	default:
		return TierWeak
	}
}

// Breakdown records each scoring component before clamping.
type Breakdown struct {
	Availability float64
	Distance     float64
	Competency   float64
	Workload     float64
	UrgencyBonus float64
}

// Total sums the components.
func (b Breakdown) Total() float64 {
	return b.Availability + b.Distance + b.Competency + b.Workload + b.UrgencyBonus
}

// ScoredCandidate is one ranked technician. It is built once per ranking call
// and never mutated afterwards.
type ScoredCandidate struct {
	Technician      model.Technician
	Score           float64
	DistanceKm      *float64 // nil when the technician has no location
	CompetencyMatch bool
	Breakdown       Breakdown
}

// HasDistance reports whether a distance was computed.
func (c ScoredCandidate) HasDistance() bool { return c.DistanceKm != nil }

// Tier returns the display tier of the candidate's score.
func (c ScoredCandidate) Tier() Tier { return TierFor(c.Score) }

// before reports whether a ranks ahead of b: score desc, then distance asc
// with unknown distances last, then technician id asc.
func before(a, b ScoredCandidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	switch {
	case a.DistanceKm != nil && b.DistanceKm != nil:
		if *a.DistanceKm != *b.DistanceKm {
			return *a.DistanceKm < *b.DistanceKm
		}
	case a.DistanceKm != nil:
		return true
	case b.DistanceKm != nil:
		return false
	}
	return a.Technician.ID < b.Technician.ID
}
