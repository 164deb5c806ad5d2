package ranking

import (
	"fmt"

	"github.com/okian/cityconnect/internal/domain/model"
)

// Default scoring weights. The distance weights and decay are a tunable
// heuristic carried over from the dispatch desk, not derived constants.
const (
	DefaultAvailabilityPoints      = 30
	DefaultNormalDistanceWeight    = 40
	DefaultUrgentDistanceWeight    = 50
	DefaultDistanceDecayPerKm      = 5
	DefaultCompetencyPoints        = 20
	DefaultWorkloadPoints          = 10 // no live workload signal yet
	DefaultUrgentProximityBonus    = 15
	DefaultUrgentProximityRadiusKm = 5
	DefaultMaxScore                = 100
)

// Policy holds every weight of the composite score.
type Policy struct {
	AvailabilityPoints      float64
	NormalDistanceWeight    float64
	UrgentDistanceWeight    float64
	DistanceDecayPerKm      float64
	CompetencyPoints        float64
	WorkloadPoints          float64
	UrgentProximityBonus    float64
	UrgentProximityRadiusKm float64
	MaxScore                float64
}

// DefaultPolicy returns the standard 30/40-50/20/10/+15 weighting on a 100 point scale.
func DefaultPolicy() Policy {
	return Policy{
		AvailabilityPoints:      DefaultAvailabilityPoints,
		NormalDistanceWeight:    DefaultNormalDistanceWeight,
		UrgentDistanceWeight:    DefaultUrgentDistanceWeight,
		DistanceDecayPerKm:      DefaultDistanceDecayPerKm,
		CompetencyPoints:        DefaultCompetencyPoints,
		WorkloadPoints:          DefaultWorkloadPoints,
		UrgentProximityBonus:    DefaultUrgentProximityBonus,
		UrgentProximityRadiusKm: DefaultUrgentProximityRadiusKm,
		MaxScore:                DefaultMaxScore,
	}
}

// Validate rejects negative weights and a non-positive scale.
func (p Policy) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"availability_points", p.AvailabilityPoints},
		{"normal_distance_weight", p.NormalDistanceWeight},
		{"urgent_distance_weight", p.UrgentDistanceWeight},
		{"distance_decay_per_km", p.DistanceDecayPerKm},
		{"competency_points", p.CompetencyPoints},
		{"workload_points", p.WorkloadPoints},
		{"urgent_proximity_bonus", p.UrgentProximityBonus},
		{"urgent_proximity_radius_km", p.UrgentProximityRadiusKm},
	}
	for _, f := range fields {
		if f.value < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidPolicy, f.name)
		}
	}
	if p.MaxScore <= 0 {
		return fmt.Errorf("%w: max_score must be positive", ErrInvalidPolicy)
	}
	return nil
}

func (p Policy) distanceWeight(u model.Urgency) float64 {
	if u.IsUrgent() {
		return p.UrgentDistanceWeight
	}
	return p.NormalDistanceWeight
}
