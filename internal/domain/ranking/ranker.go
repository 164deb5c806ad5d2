// Package ranking scores available technicians against an intervention and
// returns them as an ordered candidate list.
//
// Ranking is a pure function of its inputs: no I/O, no shared mutable state,
// safe for concurrent callers.
package ranking

import (
	"fmt"
	"math"
	"sort"

	"github.com/okian/cityconnect/internal/domain/competency"
	"github.com/okian/cityconnect/internal/domain/geo"
	"github.com/okian/cityconnect/internal/domain/model"
)

// Option applies a configuration option to the Ranker.
type Option func(*Ranker)

// WithPolicy replaces the scoring policy. Invalid policies are ignored.
func WithPolicy(p Policy) Option {
	return func(r *Ranker) {
		if p.Validate() == nil {
			r.policy = p
		}
	}
}

// WithMatcher sets the competency matcher.
func WithMatcher(m *competency.Matcher) Option {
	return func(r *Ranker) {
		if m != nil {
			r.matcher = m
		}
	}
}

// Ranker scores roster snapshots with a fixed policy and competency catalog.
type Ranker struct {
	policy  Policy
	matcher *competency.Matcher
}

// NewRanker creates a Ranker with the default policy and catalog.
func NewRanker(opts ...Option) *Ranker {
	r := &Ranker{
		policy:  DefaultPolicy(),
		matcher: competency.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var defaultRanker = NewRanker()

// Rank ranks roster against req with the default policy and catalog.
func Rank(roster []model.Technician, req model.InterventionRequest) ([]ScoredCandidate, error) {
	return defaultRanker.Rank(roster, req)
}

// Policy returns the policy in use.
func (r *Ranker) Policy() Policy { return r.policy }

// Matcher returns the competency matcher in use.
func (r *Ranker) Matcher() *competency.Matcher { return r.matcher }

// Rank filters roster to available technicians, scores each against req and
// returns them best first. An invalid coordinate on the request or on any
// roster entry fails the whole call; no partial result is returned.
// An empty or fully unavailable roster yields an empty, non-nil slice.
func (r *Ranker) Rank(roster []model.Technician, req model.InterventionRequest) ([]ScoredCandidate, error) {
	if err := req.Location.Validate(); err != nil {
		return nil, fmt.Errorf("intervention location: %w", err)
	}

	available := make([]model.Technician, 0, len(roster))
	for _, tech := range roster {
		if tech.Location != nil {
			if err := tech.Location.Validate(); err != nil {
				return nil, fmt.Errorf("technician %s location: %w", tech.ID, err)
			}
		}
		if tech.Available {
			available = append(available, tech)
		}
	}

	out := make([]ScoredCandidate, 0, len(available))
	for _, tech := range available {
		c, err := r.score(tech, req)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool { return before(out[i], out[j]) })
	return out, nil
}

// score computes one candidate for an available technician.
func (r *Ranker) score(tech model.Technician, req model.InterventionRequest) (ScoredCandidate, error) {
	p := r.policy
	c := ScoredCandidate{Technician: tech.Clone()}

	c.Breakdown.Availability = p.AvailabilityPoints
	c.Breakdown.Workload = p.WorkloadPoints

	if tech.Location != nil {
		d, err := geo.Distance(*tech.Location, req.Location)
		if err != nil {
			return ScoredCandidate{}, fmt.Errorf("technician %s: %w", tech.ID, err)
		}
		c.DistanceKm = &d
		c.Breakdown.Distance = math.Max(0, p.distanceWeight(req.Urgency)-d*p.DistanceDecayPerKm)
		if req.Urgency.IsUrgent() && d < p.UrgentProximityRadiusKm {
			c.Breakdown.UrgencyBonus = p.UrgentProximityBonus
		}
	}

	c.CompetencyMatch = r.matcher.Matches(tech.Skills, req.Category)
	if c.CompetencyMatch {
		c.Breakdown.Competency = p.CompetencyPoints
	}

	c.Score = math.Max(0, math.Min(p.MaxScore, c.Breakdown.Total()))
	return c, nil
}
