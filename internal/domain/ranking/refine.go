package ranking

import (
	"fmt"
	"strings"

	"github.com/okian/cityconnect/internal/domain/competency"
)

// DefaultNearbyRadiusKm is the radius used by NearbyOnly when none is set.
const DefaultNearbyRadiusKm = 10

// Criteria narrows an already ranked list. It never reorders.
type Criteria struct {
	NearbyOnly     bool
	NearbyRadiusKm float64 // <= 0 means DefaultNearbyRadiusKm
	CompetentOnly  bool
	Search         string // accent and case insensitive, on name, email and phone
	Expression     string // CEL boolean over candidate.*
	Limit          int    // <= 0 means unlimited
}

// IsZero reports whether c keeps every candidate.
func (c Criteria) IsZero() bool {
	return !c.NearbyOnly && !c.CompetentOnly &&
		strings.TrimSpace(c.Search) == "" && strings.TrimSpace(c.Expression) == "" && c.Limit <= 0
}

// Refine returns the candidates matching criteria in their original order.
// The input slice is not modified.
func Refine(candidates []ScoredCandidate, criteria Criteria) ([]ScoredCandidate, error) {
	var expr *Expression
	if src := strings.TrimSpace(criteria.Expression); src != "" {
		var err error
		if expr, err = CompileExpression(src); err != nil {
			return nil, err
		}
	}

	radius := criteria.NearbyRadiusKm
	if radius <= 0 {
		radius = DefaultNearbyRadiusKm
	}
	needle := competency.Normalize(criteria.Search)

	out := make([]ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		if criteria.Limit > 0 && len(out) == criteria.Limit {
			break
		}
		if criteria.NearbyOnly && (c.DistanceKm == nil || *c.DistanceKm >= radius) {
			continue
		}
		if criteria.CompetentOnly && !c.CompetencyMatch {
			continue
		}
		if needle != "" && !matchesSearch(c, needle) {
			continue
		}
		if expr != nil {
			ok, err := expr.Match(c)
			if err != nil {
				return nil, fmt.Errorf("candidate %s: %w", c.Technician.ID, err)
			}
			if !ok {
				continue
			}
		}
		out = append(out, c)
	}
	return out, nil
}

func matchesSearch(c ScoredCandidate, needle string) bool {
	for _, field := range []string{c.Technician.Name, c.Technician.Email, c.Technician.Phone} {
		if strings.Contains(competency.Normalize(field), needle) {
			return true
		}
	}
	return false
}
