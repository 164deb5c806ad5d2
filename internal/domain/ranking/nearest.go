package ranking

import (
	"fmt"
	"sort"

	"github.com/okian/cityconnect/internal/domain/geo"
	"github.com/okian/cityconnect/internal/domain/model"
)

// NearbyTechnician pairs a technician with its distance to a point.
type NearbyTechnician struct {
	Technician model.Technician
	DistanceKm float64
}

// Nearest returns the available, located technicians closest to at, by
// ascending distance then id. limit <= 0 returns all of them.
func Nearest(roster []model.Technician, at geo.Coordinate, limit int) ([]NearbyTechnician, error) {
	if err := at.Validate(); err != nil {
		return nil, fmt.Errorf("reference location: %w", err)
	}
	out := make([]NearbyTechnician, 0, len(roster))
	for _, tech := range roster {
		if !tech.Available || tech.Location == nil {
			continue
		}
		d, err := geo.Distance(*tech.Location, at)
		if err != nil {
			return nil, fmt.Errorf("technician %s location: %w", tech.ID, err)
		}
		out = append(out, NearbyTechnician{Technician: tech.Clone(), DistanceKm: d})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DistanceKm != out[j].DistanceKm {
			return out[i].DistanceKm < out[j].DistanceKm
		}
		return out[i].Technician.ID < out[j].Technician.ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
