package seed

import "fmt"

// VerifyCandidates checks one suggestion response against the ranking
// contract: only available technicians, scores in [0, 100], and adjacent
// pairs ordered by score desc, distance asc with unknown last, then id asc.
func VerifyCandidates(cands []Candidate) []error {
	var errs []error
	for i, c := range cands {
		if !c.Technician.Available {
			errs = append(errs, fmt.Errorf("candidate %d (%s) is unavailable", i, c.Technician.ID))
		}
		if c.Score < 0 || c.Score > 100 {
			errs = append(errs, fmt.Errorf("candidate %d (%s) score %.2f out of range", i, c.Technician.ID, c.Score))
		}
		if i > 0 && !ordered(cands[i-1], c) {
			errs = append(errs, fmt.Errorf("candidates %d (%s) and %d (%s) out of order",
				i-1, cands[i-1].Technician.ID, i, c.Technician.ID))
		}
	}
	return errs
}

// ordered reports whether a may precede b.
func ordered(a, b Candidate) bool {
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
	return a.Technician.ID <= b.Technician.ID
}
