package ranking

import "math"

// Summary aggregates a candidate list for display.
type Summary struct {
	Count        int    `json:"count"`
	WithDistance int    `json:"with_distance"`
	Competent    int    `json:"competent"`
	AverageScore int    `json:"average_score"` // mean of positive scores, rounded
	Best         string `json:"best,omitempty"` // id of the first candidate
}

// Summarize computes the summary of an ordered candidate list.
func Summarize(candidates []ScoredCandidate) Summary {
	s := Summary{Count: len(candidates)}
	var total float64
	var positive int
	for _, c := range candidates {
		if c.DistanceKm != nil {
			s.WithDistance++
		}
		if c.CompetencyMatch {
			s.Competent++
		}
		if c.Score > 0 {
			total += c.Score
			positive++
		}
	}
	if positive > 0 {
		s.AverageScore = int(math.Round(total / float64(positive)))
	}
	if len(candidates) > 0 {
		s.Best = candidates[0].Technician.ID
	}
	return s
}
