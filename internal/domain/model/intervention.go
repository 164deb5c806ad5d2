package model

import (
	"fmt"
	"strings"

	"github.com/okian/cityconnect/internal/domain/geo"
)

// Urgency is the two-valued priority flag of an intervention.
type Urgency string

// Supported urgency levels.
const (
	UrgencyNormal Urgency = "NORMAL"
	UrgencyUrgent Urgency = "URGENT"
)

// ParseUrgency accepts NORMAL or URGENT in any case; empty means NORMAL.
func ParseUrgency(s string) (Urgency, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(UrgencyNormal):
		return UrgencyNormal, nil
	case string(UrgencyUrgent):
		return UrgencyUrgent, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidUrgency, s)
	}
}

// IsUrgent reports whether u is URGENT.
func (u Urgency) IsUrgent() bool { return u == UrgencyUrgent }

// InterventionRequest describes the task technicians are ranked against.
// It lives for a single ranking call.
type InterventionRequest struct {
	Location geo.Coordinate
	Category string
	Urgency  Urgency
}
