// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/cityconnect/internal/domain/geo"
)

// Technician is a roster record. The roster store owns the canonical copy;
// ranking receives snapshots and never mutates them.
type Technician struct {
	ID        string          `json:"id" yaml:"id"`
	Name      string          `json:"name" yaml:"name"`
	Email     string          `json:"email,omitempty" yaml:"email"`
	Phone     string          `json:"phone,omitempty" yaml:"phone"`
	Available bool            `json:"available" yaml:"available"`
	Location  *geo.Coordinate `json:"location,omitempty" yaml:"location"`
	Skills    []string        `json:"skills" yaml:"skills"`
	UpdatedAt time.Time       `json:"updated_at,omitzero" yaml:"-"`
}

// HasLocation reports whether the technician has a known position.
func (t Technician) HasLocation() bool {
	return t.Location != nil
}

// Clone returns a deep copy so callers can hand out snapshots safely.
func (t Technician) Clone() Technician {
	out := t
	if t.Location != nil {
		loc := *t.Location
		out.Location = &loc
	}
	if t.Skills != nil {
		out.Skills = append([]string(nil), t.Skills...)
	}
	return out
}

// Validate checks the fields the roster store relies on.
func (t Technician) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidTechnician)
	}
	if t.Location != nil {
		if err := t.Location.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidTechnician, err)
		}
	}
	return nil
}
