// Package competency decides whether a technician's skill tags cover the
// skills an intervention category requires.
package competency

import (
	"strings"

	"github.com/okian/cityconnect/internal/domain/model"
)

// defaultCatalog maps normalized category names to required skill tokens.
var defaultCatalog = map[string][]string{
	"electrique":    {"electricite", "maintenance"},
	"electricite":   {"electricite", "maintenance"},
	"mecanique":     {"mecanique", "reparation"},
	"plomberie":     {"plomberie", "sanitaire"},
	"informatique":  {"informatique", "reseau"},
	"climatisation": {"climatisation", "froid"},
	"maintenance":   {"maintenance", "reparation"},
	"reparation":    {"reparation", "maintenance"},
}

// Option applies a configuration option to the Matcher.
type Option func(*Matcher)

// WithCategories adds or replaces catalog entries. Keys and tokens may use any
// case or accents; they are normalized on insert. A category mapped to an
// empty list is removed.
func WithCategories(categories map[string][]string) Option {
	return func(m *Matcher) {
		for category, skills := range categories {
			key := Normalize(category)
			if key == "" {
				continue
			}
			tokens := normalizeAll(skills)
			if len(tokens) == 0 {
				delete(m.catalog, key)
				continue
			}
			m.catalog[key] = tokens
		}
	}
}

// Matcher holds an immutable, normalized category catalog. It is safe for
// concurrent use once constructed.
type Matcher struct {
	catalog map[string][]string
}

// NewMatcher builds a Matcher seeded with the default catalog.
func NewMatcher(opts ...Option) *Matcher {
	m := &Matcher{catalog: make(map[string][]string, len(defaultCatalog))}
	for k, v := range defaultCatalog {
		m.catalog[k] = append([]string(nil), v...)
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var defaultMatcher = NewMatcher()

// Default returns the matcher backed by the built-in catalog.
func Default() *Matcher { return defaultMatcher }

// Matches reports whether tech covers category using the built-in catalog.
func Matches(tech model.Technician, category string) bool {
	return defaultMatcher.Matches(tech.Skills, category)
}

// Known reports whether category has a catalog entry.
func (m *Matcher) Known(category string) bool {
	_, ok := m.catalog[Normalize(category)]
	return ok
}

// Requirements returns a copy of the normalized skill tokens required by
// category, or nil when the category is unknown.
func (m *Matcher) Requirements(category string) []string {
	req, ok := m.catalog[Normalize(category)]
	if !ok {
		return nil
	}
	return append([]string(nil), req...)
}

// Categories returns the number of catalog entries.
func (m *Matcher) Categories() int { return len(m.catalog) }

// Matches reports whether at least one skill overlaps a requirement of
// category. Overlap is a normalized substring match in either direction so
// "electricite_bt" satisfies "electricite". Unknown categories never match.
func (m *Matcher) Matches(skills []string, category string) bool {
	required, ok := m.catalog[Normalize(category)]
	if !ok || len(required) == 0 {
		return false
	}
	for _, raw := range skills {
		skill := Normalize(raw)
		if skill == "" {
			continue
		}
		for _, req := range required {
			if strings.Contains(skill, req) || strings.Contains(req, skill) {
				return true
			}
		}
	}
	return false
}

func normalizeAll(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		n := Normalize(s)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
