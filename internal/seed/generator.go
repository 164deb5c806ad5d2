package seed

import (
	"fmt"
	"math"
	"math/rand/v2"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/okian/cityconnect/internal/domain/geo"
	"github.com/okian/cityconnect/internal/domain/model"
)

// Roster generation ratios.
const (
	availableRatio  = 0.8
	unlocatedRatio  = 0.1
	maxSkillsPerTag = 3
	earthRadiusKm   = 6371.0
)

var (
	firstNames = []string{"Amel", "Béchir", "Chiraz", "Dali", "Emna", "Farès", "Ghada", "Hédi", "Inès", "Jalel", "Kaïs", "Leïla"}
	lastNames  = []string{"Trabelsi", "Ben Ali", "Jlassi", "Mejri", "Gharbi", "Hammami", "Zouari", "Ayari"}
	skillPool  = []string{"Électricité", "maintenance", "mécanique", "réparation", "plomberie", "sanitaire", "informatique", "réseau", "climatisation", "froid"}
	categories = []string{"electricite", "mecanique", "plomberie", "informatique", "climatisation", "maintenance", "reparation", "peinture"}
)

// newRand returns a deterministic source for seed.
func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// GenerateRoster creates n technicians scattered uniformly within radiusKm of
// center.
func GenerateRoster(rng *rand.Rand, n int, center geo.Coordinate, radiusKm float64) []model.Technician {
	roster := make([]model.Technician, n)
	for i := range roster {
		first := firstNames[rng.IntN(len(firstNames))]
		last := lastNames[rng.IntN(len(lastNames))]
		tech := model.Technician{
			ID:        "tech-" + uuid.NewString(),
			Name:      first + " " + last,
			Email:     fmt.Sprintf("tech%d@cityconnect.example", i),
			Phone:     fmt.Sprintf("+216 %02d %03d %03d", 20+rng.IntN(80), rng.IntN(1000), rng.IntN(1000)),
			Available: rng.Float64() < availableRatio,
			Skills:    pickSkills(rng),
		}
		if rng.Float64() >= unlocatedRatio {
			loc := randomPoint(rng, center, radiusKm)
			tech.Location = &loc
		}
		roster[i] = tech
	}
	return roster
}

// GenerateInterventions creates n requests around center.
func GenerateInterventions(rng *rand.Rand, n int, center geo.Coordinate, radiusKm float64) []SuggestionRequest {
	out := make([]SuggestionRequest, n)
	for i := range out {
		at := randomPoint(rng, center, radiusKm)
		urgency := string(model.UrgencyNormal)
		if rng.IntN(3) == 0 {
			urgency = string(model.UrgencyUrgent)
		}
		out[i] = SuggestionRequest{
			Latitude:  at.Latitude,
			Longitude: at.Longitude,
			Category:  categories[rng.IntN(len(categories))],
			Urgency:   urgency,
		}
	}
	return out
}

// GenerateEvents creates n status events against roster members: half
// availability flips, half moves within radiusKm of center.
func GenerateEvents(rng *rand.Rand, roster []model.Technician, n int, center geo.Coordinate, radiusKm float64) []model.StatusEvent {
	if len(roster) == 0 {
		return nil
	}
	out := make([]model.StatusEvent, n)
	for i := range out {
		tech := roster[rng.IntN(len(roster))]
		ev := model.StatusEvent{EventID: uuid.NewString(), TechnicianID: tech.ID}
		if i%2 == 0 {
			ev.Kind = model.StatusAvailability
			ev.Available = rng.Float64() < availableRatio
		} else {
			loc := randomPoint(rng, center, radiusKm)
			ev.Kind = model.StatusPosition
			ev.Location = &loc
		}
		out[i] = ev
	}
	return out
}

// LoadRoster reads a YAML list of technicians.
func LoadRoster(path string) ([]model.Technician, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster file: %w", err)
	}
	var doc struct {
		Technicians []model.Technician `yaml:"technicians"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse roster file %s: %w", path, err)
	}
	for i, tech := range doc.Technicians {
		if err := tech.Validate(); err != nil {
			return nil, fmt.Errorf("roster file %s entry %d: %w", path, i, err)
		}
	}
	return doc.Technicians, nil
}

func pickSkills(rng *rand.Rand) []string {
	n := 1 + rng.IntN(maxSkillsPerTag)
	skills := make([]string, 0, n)
	for _, idx := range rng.Perm(len(skillPool))[:n] {
		skills = append(skills, skillPool[idx])
	}
	return skills
}

// randomPoint returns a point uniformly distributed in the disc of radiusKm
// around center.
func randomPoint(rng *rand.Rand, center geo.Coordinate, radiusKm float64) geo.Coordinate {
	d := radiusKm * math.Sqrt(rng.Float64()) / earthRadiusKm
	bearing := rng.Float64() * 2 * math.Pi

	lat1 := center.Latitude * math.Pi / 180
	lng1 := center.Longitude * math.Pi / 180
	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) + math.Cos(lat1)*math.Sin(d)*math.Cos(bearing))
	lng2 := lng1 + math.Atan2(math.Sin(bearing)*math.Sin(d)*math.Cos(lat1), math.Cos(d)-math.Sin(lat1)*math.Sin(lat2))

	lng := math.Mod(lng2*180/math.Pi+540, 360) - 180
	return geo.Coordinate{Latitude: lat2 * 180 / math.Pi, Longitude: lng}
}
