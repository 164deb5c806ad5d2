package ranking_test

import (
	"errors"
	"math/rand"
	"sort"
	"testing"

	"github.com/okian/cityconnect/internal/domain/competency"
	"github.com/okian/cityconnect/internal/domain/geo"
	"github.com/okian/cityconnect/internal/domain/model"
	"github.com/okian/cityconnect/internal/domain/ranking"
	. "github.com/smartystreets/goconvey/convey"
)

// kmPerDegreeLat is the haversine length of one degree of latitude.
const kmPerDegreeLat = 111.19492664455873

var tunis = geo.Coordinate{Latitude: 36.80, Longitude: 10.18}

func loc(lat, lng float64) *geo.Coordinate {
	return &geo.Coordinate{Latitude: lat, Longitude: lng}
}

// north returns a point distanceKm due north of tunis.
func north(distanceKm float64) *geo.Coordinate {
	return loc(tunis.Latitude+distanceKm/kmPerDegreeLat, tunis.Longitude)
}

func TestRankScenarios(t *testing.T) {
	Convey("Given an electrician standing on the intervention", t, func() {
		tech := model.Technician{ID: "t1", Available: true, Location: loc(36.80, 10.18), Skills: []string{"ELECTRICITE"}}
		req := model.InterventionRequest{Location: tunis, Category: "ELECTRIQUE", Urgency: model.UrgencyNormal}

		Convey("When ranked", func() {
			out, err := ranking.Rank([]model.Technician{tech}, req)

			Convey("Then every component is awarded in full", func() {
				So(err, ShouldBeNil)
				So(out, ShouldHaveLength, 1)
				So(*out[0].DistanceKm, ShouldAlmostEqual, 0, 1e-9)
				So(out[0].CompetencyMatch, ShouldBeTrue)
				So(out[0].Score, ShouldEqual, 100)
				So(out[0].Tier(), ShouldEqual, ranking.TierRecommended)
				So(out[0].Breakdown, ShouldResemble, ranking.Breakdown{
					Availability: 30, Distance: 40, Competency: 20, Workload: 10,
				})
			})
		})

		Convey("When the technician has no location", func() {
			tech.Location = nil
			out, err := ranking.Rank([]model.Technician{tech}, req)

			Convey("Then the distance is undefined and contributes nothing", func() {
				So(err, ShouldBeNil)
				So(out[0].HasDistance(), ShouldBeFalse)
				So(out[0].Breakdown.Distance, ShouldEqual, 0)
				So(out[0].Score, ShouldEqual, 60)
			})
		})
	})

	Convey("Given a near unskilled and a far skilled technician", t, func() {
		roster := []model.Technician{
			{ID: "far", Available: true, Location: north(20), Skills: []string{"plomberie"}},
			{ID: "near", Available: true, Location: north(2), Skills: []string{"menuiserie"}},
		}

		Convey("When the intervention is urgent", func() {
			req := model.InterventionRequest{Location: tunis, Category: "PLOMBERIE", Urgency: model.UrgencyUrgent}
			out, err := ranking.Rank(roster, req)

			Convey("Then proximity outweighs competency", func() {
				So(err, ShouldBeNil)
				So(out, ShouldHaveLength, 2)
				So(out[0].Technician.ID, ShouldEqual, "near")
				So(out[0].Breakdown.Distance, ShouldAlmostEqual, 40, 0.01)
				So(out[0].Breakdown.Competency, ShouldEqual, 0)
				So(out[0].Breakdown.UrgencyBonus, ShouldEqual, 15)
				So(out[0].Score, ShouldAlmostEqual, 95, 0.01)

				So(out[1].Technician.ID, ShouldEqual, "far")
				So(out[1].Breakdown.Distance, ShouldEqual, 0)
				So(out[1].Breakdown.Competency, ShouldEqual, 20)
				So(out[1].Breakdown.UrgencyBonus, ShouldEqual, 0)
				So(out[1].Score, ShouldEqual, 60)
			})
		})

		Convey("When the intervention is normal", func() {
			req := model.InterventionRequest{Location: tunis, Category: "PLOMBERIE", Urgency: model.UrgencyNormal}
			out, err := ranking.Rank(roster, req)

			Convey("Then the near technician still leads without a bonus", func() {
				So(err, ShouldBeNil)
				So(out[0].Technician.ID, ShouldEqual, "near")
				So(out[0].Score, ShouldAlmostEqual, 70, 0.01)
				So(out[1].Score, ShouldEqual, 60)
			})
		})
	})

	Convey("Given an empty roster", t, func() {
		out, err := ranking.Rank(nil, model.InterventionRequest{Location: tunis})

		Convey("Then the result is empty and non-nil", func() {
			So(err, ShouldBeNil)
			So(out, ShouldNotBeNil)
			So(out, ShouldBeEmpty)
		})
	})

	Convey("Given only unavailable technicians", t, func() {
		roster := []model.Technician{{ID: "a", Location: loc(36.8, 10.1)}, {ID: "b"}}
		out, err := ranking.Rank(roster, model.InterventionRequest{Location: tunis})

		Convey("Then nobody is ranked", func() {
			So(err, ShouldBeNil)
			So(out, ShouldBeEmpty)
		})
	})
}

func TestRankInvalidCoordinates(t *testing.T) {
	Convey("Given malformed coordinates", t, func() {
		good := model.Technician{ID: "ok", Available: true, Location: loc(36.8, 10.1)}

		Convey("An out of range request location fails the call", func() {
			_, err := ranking.Rank([]model.Technician{good}, model.InterventionRequest{Location: geo.Coordinate{Latitude: 91}})
			So(errors.Is(err, geo.ErrInvalidCoordinate), ShouldBeTrue)
		})

		Convey("One bad technician fails the whole call", func() {
			bad := model.Technician{ID: "bad", Available: true, Location: loc(0, 181)}
			out, err := ranking.Rank([]model.Technician{good, bad}, model.InterventionRequest{Location: tunis})
			So(errors.Is(err, geo.ErrInvalidCoordinate), ShouldBeTrue)
			So(out, ShouldBeNil)
		})

		Convey("An unavailable technician with a bad location still fails it", func() {
			bad := model.Technician{ID: "bad", Location: loc(-95, 0)}
			_, err := ranking.Rank([]model.Technician{good, bad}, model.InterventionRequest{Location: tunis})
			So(errors.Is(err, geo.ErrInvalidCoordinate), ShouldBeTrue)
		})
	})
}

func TestRankOrdering(t *testing.T) {
	Convey("Given technicians tied on score", t, func() {
		// Far enough that distance contributes nothing, so only the tie-breaks differ.
		roster := []model.Technician{
			{ID: "c", Available: true},
			{ID: "b", Available: true, Location: north(30)},
			{ID: "a", Available: true},
			{ID: "d", Available: true, Location: north(25)},
		}
		out, err := ranking.Rank(roster, model.InterventionRequest{Location: tunis, Category: "x"})

		Convey("Then nearer distances come first, unknown distances last, then ids", func() {
			So(err, ShouldBeNil)
			ids := make([]string, len(out))
			for i, c := range out {
				ids[i] = c.Technician.ID
				So(c.Score, ShouldEqual, 40)
			}
			So(ids, ShouldResemble, []string{"d", "b", "a", "c"})
		})
	})

	Convey("Given a shuffled roster", t, func() {
		rng := rand.New(rand.NewSource(7))
		roster := make([]model.Technician, 0, 50)
		for i := 0; i < 50; i++ {
			tech := model.Technician{
				ID:        string(rune('A'+i%26)) + string(rune('a'+i/26)),
				Available: rng.Intn(4) != 0,
			}
			if rng.Intn(3) != 0 {
				tech.Location = north(rng.Float64() * 12)
			}
			if rng.Intn(2) == 0 {
				tech.Skills = []string{"informatique"}
			}
			roster = append(roster, tech)
		}
		req := model.InterventionRequest{Location: tunis, Category: "INFORMATIQUE", Urgency: model.UrgencyUrgent}

		out, err := ranking.Rank(roster, req)
		So(err, ShouldBeNil)

		Convey("Then the output is sorted, bounded and contains only available technicians", func() {
			available := 0
			for _, tech := range roster {
				if tech.Available {
					available++
				}
			}
			So(out, ShouldHaveLength, available)
			So(sort.SliceIsSorted(out, func(i, j int) bool { return out[i].Score > out[j].Score }), ShouldBeTrue)
			for _, c := range out {
				So(c.Technician.Available, ShouldBeTrue)
				So(c.Score, ShouldBeBetweenOrEqual, 0, 100)
			}
		})

		Convey("Then ranking a permutation gives the same order", func() {
			shuffled := append([]model.Technician(nil), roster...)
			rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
			again, err := ranking.Rank(shuffled, req)
			So(err, ShouldBeNil)
			for i := range out {
				So(again[i].Technician.ID, ShouldEqual, out[i].Technician.ID)
			}
		})
	})
}

func TestRankDoesNotAliasRoster(t *testing.T) {
	Convey("Given a ranked roster", t, func() {
		roster := []model.Technician{{ID: "t1", Available: true, Location: loc(36.8, 10.18), Skills: []string{"reseau"}}}
		out, err := ranking.Rank(roster, model.InterventionRequest{Location: tunis, Category: "informatique"})
		So(err, ShouldBeNil)

		Convey("When the roster is mutated afterwards", func() {
			roster[0].Skills[0] = "changed"
			roster[0].Location.Latitude = 0

			Convey("Then the candidate snapshot is unchanged", func() {
				So(out[0].Technician.Skills, ShouldResemble, []string{"reseau"})
				So(out[0].Technician.Location.Latitude, ShouldEqual, 36.8)
			})
		})
	})
}

func TestRankerOptions(t *testing.T) {
	Convey("Given a ranker with a custom policy and catalog", t, func() {
		p := ranking.DefaultPolicy()
		p.CompetencyPoints = 50
		p.MaxScore = 200
		r := ranking.NewRanker(
			ranking.WithPolicy(p),
			ranking.WithMatcher(competency.NewMatcher(competency.WithCategories(map[string][]string{
				"jardin": {"jardinage"},
			}))),
		)
		tech := model.Technician{ID: "g", Available: true, Location: loc(36.8, 10.18), Skills: []string{"Jardinage"}}

		out, err := r.Rank([]model.Technician{tech}, model.InterventionRequest{Location: tunis, Category: "JARDIN"})

		Convey("Then both take effect", func() {
			So(err, ShouldBeNil)
			So(out[0].CompetencyMatch, ShouldBeTrue)
			So(out[0].Score, ShouldEqual, 130)
		})
	})

	Convey("Given an invalid policy option", t, func() {
		p := ranking.DefaultPolicy()
		p.DistanceDecayPerKm = -1
		r := ranking.NewRanker(ranking.WithPolicy(p))

		Convey("Then the default policy is kept", func() {
			So(r.Policy(), ShouldResemble, ranking.DefaultPolicy())
		})
	})
}

func TestPolicyValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ranking.Policy)
		wantErr bool
	}{
		{"default", func(*ranking.Policy) {}, false},
		{"zero workload", func(p *ranking.Policy) { p.WorkloadPoints = 0 }, false},
		{"negative availability", func(p *ranking.Policy) { p.AvailabilityPoints = -1 }, true},
		{"negative decay", func(p *ranking.Policy) { p.DistanceDecayPerKm = -0.5 }, true},
		{"zero max score", func(p *ranking.Policy) { p.MaxScore = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ranking.DefaultPolicy()
			tt.mutate(&p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ranking.ErrInvalidPolicy) {
				t.Fatalf("Validate() error = %v, want ErrInvalidPolicy", err)
			}
		})
	}
}

func TestTierFor(t *testing.T) {
	cases := map[float64]ranking.Tier{
		100:  ranking.TierRecommended,
		80:   ranking.TierRecommended,
		79.9: ranking.TierAcceptable,
		60:   ranking.TierAcceptable,
		59:   ranking.TierWeak,
		0:    ranking.TierWeak,
	}
	for score, want := range cases {
		if got := ranking.TierFor(score); got != want {
			t.Errorf("TierFor(%v) = %q, want %q", score, got, want)
		}
	}
}
