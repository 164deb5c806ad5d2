package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/cityconnect/internal/adapters/mq/queue"
	"github.com/okian/cityconnect/internal/adapters/repository"
	service "github.com/okian/cityconnect/internal/app"
	"github.com/okian/cityconnect/internal/domain/geo"
	"github.com/okian/cityconnect/internal/domain/model"
	"github.com/okian/cityconnect/internal/domain/ranking"
	"github.com/okian/cityconnect/pkg/logger"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

const kmPerDegreeLat = 111.19492664455873

var origin = geo.Coordinate{Latitude: 36.8065, Longitude: 10.1815}

// north returns a point km kilometres due north of origin.
func north(km float64) *geo.Coordinate {
	return &geo.Coordinate{Latitude: origin.Latitude + km/kmPerDegreeLat, Longitude: origin.Longitude}
}

func seedRoster(ctx context.Context, svc *service.Service) {
	roster := []model.Technician{
		{ID: "t-amel", Name: "Amel", Available: true, Location: north(1), Skills: []string{"Électricité"}},
		{ID: "t-bechir", Name: "Béchir", Available: true, Location: north(3), Skills: []string{"plomberie"}},
		{ID: "t-chiraz", Name: "Chiraz", Available: true, Skills: []string{"electricite"}},
		{ID: "t-dali", Name: "Dali", Available: false, Location: north(0.5), Skills: []string{"electricite"}},
	}
	for _, tech := range roster {
		if _, err := svc.PutTechnician(ctx, tech); err != nil {
			panic(err)
		}
	}
}

func availabilityEvent(id, techID string, available bool) model.StatusEvent {
	return model.StatusEvent{
		EventID:      id,
		TechnicianID: techID,
		Kind:         model.StatusAvailability,
		Available:    available,
		TS:           time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC),
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			So(svc.Policy(), ShouldResemble, ranking.DefaultPolicy())
			stats := svc.GetStats(context.Background())
			So(stats.Started, ShouldBeFalse)
			So(stats.Backend, ShouldEqual, "memory")
			So(stats.QueueCapacity, ShouldEqual, service.DefaultQueueSize)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		policy := ranking.DefaultPolicy()
		policy.UrgentProximityBonus = 25
		svc := service.New(
			service.WithWorkerCount(8),
			service.WithQueueSize(50_000),
			service.WithDedupeSize(25_000),
			service.WithPolicy(policy),
			service.WithCategories(map[string][]string{"Climatisation": {"froid", "clim"}}),
			service.WithStoreBackend("redis"),
		)

		Convey("Then the options should be applied", func() {
			So(svc.Policy().UrgentProximityBonus, ShouldEqual, 25)
			stats := svc.GetStats(context.Background())
			So(stats.WorkerCount, ShouldEqual, 8)
			So(stats.QueueCapacity, ShouldEqual, 50_000)
			So(stats.Backend, ShouldEqual, "redis")
			So(stats.Categories, ShouldBeGreaterThan, 1)
		})
	})

	Convey("Given an invalid policy option", t, func() {
		policy := ranking.DefaultPolicy()
		policy.MaxScore = 0
		svc := service.New(service.WithPolicy(policy))

		Convey("Then the default policy should be kept", func() {
			So(svc.Policy(), ShouldResemble, ranking.DefaultPolicy())
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service on a fake clock", t, func() {
		clock := clockwork.NewFakeClock()
		svc := service.New(service.WithClock(clock), service.WithWorkerCount(2))
		ctx := context.Background()

		Convey("When starting the service", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer func() { _ = svc.Stop(ctx) }()
			clock.Advance(5 * time.Second)

			Convey("Then it should be marked as started", func() {
				stats := svc.GetStats(ctx)
				So(stats.Started, ShouldBeTrue)
				So(stats.UptimeSeconds, ShouldEqual, 5)
				So(stats.WorkerCount, ShouldEqual, 2)
			})

			Convey("And starting again should be a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})
		})

		Convey("When stopping the service", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then it should be marked as stopped", func() {
				So(svc.GetStats(ctx).Started, ShouldBeFalse)
			})

			Convey("And stopping again should be safe", func() {
				So(svc.Stop(ctx), ShouldBeNil)
			})
		})
	})
}

func TestService_Suggest(t *testing.T) {
	Convey("Given a service with a seeded roster", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithMaxSuggestionLimit(10))
		seedRoster(ctx, svc)

		req := model.InterventionRequest{Location: origin, Category: "electricite", Urgency: model.UrgencyNormal}

		Convey("When asking for suggestions without criteria", func() {
			res, err := svc.Suggest(ctx, service.SuggestionQuery{Request: req})

			Convey("Then only available technicians should be ranked", func() {
				So(err, ShouldBeNil)
				So(res.RosterSize, ShouldEqual, 4)
				So(len(res.Candidates), ShouldEqual, 3)
				So(res.Candidates[0].Technician.ID, ShouldEqual, "t-amel")
				for _, c := range res.Candidates {
					So(c.Technician.Available, ShouldBeTrue)
					So(c.Score, ShouldBeBetweenOrEqual, 0, 100)
				}
			})

			Convey("And the summary should describe the list", func() {
				So(res.Summary.Count, ShouldEqual, 3)
				So(res.Summary.WithDistance, ShouldEqual, 2)
				So(res.Summary.Competent, ShouldEqual, 2)
				So(res.Summary.Best, ShouldEqual, "t-amel")
			})
		})

		Convey("When filtering to nearby competent technicians", func() {
			res, err := svc.Suggest(ctx, service.SuggestionQuery{
				Request:  req,
				Criteria: ranking.Criteria{NearbyOnly: true, NearbyRadiusKm: 2, CompetentOnly: true},
			})

			Convey("Then only the close electrician should remain", func() {
				So(err, ShouldBeNil)
				So(len(res.Candidates), ShouldEqual, 1)
				So(res.Candidates[0].Technician.ID, ShouldEqual, "t-amel")
			})
		})

		Convey("When the limit exceeds the maximum", func() {
			_, err := svc.Suggest(ctx, service.SuggestionQuery{Request: req, Criteria: ranking.Criteria{Limit: 11}})

			Convey("Then ErrLimitExceeded should be returned", func() {
				So(errors.Is(err, service.ErrLimitExceeded), ShouldBeTrue)
			})
		})

		Convey("When the intervention location is invalid", func() {
			bad := req
			bad.Location = geo.Coordinate{Latitude: 91}
			_, err := svc.Suggest(ctx, service.SuggestionQuery{Request: bad})

			Convey("Then the coordinate error should surface", func() {
				So(errors.Is(err, geo.ErrInvalidCoordinate), ShouldBeTrue)
			})
		})

		Convey("When the expression does not compile", func() {
			_, err := svc.Suggest(ctx, service.SuggestionQuery{
				Request:  req,
				Criteria: ranking.Criteria{Expression: "candidate.score >"},
			})

			Convey("Then ErrInvalidExpression should be returned", func() {
				So(errors.Is(err, ranking.ErrInvalidExpression), ShouldBeTrue)
			})
		})
	})
}

func TestService_Nearest(t *testing.T) {
	Convey("Given a service with a seeded roster", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithMaxSuggestionLimit(5))
		seedRoster(ctx, svc)

		Convey("When asking for the nearest technicians", func() {
			got, err := svc.Nearest(ctx, origin, 0)

			Convey("Then available located technicians should come back by distance", func() {
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 2)
				So(got[0].Technician.ID, ShouldEqual, "t-amel")
				So(got[1].Technician.ID, ShouldEqual, "t-bechir")
			})
		})

		Convey("When the limit exceeds the maximum", func() {
			_, err := svc.Nearest(ctx, origin, 6)

			Convey("Then ErrLimitExceeded should be returned", func() {
				So(errors.Is(err, service.ErrLimitExceeded), ShouldBeTrue)
			})
		})
	})
}

func TestService_Roster(t *testing.T) {
	Convey("Given an empty service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithStore(repository.NewMemoryStore()))

		Convey("When a technician is stored", func() {
			stored, err := svc.PutTechnician(ctx, model.Technician{ID: "t1", Name: "Amel", Available: true})
			So(err, ShouldBeNil)

			Convey("Then it can be read back and listed", func() {
				got, err := svc.Technician(ctx, "t1")
				So(err, ShouldBeNil)
				So(got.Name, ShouldEqual, stored.Name)

				all, err := svc.Technicians(ctx)
				So(err, ShouldBeNil)
				So(len(all), ShouldEqual, 1)
			})

			Convey("And deleting it twice reports not found", func() {
				So(svc.DeleteTechnician(ctx, "t1"), ShouldBeNil)
				So(errors.Is(svc.DeleteTechnician(ctx, "t1"), repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When a technician has no id", func() {
			_, err := svc.PutTechnician(ctx, model.Technician{Name: "nobody"})

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, model.ErrInvalidTechnician), ShouldBeTrue)
			})
		})
	})
}

func TestService_Ingest(t *testing.T) {
	Convey("Given a service that has not been started", t, func() {
		svc := service.New()

		Convey("Then ingest should report ErrNotStarted", func() {
			_, err := svc.Ingest(context.Background(), availabilityEvent("e1", "t1", true))
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})
	})

	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(1))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When an invalid event arrives", func() {
			_, err := svc.Ingest(ctx, model.StatusEvent{EventID: "e1", TechnicianID: "t1", Kind: "teleport"})

			Convey("Then it should be rejected before dedupe", func() {
				So(errors.Is(err, model.ErrInvalidEvent), ShouldBeTrue)
				So(svc.GetStats(ctx).DedupeSize, ShouldEqual, 0)
			})
		})

		Convey("When the same event arrives twice", func() {
			dup1, err1 := svc.Ingest(ctx, availabilityEvent("e1", "t1", true))
			dup2, err2 := svc.Ingest(ctx, availabilityEvent("e1", "t1", true))

			Convey("Then the second one should be a duplicate", func() {
				So(err1, ShouldBeNil)
				So(dup1, ShouldBeFalse)
				So(err2, ShouldBeNil)
				So(dup2, ShouldBeTrue)
				stats := svc.GetStats(ctx)
				So(stats.EventsAccepted, ShouldEqual, 1)
				So(stats.EventsDuplicate, ShouldEqual, 1)
			})
		})

		Convey("When the service has been stopped", func() {
			So(svc.Stop(ctx), ShouldBeNil)
			_, err := svc.Ingest(ctx, availabilityEvent("e2", "t1", true))

			Convey("Then ingest should report ErrNotStarted", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})
	})
}

func TestService_Backpressure(t *testing.T) {
	Convey("Given a service whose queue holds one event and whose store blocks", t, func() {
		ctx := context.Background()
		store := newBlockingStore()
		svc := service.New(
			service.WithWorkerCount(1),
			service.WithQueueSize(1),
			service.WithStore(store),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() {
			close(store.release)
			_ = svc.Stop(ctx)
		}()

		// The first event occupies the worker, the second fills the queue.
		_, err := svc.Ingest(ctx, availabilityEvent("e1", "t1", true))
		So(err, ShouldBeNil)
		<-store.entered
		_, err = svc.Ingest(ctx, availabilityEvent("e2", "t1", true))
		So(err, ShouldBeNil)

		Convey("When a third event arrives", func() {
			_, err := svc.Ingest(ctx, availabilityEvent("e3", "t1", true))

			Convey("Then it should be refused with ErrFull", func() {
				So(errors.Is(err, queue.ErrFull), ShouldBeTrue)
			})

			Convey("And its id should be forgotten so a retry is not a duplicate", func() {
				So(svc.GetStats(ctx).DedupeSize, ShouldEqual, 2)
			})
		})

		Convey("When the same event is replayed concurrently while the queue is full", func() {
			const replays = 32
			var wg sync.WaitGroup
			duplicates := make(chan bool, replays)
			errs := make(chan error, replays)
			for range replays {
				wg.Add(1)
				go func() {
					defer wg.Done()
					dup, err := svc.Ingest(ctx, availabilityEvent("e3", "t1", true))
					duplicates <- dup
					errs <- err
				}()
			}
			wg.Wait()
			close(duplicates)
			close(errs)

			Convey("Then no copy should be acknowledged as a duplicate", func() {
				for dup := range duplicates {
					So(dup, ShouldBeFalse)
				}
				for err := range errs {
					So(errors.Is(err, queue.ErrFull), ShouldBeTrue)
				}
				So(svc.GetStats(ctx).DedupeSize, ShouldEqual, 2)
			})
		})
	})
}

// blockingStore parks the first Update until release is closed.
type blockingStore struct {
	*repository.MemoryStore
	entered chan struct{}
	release chan struct{}
	first   bool
}

func newBlockingStore() *blockingStore {
	return &blockingStore{
		MemoryStore: repository.NewMemoryStore(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
		first:       true,
	}
}

func (s *blockingStore) Update(ctx context.Context, id string, fn func(*model.Technician) error) (model.Technician, error) {
	if s.first {
		s.first = false
		close(s.entered)
		<-s.release
	}
	return s.MemoryStore.Update(ctx, id, fn)
}
