package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/cityconnect/internal/app"
	"github.com/okian/cityconnect/internal/domain/model"
	"github.com/okian/cityconnect/internal/domain/ranking"
)

// eventually polls cond until it holds or the deadline passes.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a started service with a seeded roster", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		svc := service.New(
			service.WithWorkerCount(2),
			service.WithQueueSize(1000),
			service.WithDedupeSize(500),
		)
		seedRoster(ctx, svc)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		req := model.InterventionRequest{Location: origin, Category: "electricite", Urgency: model.UrgencyUrgent}

		Convey("When the best technician goes off duty", func() {
			_, err := svc.Ingest(ctx, availabilityEvent("off-1", "t-amel", false))
			So(err, ShouldBeNil)

			Convey("Then they should disappear from suggestions", func() {
				So(eventually(func() bool {
					tech, err := svc.Technician(ctx, "t-amel")
					return err == nil && !tech.Available
				}), ShouldBeTrue)

				res, err := svc.Suggest(ctx, service.SuggestionQuery{Request: req})
				So(err, ShouldBeNil)
				for _, c := range res.Candidates {
					So(c.Technician.ID, ShouldNotEqual, "t-amel")
				}
			})
		})

		Convey("When an off-duty technician reports in nearby", func() {
			_, err := svc.Ingest(ctx, availabilityEvent("on-1", "t-dali", true))
			So(err, ShouldBeNil)
			_, err = svc.Ingest(ctx, model.StatusEvent{
				EventID:      "pos-1",
				TechnicianID: "t-dali",
				Kind:         model.StatusPosition,
				Location:     north(0.2),
				TS:           time.Date(2026, 5, 4, 9, 1, 0, 0, time.UTC),
			})
			So(err, ShouldBeNil)

			Convey("Then they should lead the urgent ranking", func() {
				So(eventually(func() bool {
					res, err := svc.Suggest(ctx, service.SuggestionQuery{Request: req})
					return err == nil && len(res.Candidates) > 0 && res.Candidates[0].Technician.ID == "t-dali"
				}), ShouldBeTrue)
			})
		})

		Convey("When an event targets an unknown technician", func() {
			_, err := svc.Ingest(ctx, availabilityEvent("ghost-1", "t-ghost", true))

			Convey("Then it should be accepted and the roster left unchanged", func() {
				So(err, ShouldBeNil)
				So(eventually(func() bool { return svc.GetStats(ctx).QueueLength == 0 }), ShouldBeTrue)
				all, err := svc.Technicians(ctx)
				So(err, ShouldBeNil)
				So(len(all), ShouldEqual, 4)
			})
		})
	})
}

func TestServiceConcurrency(t *testing.T) {
	Convey("Given a started service with a seeded roster", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(4), service.WithQueueSize(10_000))
		seedRoster(ctx, svc)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When events and suggestions run concurrently", func() {
			const goroutines = 8
			const perGoroutine = 50

			var wg sync.WaitGroup
			errs := make(chan error, goroutines*perGoroutine*2)
			for g := range goroutines {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := range perGoroutine {
						ev := availabilityEvent(fmt.Sprintf("g%d-e%d", g, i), "t-bechir", i%2 == 0)
						if _, err := svc.Ingest(ctx, ev); err != nil {
							errs <- err
						}
						res, err := svc.Suggest(ctx, service.SuggestionQuery{
							Request:  model.InterventionRequest{Location: origin, Category: "plomberie"},
							Criteria: ranking.Criteria{Limit: 2},
						})
						if err != nil {
							errs <- err
							continue
						}
						for _, c := range res.Candidates {
							if !c.Technician.Available {
								errs <- fmt.Errorf("unavailable technician %s suggested", c.Technician.ID)
							}
						}
					}
				}()
			}
			wg.Wait()
			close(errs)

			Convey("Then no operation should fail", func() {
				for err := range errs {
					So(err, ShouldBeNil)
				}
				So(svc.GetStats(ctx).EventsAccepted, ShouldEqual, goroutines*perGoroutine)
			})
		})
	})
}
