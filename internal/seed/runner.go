package seed

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/cityconnect/internal/adapters/mq/kafka"
	"github.com/okian/cityconnect/internal/domain/model"
	"github.com/okian/cityconnect/pkg/logger"
)

// ErrVerification is returned when a suggestion breaks the ranking contract.
var ErrVerification = errors.New("suggestion verification failed")

// eventSettleDelay lets the workers apply status events before sampling.
const eventSettleDelay = 500 * time.Millisecond

// Run seeds the service and verifies a sample of suggestions.
func Run(ctx context.Context, cfg *Config) (Stats, error) {
	log := logger.Get().Named("seed")
	stats := Stats{StartTime: time.Now()}
	client := NewClient(cfg.BaseURL, cfg.Timeout)
	rng := newRand(cfg.Seed)

	log.Info(ctx, "starting roster seeding",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("technicians", cfg.Technicians),
		logger.String("rosterFile", cfg.RosterFile),
		logger.Int("samples", cfg.Samples),
		logger.Int("events", cfg.Events),
		logger.Int("workers", cfg.Workers),
	)

	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	roster, err := buildRoster(rng, cfg)
	if err != nil {
		return stats, err
	}

	stored, failed := forEach(ctx, cfg.Workers, roster, func(ctx context.Context, tech model.Technician) error {
		return client.PutTechnician(ctx, tech)
	}, log)
	stats.TechniciansStored, stats.TechniciansFailed = stored, failed
	log.Info(ctx, "roster stored", logger.Int("stored", stored), logger.Int("failed", failed))

	if cfg.Events > 0 {
		events := GenerateEvents(rng, roster, cfg.Events, cfg.Center, cfg.RadiusKm)
		if err := sendEvents(ctx, cfg, client, events, &stats); err != nil {
			return stats, err
		}
		time.Sleep(eventSettleDelay)
	}

	var violations atomic.Int64
	samples := GenerateInterventions(rng, cfg.Samples, cfg.Center, cfg.RadiusKm)
	_, failed = forEach(ctx, cfg.Workers, samples, func(ctx context.Context, req SuggestionRequest) error {
		resp, err := client.Suggest(ctx, req)
		if err != nil {
			return err
		}
		for _, v := range VerifyCandidates(resp.Candidates) {
			violations.Add(1)
			log.Error(ctx, "ranking contract violated",
				logger.String("category", req.Category),
				logger.String("urgency", req.Urgency),
				logger.Error(v),
			)
		}
		if cfg.Verbose {
			log.Info(ctx, "suggestion checked",
				logger.String("category", req.Category),
				logger.Int("candidates", resp.Summary.Count),
				logger.String("best", resp.Summary.Best),
			)
		}
		return nil
	}, log)
	stats.SuggestionsTried = len(samples)
	stats.SuggestionsFailed = failed
	stats.Violations = int(violations.Load())
	stats.Duration = time.Since(stats.StartTime)

	logStats(ctx, log, stats)
	if stats.Violations > 0 {
		return stats, fmt.Errorf("%w: %d violations", ErrVerification, stats.Violations)
	}
	return stats, nil
}

func buildRoster(rng *rand.Rand, cfg *Config) ([]model.Technician, error) {
	if cfg.RosterFile != "" {
		return LoadRoster(cfg.RosterFile)
	}
	return GenerateRoster(rng, cfg.Technicians, cfg.Center, cfg.RadiusKm), nil
}

// sendEvents publishes to Kafka when brokers are configured, otherwise posts
// each event to the HTTP API.
func sendEvents(ctx context.Context, cfg *Config, client *Client, events []model.StatusEvent, stats *Stats) error {
	log := logger.Get().Named("seed")
	if len(cfg.KafkaBrokers) > 0 {
		pub := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() { _ = pub.Close() }()
		if err := pub.Publish(ctx, events...); err != nil {
			return fmt.Errorf("publish status events: %w", err)
		}
		stats.EventsAccepted = len(events)
		log.Info(ctx, "status events published", logger.Int("count", len(events)), logger.String("topic", cfg.KafkaTopic))
		return nil
	}

	var duplicates atomic.Int64
	accepted, failed := forEach(ctx, cfg.Workers, events, func(ctx context.Context, ev model.StatusEvent) error {
		dup, err := client.PostEvent(ctx, ev)
		if dup {
			duplicates.Add(1)
		}
		return err
	}, log)
	stats.EventsDuplicate = int(duplicates.Load())
	stats.EventsAccepted = accepted - stats.EventsDuplicate
	stats.EventsFailed = failed
	log.Info(ctx, "status events posted",
		logger.Int("accepted", stats.EventsAccepted),
		logger.Int("duplicate", stats.EventsDuplicate),
		logger.Int("failed", failed),
	)
	return nil
}

// forEach runs fn over items with at most workers in flight and counts
// successes and failures. Failures are logged, not returned.
func forEach[T any](ctx context.Context, workers int, items []T, fn func(context.Context, T) error, log logger.Logger) (ok, failed int) {
	var okCount, failCount atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for _, item := range items {
		g.Go(func() error {
			if err := fn(gctx, item); err != nil {
				failCount.Add(1)
				log.Warn(gctx, "request failed", logger.Error(err))
				return nil
			}
			okCount.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	return int(okCount.Load()), int(failCount.Load())
}

func logStats(ctx context.Context, log logger.Logger, s Stats) {
	log.Info(ctx, "final statistics",
		logger.Int("techniciansStored", s.TechniciansStored),
		logger.Int("techniciansFailed", s.TechniciansFailed),
		logger.Int("eventsAccepted", s.EventsAccepted),
		logger.Int("eventsDuplicate", s.EventsDuplicate),
		logger.Int("eventsFailed", s.EventsFailed),
		logger.Int("suggestionsTried", s.SuggestionsTried),
		logger.Int("suggestionsFailed", s.SuggestionsFailed),
		logger.Int("violations", s.Violations),
		logger.Duration("duration", s.Duration),
	)
}
