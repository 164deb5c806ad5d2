// Package service provides the dispatch service that implements
// the dependencies required by the HTTP API and the Kafka consumer.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/cityconnect/internal/adapters/mq/queue"
	"github.com/okian/cityconnect/internal/adapters/mq/worker"
	"github.com/okian/cityconnect/internal/adapters/repository"
	"github.com/okian/cityconnect/internal/domain/competency"
	"github.com/okian/cityconnect/internal/domain/dedupe"
	"github.com/okian/cityconnect/internal/domain/geo"
	"github.com/okian/cityconnect/internal/domain/model"
	"github.com/okian/cityconnect/internal/domain/ranking"
	"github.com/okian/cityconnect/pkg/logger"
	"github.com/okian/cityconnect/pkg/metrics"
)

// Defaults used when no option overrides them.
const (
	DefaultQueueSize          = 10_000
	DefaultDedupeSize         = 100_000
	DefaultMaxSuggestionLimit = 100
)

// SuggestionQuery is one request for ranked technicians.
type SuggestionQuery struct {
	Request  model.InterventionRequest
	Criteria ranking.Criteria
}

// SuggestionResult is the refined ranking plus its summary.
type SuggestionResult struct {
	Candidates []ranking.ScoredCandidate
	Summary    ranking.Summary
	RosterSize int
}

// Stats is the operational snapshot served on /stats.
type Stats struct {
	Started         bool    `json:"started"`
	UptimeSeconds   float64 `json:"uptime_seconds"`
	Backend         string  `json:"roster_backend"`
	WorkerCount     int     `json:"worker_count"`
	QueueLength     int     `json:"queue_length"`
	QueueCapacity   int     `json:"queue_capacity"`
	DedupeSize      int64   `json:"dedupe_size"`
	RosterSize      int     `json:"roster_size"`
	Available       int     `json:"available"`
	Located         int     `json:"located"`
	Categories      int     `json:"categories"`
	Suggestions     int64   `json:"suggestions"`
	EventsAccepted  int64   `json:"events_accepted"`
	EventsDuplicate int64   `json:"events_duplicate"`
}

// Service ranks technicians from the roster and applies status events to it.
type Service struct {
	mu sync.RWMutex
	// ingestMu makes the dedupe decision and the enqueue one step, so a
	// concurrent replay never sees an id whose enqueue is about to fail.
	ingestMu sync.Mutex

	// Core components
	store      repository.Store
	ranker     *ranking.Ranker
	deduper    dedupe.Deduper
	eventQueue queue.Queue
	workerPool *worker.Pool

	// Configuration
	workerCount    int
	queueSize      int
	dedupeSize     int
	maxLimit       int
	nearbyRadiusKm float64
	policy         ranking.Policy
	categories     map[string][]string
	backend        string
	clock          clockwork.Clock

	// State
	started   bool
	startedAt time.Time

	suggestions atomic.Int64
	accepted    atomic.Int64
	duplicates  atomic.Int64

	logger logger.Logger
}

// New constructs a Service. The roster store and ranker are usable right away;
// event ingestion needs Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:    runtime.NumCPU(),
		queueSize:      DefaultQueueSize,
		dedupeSize:     DefaultDedupeSize,
		maxLimit:       DefaultMaxSuggestionLimit,
		nearbyRadiusKm: ranking.DefaultNearbyRadiusKm,
		policy:         ranking.DefaultPolicy(),
		backend:        "memory",
		clock:          clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("dispatch")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	s.ranker = ranking.NewRanker(
		ranking.WithPolicy(s.policy),
		ranking.WithMatcher(competency.NewMatcher(competency.WithCategories(s.categories))),
	)
	return s
}

// Start creates the event pipeline and launches the workers. Workers keep
// running after ctx is cancelled; Stop drains them.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting dispatch service...")

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.eventQueue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.workerPool = worker.NewPool(s.workerCount, s.eventQueue, s)
	s.workerPool.Start(context.WithoutCancel(ctx))

	if n, err := s.store.Count(ctx); err == nil {
		metrics.UpdateRosterSize(n)
	}

	s.started = true
	s.startedAt = s.clock.Now()
	s.logger.Info(ctx, "dispatch service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.String("backend", s.backend),
	)
	return nil
}

// Stop closes the event queue, waits for the workers to drain it and closes
// the roster store. It is safe to call more than once.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping dispatch service...")

	var errs []error
	if err := s.workerPool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if closer, ok := s.store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close roster store: %w", err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "dispatch service stopped")
	return errors.Join(errs...)
}

// Suggest ranks the current roster for q.Request and narrows the result with
// q.Criteria.
func (s *Service) Suggest(ctx context.Context, q SuggestionQuery) (SuggestionResult, error) {
	start := s.clock.Now()

	if q.Criteria.Limit > s.maxLimit {
		metrics.RecordSuggestionError("limit")
		return SuggestionResult{}, fmt.Errorf("%w: %d > %d", ErrLimitExceeded, q.Criteria.Limit, s.maxLimit)
	}
	if q.Criteria.NearbyRadiusKm <= 0 {
		q.Criteria.NearbyRadiusKm = s.nearbyRadiusKm
	}

	roster, err := s.store.List(ctx)
	if err != nil {
		metrics.RecordSuggestionError("roster")
		return SuggestionResult{}, fmt.Errorf("load roster: %w", err)
	}

	ranked, err := s.ranker.Rank(roster, q.Request)
	if err != nil {
		metrics.RecordSuggestionError("coordinate")
		return SuggestionResult{}, err
	}

	refined, err := ranking.Refine(ranked, q.Criteria)
	if err != nil {
		metrics.RecordSuggestionError("expression")
		return SuggestionResult{}, err
	}

	s.suggestions.Add(1)
	latency := s.clock.Since(start)
	metrics.RecordSuggestion(string(q.Request.Urgency), float64(latency.Microseconds())/1000, len(refined))
	s.logger.Debug(ctx, "suggestion computed",
		logger.String("category", q.Request.Category),
		logger.String("urgency", string(q.Request.Urgency)),
		logger.Int("ranked", len(ranked)),
		logger.Int("returned", len(refined)),
		logger.Duration("latency", latency),
	)

	return SuggestionResult{
		Candidates: refined,
		Summary:    ranking.Summarize(refined),
		RosterSize: len(roster),
	}, nil
}

// Nearest returns up to limit available technicians closest to at.
// limit <= 0 means the configured maximum.
func (s *Service) Nearest(ctx context.Context, at geo.Coordinate, limit int) ([]ranking.NearbyTechnician, error) {
	if limit > s.maxLimit {
		return nil, fmt.Errorf("%w: %d > %d", ErrLimitExceeded, limit, s.maxLimit)
	}
	if limit <= 0 {
		limit = s.maxLimit
	}
	roster, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	return ranking.Nearest(roster, at, limit)
}

// Technicians lists the roster ordered by id.
func (s *Service) Technicians(ctx context.Context) ([]model.Technician, error) {
	return s.store.List(ctx)
}

// Technician returns one roster record or repository.ErrNotFound.
func (s *Service) Technician(ctx context.Context, id string) (model.Technician, error) {
	return s.store.Get(ctx, id)
}

// PutTechnician creates or replaces a roster record.
func (s *Service) PutTechnician(ctx context.Context, tech model.Technician) (model.Technician, error) {
	stored, err := s.store.Upsert(ctx, tech)
	if err != nil {
		return model.Technician{}, err
	}
	s.logger.Debug(ctx, "technician stored",
		logger.String("technician_id", stored.ID),
		logger.Bool("available", stored.Available),
	)
	return stored, nil
}

// DeleteTechnician removes a roster record or returns repository.ErrNotFound.
func (s *Service) DeleteTechnician(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// Ingest validates e, drops it if its id was already seen and otherwise
// queues it for the workers. A failed enqueue forgets the id again so the
// producer can retry; an id is only reported as a duplicate once its first
// copy is queued.
func (s *Service) Ingest(ctx context.Context, e model.StatusEvent) (bool, error) { //nolint:gocritic // hugeParam: value semantics match the queue
	if err := e.Validate(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return false, ErrNotStarted
	}

	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	if s.deduper.SeenAndRecord(ctx, e.EventID) {
		s.duplicates.Add(1)
		metrics.RecordEventDuplicate()
		s.logger.Debug(ctx, "duplicate status event",
			logger.String("event_id", e.EventID),
			logger.String("technician_id", e.TechnicianID),
		)
		return true, nil
	}

	if !s.eventQueue.Enqueue(ctx, e) {
		s.deduper.Unrecord(ctx, e.EventID)
		if err := ctx.Err(); err != nil {
			return false, fmt.Errorf("ingest %s: %w", e.EventID, err)
		}
		if s.eventQueue.IsClosed() {
			return false, fmt.Errorf("ingest %s: %w", e.EventID, queue.ErrClosed)
		}
		return false, fmt.Errorf("ingest %s: %w", e.EventID, queue.ErrFull)
	}

	s.accepted.Add(1)
	metrics.UpdateQueueSize(s.eventQueue.Len(ctx))
	return false, nil
}

// Apply updates the roster with one status event. Workers call it.
func (s *Service) Apply(ctx context.Context, e model.StatusEvent) error { //nolint:gocritic // hugeParam: worker.Applier signature
	_, err := s.store.Update(ctx, e.TechnicianID, func(t *model.Technician) error {
		switch e.Kind {
		case model.StatusAvailability:
			t.Available = e.Available
		case model.StatusPosition:
			loc := *e.Location
			t.Location = &loc
		default:
			return fmt.Errorf("%w: unknown kind %q", model.ErrInvalidEvent, e.Kind)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("apply to %s: %w", e.TechnicianID, err)
	}
	metrics.RecordRosterUpdate(string(e.Kind))
	s.logger.Debug(ctx, "status event applied",
		logger.String("event_id", e.EventID),
		logger.String("technician_id", e.TechnicianID),
		logger.String("kind", string(e.Kind)),
	)
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		Started:         s.started,
		Backend:         s.backend,
		WorkerCount:     s.workerCount,
		QueueCapacity:   s.queueSize,
		Categories:      s.ranker.Matcher().Categories(),
		Suggestions:     s.suggestions.Load(),
		EventsAccepted:  s.accepted.Load(),
		EventsDuplicate: s.duplicates.Load(),
	}

	if roster, err := s.store.List(ctx); err == nil {
		stats.RosterSize = len(roster)
		for _, t := range roster {
			if t.Available {
				stats.Available++
			}
			if t.HasLocation() {
				stats.Located++
			}
		}
		metrics.UpdateRosterSize(stats.RosterSize)
	} else {
		s.logger.Warn(ctx, "roster unavailable for stats", logger.Error(err))
	}

	if s.started {
		stats.UptimeSeconds = s.clock.Since(s.startedAt).Seconds()
		stats.QueueLength = s.eventQueue.Len(ctx)
		stats.DedupeSize = s.deduper.Size()
		metrics.UpdateQueueSize(stats.QueueLength)
	}
	return stats
}

// Policy returns the scoring weights in use.
func (s *Service) Policy() ranking.Policy { return s.ranker.Policy() }
