package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/okian/cityconnect/internal/domain/model"
	"github.com/okian/cityconnect/pkg/metrics"
)

// MemoryStore keeps the roster in a map guarded by an RWMutex.
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[string]model.Technician
	clock clockwork.Clock
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory roster.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := newOptions(opts)
	return &MemoryStore{
		byID:  make(map[string]model.Technician),
		clock: o.clock,
	}
}

func (s *MemoryStore) Upsert(_ context.Context, tech model.Technician) (model.Technician, error) {
	if err := tech.Validate(); err != nil {
		return model.Technician{}, err
	}
	stored := tech.Clone()
	stored.UpdatedAt = s.clock.Now().UTC()

	s.mu.Lock()
	s.byID[stored.ID] = stored
	n := len(s.byID)
	s.mu.Unlock()

	metrics.RecordRosterUpdate("upsert")
	metrics.UpdateRosterSize(n)
	return stored.Clone(), nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (model.Technician, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tech, ok := s.byID[id]
	if !ok {
		return model.Technician{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return tech.Clone(), nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.byID[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.byID, id)
	n := len(s.byID)
	s.mu.Unlock()

	metrics.RecordRosterUpdate("delete")
	metrics.UpdateRosterSize(n)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]model.Technician, error) {
	s.mu.RLock()
	out := make([]model.Technician, 0, len(s.byID))
	for _, tech := range s.byID {
		out = append(out, tech.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, fn func(*model.Technician) error) (model.Technician, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[id]
	if !ok {
		return model.Technician{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	next := current.Clone()
	if err := fn(&next); err != nil {
		return model.Technician{}, err
	}
	next.ID = id
	if err := next.Validate(); err != nil {
		return model.Technician{}, err
	}
	next.UpdatedAt = s.clock.Now().UTC()
	s.byID[id] = next

	metrics.RecordRosterUpdate("update")
	return next.Clone(), nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}
