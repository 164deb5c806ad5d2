package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/okian/cityconnect/internal/domain/model"
	"github.com/okian/cityconnect/pkg/metrics"
)

// RedisStore keeps the roster as JSON values in one Redis hash keyed by
// technician id.
type RedisStore struct {
	client *redis.Client
	key    string
	clock  clockwork.Clock
}

var _ Store = (*RedisStore)(nil)

// NewRedisClient connects to addr and pings it.
func NewRedisClient(ctx context.Context, addr string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// NewRedisStore creates a roster backed by client.
func NewRedisStore(client *redis.Client, opts ...Option) *RedisStore {
	o := newOptions(opts)
	return &RedisStore{client: client, key: o.key, clock: o.clock}
}

func (s *RedisStore) Upsert(ctx context.Context, tech model.Technician) (model.Technician, error) {
	if err := tech.Validate(); err != nil {
		return model.Technician{}, err
	}
	stored := tech.Clone()
	stored.UpdatedAt = s.clock.Now().UTC()

	data, err := json.Marshal(stored)
	if err != nil {
		return model.Technician{}, fmt.Errorf("encode technician %s: %w", stored.ID, err)
	}
	if err := s.client.HSet(ctx, s.key, stored.ID, data).Err(); err != nil {
		return model.Technician{}, fmt.Errorf("redis hset %s: %w", stored.ID, err)
	}

	metrics.RecordRosterUpdate("upsert")
	s.refreshSize(ctx)
	return stored, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (model.Technician, error) {
	raw, err := s.client.HGet(ctx, s.key, id).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Technician{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return model.Technician{}, fmt.Errorf("redis hget %s: %w", id, err)
	}
	return decodeTechnician(id, raw)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.HDel(ctx, s.key, id).Result()
	if err != nil {
		return fmt.Errorf("redis hdel %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	metrics.RecordRosterUpdate("delete")
	s.refreshSize(ctx)
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]model.Technician, error) {
	vals, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	out := make([]model.Technician, 0, len(vals))
	for id, raw := range vals {
		tech, err := decodeTechnician(id, []byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, tech)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Update runs fn inside a WATCH transaction on the roster hash. A write by
// another client between read and write fails with ErrConflict.
func (s *RedisStore) Update(ctx context.Context, id string, fn func(*model.Technician) error) (model.Technician, error) {
	var updated model.Technician
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.HGet(ctx, s.key, id).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("redis hget %s: %w", id, err)
		}
		next, err := decodeTechnician(id, raw)
		if err != nil {
			return err
		}
		if err := fn(&next); err != nil {
			return err
		}
		next.ID = id
		if err := next.Validate(); err != nil {
			return err
		}
		next.UpdatedAt = s.clock.Now().UTC()
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode technician %s: %w", id, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, s.key, id, data)
			return nil
		})
		if err != nil {
			return err
		}
		updated = next
		return nil
	}, s.key)
	if errors.Is(err, redis.TxFailedErr) {
		return model.Technician{}, fmt.Errorf("%w: %s", ErrConflict, id)
	}
	if err != nil {
		return model.Technician{}, err
	}
	metrics.RecordRosterUpdate("update")
	return updated, nil
}

func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.HLen(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis hlen: %w", err)
	}
	return int(n), nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) refreshSize(ctx context.Context) {
	if n, err := s.Count(ctx); err == nil {
		metrics.UpdateRosterSize(n)
	}
}

func decodeTechnician(id string, raw []byte) (model.Technician, error) {
	var tech model.Technician
	if err := json.Unmarshal(raw, &tech); err != nil {
		return model.Technician{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, id, err)
	}
	tech.ID = id
	return tech, nil
}
