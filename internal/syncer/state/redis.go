package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aegean-labs/stockroom/internal/model"
)

const (
	stateKey = "stockroom:sync:state"
	leaseKey = "stockroom:sync:lease"
)

// The TTL is a backstop; staleness is decided by the timestamp in the
// stored state so the cutoff stays exact across clients.
const stateTTL = model.StaleAfter + 5*time.Minute

// RedisStore persists the run state in Redis so interactive steps can
// resume across processes, and holds the run lease.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisStore(client *redis.Client, log *zap.Logger) *RedisStore {
	return &RedisStore{client: client, logger: log}
}

func (r *RedisStore) Get(ctx context.Context) (*model.SyncState, error) {
	raw, err := r.client.Get(ctx, stateKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.DefaultSyncState(), nil
		}
		return nil, fmt.Errorf("reading sync state: %w", err)
	}

	var s model.SyncState
	if err := json.Unmarshal(raw, &s); err != nil {
		r.logger.Warn("discarding unreadable sync state", zap.Error(err))
		return model.DefaultSyncState(), nil
	}

	if s.Stale(time.Now()) {
		r.logger.Info("discarding stale sync state",
			zap.String("run_id", s.RunID), zap.Time("started_at", s.StartedAt))
		if err := r.Reset(ctx); err != nil {
			return nil, err
		}
		return model.DefaultSyncState(), nil
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, s *model.SyncState) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, stateKey, raw, stateTTL).Err(); err != nil {
		return fmt.Errorf("saving sync state: %w", err)
	}
	return nil
}

func (r *RedisStore) Reset(ctx context.Context) error {
	if err := r.client.Del(ctx, stateKey).Err(); err != nil {
		return fmt.Errorf("resetting sync state: %w", err)
	}
	return nil
}

func (r *RedisStore) Acquire(ctx context.Context, runID string) (bool, error) {
	ok, err := r.client.SetNX(ctx, leaseKey, runID, model.StaleAfter).Result()
	if err != nil {
		return false, fmt.Errorf("acquiring sync lease: %w", err)
	}
	if ok {
		return true, nil
	}

	holder, err := r.client.Get(ctx, leaseKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, err
	}
	// Interactive steps of the same run re-enter their own lease.
	if holder == runID {
		return true, nil
	}
	return false, nil
}

func (r *RedisStore) Release(ctx context.Context, runID string) error {
	holder, err := r.client.Get(ctx, leaseKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}
	if holder != runID {
		return nil
	}
	return r.client.Del(ctx, leaseKey).Err()
}
