// Package cache wraps any store.LeaseStore with a short-TTL Redis
// read-through cache in front of ActiveLeases, for deployments with many
// read-only callers polling GET /leases. Verdict decisions must never read
// the cache: callers resolving a verdict call LiveActiveLeases, which always
// reads through to the wrapped store, so the cache can only add reporting
// latency, never mask a real conflict.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/waythor-lab/klock/internal/store"
	"github.com/waythor-lab/klock/internal/types"
)

const defaultTTL = 250 * time.Millisecond
const cacheKey = "klock:active_leases"

// Store wraps a store.LeaseStore, caching ActiveLeases reads in Redis.
type Store struct {
	store.LeaseStore
	rdb *redis.Client
	ttl time.Duration
	log *logrus.Logger
}

// Wrap returns a Store that caches inner's ActiveLeases in Redis. If rdb is
// nil, Wrap returns inner unchanged — the cache is strictly optional. log
// may be nil; a nil logger silently drops cache-invalidation failures.
func Wrap(inner store.LeaseStore, rdb *redis.Client, log *logrus.Logger) store.LeaseStore {
	if rdb == nil {
		return inner
	}
	return &Store{LeaseStore: inner, rdb: rdb, ttl: defaultTTL, log: log}
}

// ActiveLeases serves from the Redis cache when warm, otherwise falls
// through to the wrapped store and repopulates the cache.
func (s *Store) ActiveLeases() []types.Lease {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if cached, err := s.rdb.Get(ctx, cacheKey).Bytes(); err == nil {
		var leases []types.Lease
		if json.Unmarshal(cached, &leases) == nil {
			return leases
		}
	}

	leases := s.LeaseStore.ActiveLeases()
	if encoded, err := json.Marshal(leases); err == nil {
		s.rdb.Set(ctx, cacheKey, encoded, s.ttl)
	}
	return leases
}

// LiveActiveLeases bypasses the cache entirely and reads straight through to
// the wrapped store. Callers that resolve a verdict (the kernel's /intents
// decision path) call this instead of ActiveLeases so a stale cache entry
// can never mask a real conflict; only the GET /leases reporting path should
// call ActiveLeases.
func (s *Store) LiveActiveLeases() []types.Lease {
	return s.LeaseStore.ActiveLeases()
}

// Acquire invalidates the cache and delegates to the wrapped store. The
// scheduler decision inside Acquire reads the wrapped store's live
// ActiveLeases directly (via s.LeaseStore, not s.ActiveLeases), so a stale
// cache entry can never influence a verdict.
func (s *Store) Acquire(agentID, sessionID string, resource types.ResourceRef, predicate types.Predicate, ttl, now uint64) types.LeaseResult {
	result := s.LeaseStore.Acquire(agentID, sessionID, resource, predicate, ttl, now)
	s.invalidate()
	return result
}

// Release invalidates the cache and delegates to the wrapped store.
func (s *Store) Release(leaseID string) bool {
	ok := s.LeaseStore.Release(leaseID)
	s.invalidate()
	return ok
}

// Heartbeat invalidates the cache and delegates to the wrapped store.
func (s *Store) Heartbeat(leaseID string, now uint64) bool {
	ok := s.LeaseStore.Heartbeat(leaseID, now)
	s.invalidate()
	return ok
}

// EvictExpired delegates to the wrapped store and invalidates the cache when
// at least one lease was evicted.
func (s *Store) EvictExpired(now uint64) int {
	count := s.LeaseStore.EvictExpired(now)
	if count > 0 {
		s.invalidate()
	}
	return count
}

func (s *Store) invalidate() {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := s.rdb.Del(ctx, cacheKey).Err(); err != nil && s.log != nil {
		s.log.WithError(err).Warn("cache invalidation failed")
	}
}
