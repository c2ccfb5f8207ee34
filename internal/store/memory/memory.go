// Package memory provides a non-durable LeaseStore for tests, the CLI's
// default "memory" backend, and single-process deployments that don't need
// leases to survive a restart.
package memory

import (
	"sync"

	"github.com/google/uuid"

	"github.com/waythor-lab/klock/internal/scheduler"
	"github.com/waythor-lab/klock/internal/store"
	"github.com/waythor-lab/klock/internal/types"
)

// Store is a mutex-guarded, map-backed LeaseStore.
type Store struct {
	mu         sync.Mutex
	leases     map[string]types.Lease
	priorities map[string]uint64
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{
		leases:     make(map[string]types.Lease),
		priorities: make(map[string]uint64),
	}
}

var _ store.LeaseStore = (*Store)(nil)

// RegisterAgentPriority records an agent's priority timestamp.
func (s *Store) RegisterAgentPriority(agentID string, priority uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.priorities[agentID] = priority
}

// Priorities returns a snapshot copy of the priority map.
func (s *Store) Priorities() map[string]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]uint64, len(s.priorities))
	for k, v := range s.priorities {
		out[k] = v
	}
	return out
}

// Acquire evicts expired leases, consults the Wait-Die scheduler, and grants
// or denies the request accordingly.
func (s *Store) Acquire(agentID, sessionID string, resource types.ResourceRef, predicate types.Predicate, ttl, now uint64) types.LeaseResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpiredLocked(now)

	verdict := scheduler.Decide(agentID, predicate, resource, s.activeLeasesLocked(), s.priorities)

	switch verdict.Status {
	case scheduler.Wait:
		return types.LeaseResult{
			Reason: types.FailureWait,
		}
	case scheduler.Die:
		return types.LeaseResult{
			Reason:     types.FailureDie,
			WaitTimeMS: verdict.RetryAfterMS,
		}
	default:
		id := "lease_" + agentID + "_" + uuid.NewString()
		lease := types.NewLease(id, agentID, sessionID, resource, predicate, ttl, now)
		s.leases[id] = lease
		return types.LeaseResult{Success: true, Lease: lease}
	}
}

// Release marks an Active lease Released; a no-op for any other state.
func (s *Store) Release(leaseID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	lease, ok := s.leases[leaseID]
	if !ok || lease.State != types.Active {
		return false
	}
	lease.State = types.Released
	s.leases[leaseID] = lease
	return true
}

// Heartbeat renews an Active lease's expiry without changing its ttl.
func (s *Store) Heartbeat(leaseID string, now uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	lease, ok := s.leases[leaseID]
	if !ok || lease.State != types.Active {
		return false
	}
	lease.LastHeartbeat = now
	lease.ExpiresAt = now + lease.TTL
	s.leases[leaseID] = lease
	return true
}

// ActiveLeases returns every currently Active lease.
func (s *Store) ActiveLeases() []types.Lease {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLeasesLocked()
}

func (s *Store) activeLeasesLocked() []types.Lease {
	out := make([]types.Lease, 0, len(s.leases))
	for _, l := range s.leases {
		if l.State == types.Active {
			out = append(out, l)
		}
	}
	return out
}

// EvictExpired transitions every Active, past-expiry lease to Expired.
func (s *Store) EvictExpired(now uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evictExpiredLocked(now)
}

func (s *Store) evictExpiredLocked(now uint64) int {
	count := 0
	for id, l := range s.leases {
		if l.State == types.Active && l.ExpiresAt < now {
			l.State = types.Expired
			s.leases[id] = l
			count++
		}
	}
	return count
}
