// Package store defines the LeaseStore contract shared by the in-memory,
// Postgres-backed, and cache-wrapped implementations.
package store

import "github.com/waythor-lab/klock/internal/types"

// LeaseStore is the storage contract for lease acquisition and bookkeeping.
// Every method is synchronous from the caller's point of view — a
// persistent implementation may block on I/O, but never exposes a
// suspension point mid-operation that could interleave with another call.
type LeaseStore interface {
	// Acquire attempts to acquire a lease on resource for predicate. It
	// always evicts expired leases first, then resolves the request via
	// the Wait-Die scheduler.
	Acquire(agentID, sessionID string, resource types.ResourceRef, predicate types.Predicate, ttl, now uint64) types.LeaseResult

	// Release marks an active lease Released. Idempotent: releasing a
	// lease that is not Active (already released, expired, revoked, or
	// unknown) is a no-op that reports false.
	Release(leaseID string) bool

	// Heartbeat slides an active lease's expiry to now+ttl without
	// mutating its configured ttl. Returns false if the lease is not
	// Active.
	Heartbeat(leaseID string, now uint64) bool

	// ActiveLeases returns every currently Active lease.
	ActiveLeases() []types.Lease

	// EvictExpired transitions every Active lease whose expiry has passed
	// to Expired and returns the count evicted.
	EvictExpired(now uint64) int

	// RegisterAgentPriority records (or overwrites) an agent's priority
	// timestamp. Lower values are senior/older.
	RegisterAgentPriority(agentID string, priority uint64)

	// Priorities returns a snapshot of the full agent-id to priority map.
	Priorities() map[string]uint64
}

// LiveReader is implemented by a LeaseStore that wraps another store with a
// cache layer in front of ActiveLeases. LiveActiveLeases always reads
// through to the wrapped store, bypassing the cache, for callers (the
// kernel's decision path) that cannot tolerate stale reads.
type LiveReader interface {
	LiveActiveLeases() []types.Lease
}
