// Package facade exposes Client, the single ergonomic entry point
// client code and the HTTP layer use: one LeaseStore plus the in-flight
// active-intent list needed to run the kernel, behind one exclusive lock.
package facade

import (
	"fmt"
	"sync"
	"time"

	"github.com/waythor-lab/klock/internal/kernel"
	"github.com/waythor-lab/klock/internal/store"
	"github.com/waythor-lab/klock/internal/types"
)

// Client is the main entry point for coordinating agents: it owns a
// LeaseStore, the list of currently active (granted) intents, and an id
// counter for generated intent ids.
type Client struct {
	mu            sync.Mutex
	store         store.LeaseStore
	activeIntents []types.SPOTriple
	idCounter     uint64
}

// New wraps store in a Client with no active intents.
func New(s store.LeaseStore) *Client {
	return &Client{store: s}
}

// NowMS returns the current time in Unix milliseconds — the clock every
// client operation stamps leases and intents with.
func NowMS() uint64 {
	return uint64(time.Now().UnixMilli())
}

// RegisterAgent records an agent's priority timestamp. Lower priorities are
// senior/older and win Wait-Die ties.
func (c *Client) RegisterAgent(agentID string, priority uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.RegisterAgentPriority(agentID, priority)
}

// ListAgentPriorities returns a snapshot of every registered agent and its
// priority.
func (c *Client) ListAgentPriorities() map[string]uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Priorities()
}

// DeclareIntent evaluates manifest against a fresh StateSnapshot and, if
// Granted, appends its intents to the active list so later declarations can
// conflict against them.
func (c *Client) DeclareIntent(manifest kernel.IntentManifest) kernel.Verdict {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := kernel.StateSnapshot{
		ActiveLeases:  c.liveActiveLeases(),
		ActiveIntents: append([]types.SPOTriple(nil), c.activeIntents...),
		Priorities:    c.store.Priorities(),
	}

	verdict := kernel.Execute(snapshot, manifest)

	if verdict.Status == kernel.Granted {
		c.activeIntents = append(c.activeIntents, manifest.Intents...)
	}

	return verdict
}

// AcquireLease attempts to acquire a lease on resource.
func (c *Client) AcquireLease(agentID, sessionID string, resource types.ResourceRef, predicate types.Predicate, ttl uint64) types.LeaseResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Acquire(agentID, sessionID, resource, predicate, ttl, NowMS())
}

// ReleaseLease releases a held lease by id and prunes any active intents
// that were declared under that same id.
func (c *Client) ReleaseLease(leaseID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	filtered := c.activeIntents[:0]
	for _, intent := range c.activeIntents {
		if intent.ID != leaseID {
			filtered = append(filtered, intent)
		}
	}
	c.activeIntents = filtered

	return c.store.Release(leaseID)
}

// HeartbeatLease renews an active lease's expiry.
func (c *Client) HeartbeatLease(leaseID string, now uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Heartbeat(leaseID, now)
}

// ActiveLeases returns every currently active lease.
func (c *Client) ActiveLeases() []types.Lease {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.ActiveLeases()
}

// EvictExpired evicts every past-deadline lease and returns how many were
// evicted.
func (c *Client) EvictExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.EvictExpired(NowMS())
}

// liveActiveLeases returns the authoritative active-lease list for a
// verdict decision. If the store is cache-wrapped, this bypasses the cache
// entirely — only the reporting paths (ActiveLeases, GET /leases) may read
// a cached, potentially stale list.
func (c *Client) liveActiveLeases() []types.Lease {
	if lr, ok := c.store.(store.LiveReader); ok {
		return lr.LiveActiveLeases()
	}
	return c.store.ActiveLeases()
}

// NextID generates the next unique intent id, "klock_{n}". Lease ids are
// generated by the store on Acquire.
func (c *Client) NextID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.idCounter++
	return fmt.Sprintf("klock_%d", c.idCounter)
}
