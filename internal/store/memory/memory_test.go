package memory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waythor-lab/klock/internal/store/memory"
	"github.com/waythor-lab/klock/internal/types"
)

func res(path string) types.ResourceRef {
	return types.ResourceRef{ResourceType: types.File, Path: path}
}

func TestAcquireGrantsWhenNoConflict(t *testing.T) {
	s := memory.New()
	s.RegisterAgentPriority("agent-a", 100)

	result := s.Acquire("agent-a", "s1", res("/a.ts"), types.Mutates, 5000, 1000)
	require.True(t, result.Success)
	assert.Equal(t, "agent-a", result.Lease.AgentID)
	assert.Equal(t, types.Active, result.Lease.State)
	assert.Len(t, s.ActiveLeases(), 1)
}

func TestAcquireReentrantSameAgentGranted(t *testing.T) {
	s := memory.New()
	s.RegisterAgentPriority("agent-a", 100)

	first := s.Acquire("agent-a", "s1", res("/a.ts"), types.Mutates, 5000, 1000)
	require.True(t, first.Success)

	second := s.Acquire("agent-a", "s1", res("/a.ts"), types.Mutates, 5000, 1001)
	assert.True(t, second.Success)
}

func TestAcquireDiesWithoutRegisteredPriority(t *testing.T) {
	s := memory.New()
	s.RegisterAgentPriority("holder", 100)
	first := s.Acquire("holder", "s1", res("/a.ts"), types.Mutates, 5000, 1000)
	require.True(t, first.Success)

	result := s.Acquire("unregistered", "s2", res("/a.ts"), types.Consumes, 5000, 1001)
	require.False(t, result.Success)
	assert.Equal(t, types.FailureDie, result.Reason)
	require.NotNil(t, result.WaitTimeMS)
}

func TestAcquireWaitsForYoungerHolder(t *testing.T) {
	s := memory.New()
	s.RegisterAgentPriority("older", 100)
	s.RegisterAgentPriority("younger", 200)

	first := s.Acquire("younger", "s1", res("/a.ts"), types.Mutates, 5000, 1000)
	require.True(t, first.Success)

	result := s.Acquire("older", "s2", res("/a.ts"), types.Mutates, 5000, 1001)
	require.False(t, result.Success)
	assert.Equal(t, types.FailureWait, result.Reason)
	assert.Nil(t, result.WaitTimeMS)
}

func TestReleaseIsIdempotent(t *testing.T) {
	s := memory.New()
	s.RegisterAgentPriority("agent-a", 100)
	granted := s.Acquire("agent-a", "s1", res("/a.ts"), types.Mutates, 5000, 1000)
	require.True(t, granted.Success)

	assert.True(t, s.Release(granted.Lease.ID))
	assert.False(t, s.Release(granted.Lease.ID))
	assert.False(t, s.Release("unknown"))
}

func TestHeartbeatSlidesExpiryWithoutChangingTTL(t *testing.T) {
	s := memory.New()
	s.RegisterAgentPriority("agent-a", 100)
	granted := s.Acquire("agent-a", "s1", res("/a.ts"), types.Mutates, 5000, 1000)
	require.True(t, granted.Success)

	assert.True(t, s.Heartbeat(granted.Lease.ID, 4000))

	leases := s.ActiveLeases()
	require.Len(t, leases, 1)
	assert.Equal(t, uint64(5000), leases[0].TTL)
	assert.Equal(t, uint64(9000), leases[0].ExpiresAt)
	assert.Equal(t, uint64(4000), leases[0].LastHeartbeat)
}

func TestHeartbeatFailsOnReleasedLease(t *testing.T) {
	s := memory.New()
	s.RegisterAgentPriority("agent-a", 100)
	granted := s.Acquire("agent-a", "s1", res("/a.ts"), types.Mutates, 5000, 1000)
	require.True(t, granted.Success)
	require.True(t, s.Release(granted.Lease.ID))

	assert.False(t, s.Heartbeat(granted.Lease.ID, 2000))
}

func TestEvictExpiredTransitionsPastDeadlineLeases(t *testing.T) {
	s := memory.New()
	s.RegisterAgentPriority("agent-a", 100)
	granted := s.Acquire("agent-a", "s1", res("/a.ts"), types.Mutates, 1000, 1000)
	require.True(t, granted.Success)

	evicted := s.EvictExpired(5000)
	assert.Equal(t, 1, evicted)
	assert.Empty(t, s.ActiveLeases())
}

func TestAcquireEvictsExpiredBeforeScheduling(t *testing.T) {
	s := memory.New()
	s.RegisterAgentPriority("older", 100)
	s.RegisterAgentPriority("younger", 200)

	held := s.Acquire("younger", "s1", res("/a.ts"), types.Mutates, 500, 1000)
	require.True(t, held.Success)

	// by now=2000 the first lease (ttl 500, acquired at 1000) has expired.
	result := s.Acquire("older", "s2", res("/a.ts"), types.Mutates, 5000, 2000)
	assert.True(t, result.Success)
}
