package conflict_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/waythor-lab/klock/internal/conflict"
	"github.com/waythor-lab/klock/internal/types"
)

func TestCheckPairMatrix(t *testing.T) {
	cases := []struct {
		held, requesting types.Predicate
		wantConflict     bool
	}{
		{types.Provides, types.Consumes, false},
		{types.Consumes, types.Consumes, false},
		{types.Provides, types.Provides, true},
		{types.Consumes, types.Mutates, true},
		{types.Mutates, types.Consumes, true},
		{types.DependsOn, types.Consumes, false},
		{types.DependsOn, types.Mutates, true},
		{types.Deletes, types.Deletes, true},
		{types.Renames, types.Consumes, true},
	}
	for _, c := range cases {
		got := conflict.CheckPair(c.held, c.requesting)
		assert.Equalf(t, c.wantConflict, got, "held=%s requesting=%s", c.held, c.requesting)
	}
}

func triple(subject, session string, predicate types.Predicate, resourceType types.ResourceType, path string) types.SPOTriple {
	return types.SPOTriple{
		ID:        "t1",
		Subject:   subject,
		Predicate: predicate,
		Object:    types.ResourceRef{ResourceType: resourceType, Path: path},
		SessionID: session,
	}
}

func TestCheckSkipsDifferentResource(t *testing.T) {
	existing := []types.SPOTriple{triple("agent-a", "s1", types.Mutates, types.File, "/a.ts")}
	newTriple := triple("agent-b", "s2", types.Mutates, types.File, "/b.ts")
	assert.Equal(t, conflict.OK, conflict.Check(newTriple, existing))
}

func TestCheckSkipsReentrantSameAgentSameSession(t *testing.T) {
	existing := []types.SPOTriple{triple("agent-a", "s1", types.Mutates, types.File, "/a.ts")}
	newTriple := triple("agent-a", "s1", types.Mutates, types.File, "/a.ts")
	assert.Equal(t, conflict.OK, conflict.Check(newTriple, existing))
}

func TestCheckConflictsAcrossAgents(t *testing.T) {
	existing := []types.SPOTriple{triple("agent-a", "s1", types.Mutates, types.File, "/a.ts")}
	newTriple := triple("agent-b", "s2", types.Consumes, types.File, "/a.ts")
	got := conflict.Check(newTriple, existing)
	assert.True(t, got.Conflict)
	assert.NotEmpty(t, got.Reason)
}

func TestCheckSameAgentDifferentSessionStillConflicts(t *testing.T) {
	existing := []types.SPOTriple{triple("agent-a", "s1", types.Mutates, types.File, "/a.ts")}
	newTriple := triple("agent-a", "s2", types.Mutates, types.File, "/a.ts")
	assert.True(t, conflict.Check(newTriple, existing).Conflict)
}

func TestCheckAgainstLeasesSkipsReentrant(t *testing.T) {
	leases := []types.Lease{{
		AgentID:   "agent-a",
		SessionID: "s1",
		Resource:  types.ResourceRef{ResourceType: types.File, Path: "/a.ts"},
		Predicate: types.Mutates,
	}}
	got := conflict.CheckAgainstLeases("agent-a", "s1", types.Mutates, "FILE:/a.ts", leases)
	assert.Equal(t, conflict.OK, got)
}

func TestCheckAgainstLeasesConflicts(t *testing.T) {
	leases := []types.Lease{{
		AgentID:   "agent-a",
		SessionID: "s1",
		Resource:  types.ResourceRef{ResourceType: types.File, Path: "/a.ts"},
		Predicate: types.Mutates,
	}}
	got := conflict.CheckAgainstLeases("agent-b", "s2", types.Consumes, "FILE:/a.ts", leases)
	assert.True(t, got.Conflict)
}
