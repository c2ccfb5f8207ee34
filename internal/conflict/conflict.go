// Package conflict implements the stateless compatibility check between
// predicates held on the same resource — the "can these two operations
// coexist" question that both intent declarations and lease acquisition
// run through before the Wait-Die scheduler ever sees them.
package conflict

import (
	"fmt"

	"github.com/waythor-lab/klock/internal/types"
)

// Result is the outcome of a conflict check.
type Result struct {
	Conflict bool
	Reason   string
}

// OK is the zero-value, no-conflict result.
var OK = Result{}

// compatibilityMatrix is indexed [held][requesting]. true means compatible
// (no conflict). Row/column order matches types.Predicate's iota order:
// Provides, Consumes, Mutates, Deletes, DependsOn, Renames.
var compatibilityMatrix = [6][6]bool{
	/* Provides  */ {false, true, false, false, true, false},
	/* Consumes  */ {true, true, false, false, true, false},
	/* Mutates   */ {false, false, false, false, false, false},
	/* Deletes   */ {false, false, false, false, false, false},
	/* DependsOn */ {true, true, false, false, true, false},
	/* Renames   */ {false, false, false, false, false, false},
}

// CheckPair reports whether a held predicate conflicts with a requesting
// predicate on the same resource. O(1) matrix lookup.
func CheckPair(held, requesting types.Predicate) bool {
	return !compatibilityMatrix[held.Index()][requesting.Index()]
}

// Check tests a new intent triple against a slice of existing triples,
// skipping entries for a different resource and reentrant holds by the same
// agent within the same session.
func Check(newTriple types.SPOTriple, existing []types.SPOTriple) Result {
	key := newTriple.Object.Key()

	for _, e := range existing {
		if e.Object.Key() != key {
			continue
		}
		if e.Subject == newTriple.Subject && e.SessionID == newTriple.SessionID {
			continue
		}
		if CheckPair(e.Predicate, newTriple.Predicate) {
			return Result{
				Conflict: true,
				Reason: fmt.Sprintf(
					"agent %s's %s operation conflicts with agent %s's held %s operation on %s",
					newTriple.Subject, newTriple.Predicate, e.Subject, e.Predicate, newTriple.Object.Key(),
				),
			}
		}
	}
	return OK
}

// CheckAgainstLeases tests a requested predicate against a slice of active
// leases, skipping leases for a different resource and reentrant holds by
// the same agent within the same session.
func CheckAgainstLeases(requestingAgent, requestingSession string, requestingPredicate types.Predicate, resourceKey string, activeLeases []types.Lease) Result {
	for _, l := range activeLeases {
		if l.Resource.Key() != resourceKey {
			continue
		}
		if l.AgentID == requestingAgent && l.SessionID == requestingSession {
			continue
		}
		if CheckPair(l.Predicate, requestingPredicate) {
			return Result{
				Conflict: true,
				Reason:   fmt.Sprintf("conflict: %s vs held %s", requestingPredicate, l.Predicate),
			}
		}
	}
	return OK
}
