// Package kernel implements the pure manifest evaluator: given one agent's
// batch of declared intents and a snapshot of system state (active leases,
// active intents, agent priorities), it reduces them to a single verdict
// using "worst wins" — Die dominates Wait dominates Granted.
package kernel

import (
	"fmt"

	"github.com/waythor-lab/klock/internal/conflict"
	"github.com/waythor-lab/klock/internal/scheduler"
	"github.com/waythor-lab/klock/internal/types"
)

// IntentManifest is one agent's batch of declared intents within a session.
type IntentManifest struct {
	SessionID string
	AgentID   string
	Intents   []types.SPOTriple
}

// StateSnapshot is the system state a manifest is evaluated against. It is
// assembled fresh for each declare-intent call; the kernel never mutates it.
type StateSnapshot struct {
	ActiveLeases  []types.Lease
	ActiveIntents []types.SPOTriple
	Priorities    map[string]uint64
}

// VerdictStatus mirrors scheduler.VerdictStatus at the manifest level.
type VerdictStatus int

const (
	Granted VerdictStatus = iota
	Wait
	Die
)

func (s VerdictStatus) String() string {
	switch s {
	case Granted:
		return "GRANTED"
	case Wait:
		return "WAIT"
	case Die:
		return "DIE"
	default:
		return "UNKNOWN"
	}
}

// Verdict is the result of evaluating an IntentManifest against a
// StateSnapshot.
type Verdict struct {
	AgentID      string
	SessionID    string
	Status       VerdictStatus
	Reason       string
	HeldBy       string
	Conflicts    []string
	RetryAfterMS *uint64
}

// Execute reduces every intent in manifest against state to one verdict.
//
// For each intent: first check it against the active intents already on
// record (conflict.Check); if that also names a conflict, resolve it via
// the Wait-Die scheduler against active leases. If there was no intent-level
// conflict, the scheduler is still consulted against active leases — a
// lease can conflict even when no other agent has declared a colliding
// intent. Across the whole manifest, the worst status seen wins: once Die
// is reached it can never be downgraded back to Wait or Granted by a later,
// more permissive intent.
func Execute(state StateSnapshot, manifest IntentManifest) Verdict {
	var conflicts []string
	worst := Granted
	var reason, heldBy string
	var retryAfterMS *uint64

	applySchedulerVerdict := func(v scheduler.Verdict) {
		switch v.Status {
		case scheduler.Wait:
			if worst != Die {
				worst = Wait
				reason = v.Reason
				heldBy = v.HeldBy
			}
		case scheduler.Die:
			worst = Die
			reason = v.Reason
			heldBy = v.HeldBy
			retryAfterMS = v.RetryAfterMS
		case scheduler.Granted:
		}
	}

	for _, intent := range manifest.Intents {
		intentConflict := conflict.Check(intent, state.ActiveIntents)

		if intentConflict.Conflict {
			conflicts = append(conflicts, intentConflict.Reason)
			v := scheduler.Decide(manifest.AgentID, intent.Predicate, intent.Object, state.ActiveLeases, state.Priorities)
			applySchedulerVerdict(v)
			continue
		}

		leaseVerdict := scheduler.Decide(manifest.AgentID, intent.Predicate, intent.Object, state.ActiveLeases, state.Priorities)
		if leaseVerdict.Status != scheduler.Granted {
			conflicts = append(conflicts, fmt.Sprintf("conflict with active lease on %s", intent.Object.Key()))
			applySchedulerVerdict(leaseVerdict)
		}
	}

	return Verdict{
		AgentID:      manifest.AgentID,
		SessionID:    manifest.SessionID,
		Status:       worst,
		Reason:       reason,
		HeldBy:       heldBy,
		Conflicts:    conflicts,
		RetryAfterMS: retryAfterMS,
	}
}
