// Package scheduler implements Wait-Die deadlock avoidance: given a
// requester's priority timestamp and the priorities of agents already
// holding conflicting leases, decide whether the request should be
// Granted, should Wait for the holder to release, or must Die and retry
// later under its same registered priority.
package scheduler

import (
	"fmt"

	"github.com/waythor-lab/klock/internal/conflict"
	"github.com/waythor-lab/klock/internal/types"
)

// VerdictStatus is the scheduler's decision.
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

// dieRetryBackoffMS is the base backoff handed back on every Die verdict.
const dieRetryBackoffMS = uint64(1000)

// Verdict is the scheduler's decision plus the context behind it.
type Verdict struct {
	Status       VerdictStatus
	Reason       string
	HeldBy       string
	RetryAfterMS *uint64
}

// Decide applies Wait-Die deadlock avoidance for one requesting agent against
// the active leases on one resource.
//
// Lower priority values mean older/senior agents. A request with no
// conflicting holder is Granted. Otherwise an agent with no registered
// priority Dies — priority is required to guarantee deadlock safety. Among conflicting holders with a known priority: if the
// requester is older than the holder, it Waits; otherwise it Dies. Holders
// with no registered priority are skipped (treated as younger than any
// registered requester) rather than forcing a Die.
func Decide(requestingAgentID string, requestingPredicate types.Predicate, resource types.ResourceRef, activeLeases []types.Lease, priorities map[string]uint64) Verdict {
	key := resource.Key()

	var conflictingHolders []types.Lease
	for _, lease := range activeLeases {
		if lease.Resource.Key() != key {
			continue
		}
		if lease.AgentID == requestingAgentID {
			continue
		}
		if conflict.CheckPair(lease.Predicate, requestingPredicate) {
			conflictingHolders = append(conflictingHolders, lease)
		}
	}

	if len(conflictingHolders) == 0 {
		return Verdict{Status: Granted}
	}

	requesterPriority, known := priorities[requestingAgentID]
	if !known {
		backoff := dieRetryBackoffMS
		return Verdict{
			Status:       Die,
			Reason:       "missing agent priority; cannot ensure deadlock safety",
			RetryAfterMS: &backoff,
		}
	}

	for _, holder := range conflictingHolders {
		holderPriority, known := priorities[holder.AgentID]
		if !known {
			continue
		}

		if requesterPriority < holderPriority {
			return Verdict{
				Status: Wait,
				Reason: fmt.Sprintf("senior (%d) waiting for junior (%d) to complete", requesterPriority, holderPriority),
				HeldBy: holder.AgentID,
			}
		}

		backoff := dieRetryBackoffMS
		return Verdict{
			Status:       Die,
			Reason:       fmt.Sprintf("conflict: senior (%d) vs junior (%d); junior must die", holderPriority, requesterPriority),
			HeldBy:       holder.AgentID,
			RetryAfterMS: &backoff,
		}
	}

	return Verdict{Status: Granted}
}
