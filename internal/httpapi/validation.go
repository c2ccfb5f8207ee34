package httpapi

import (
	"fmt"
	"strings"

	"github.com/waythor-lab/klock/internal/types"
)

func validatePredicate(s string) error {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for _, name := range types.ValidPredicateNames() {
		if name == upper {
			return nil
		}
	}
	return fmt.Errorf("invalid predicate %q, must be one of: %s", s, strings.Join(types.ValidPredicateNames(), ", "))
}

func validateResourceType(s string) error {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for _, name := range types.ValidResourceTypeNames() {
		if name == upper {
			return nil
		}
	}
	return fmt.Errorf("invalid resource_type %q, must be one of: %s", s, strings.Join(types.ValidResourceTypeNames(), ", "))
}

// registerAgentRequest registers an agent's Wait-Die priority.
type registerAgentRequest struct {
	AgentID  string `json:"agent_id"`
	Priority uint64 `json:"priority"`
}

func (r registerAgentRequest) validate() error {
	if strings.TrimSpace(r.AgentID) == "" {
		return fmt.Errorf("agent_id is required")
	}
	return nil
}

// acquireLeaseRequest requests a lease on one resource.
type acquireLeaseRequest struct {
	AgentID      string `json:"agent_id"`
	SessionID    string `json:"session_id"`
	ResourceType string `json:"resource_type"`
	ResourcePath string `json:"resource_path"`
	Predicate    string `json:"predicate"`
	TTL          uint64 `json:"ttl"`
}

func (r acquireLeaseRequest) validate() error {
	if strings.TrimSpace(r.AgentID) == "" {
		return fmt.Errorf("agent_id is required")
	}
	if strings.TrimSpace(r.SessionID) == "" {
		return fmt.Errorf("session_id is required")
	}
	if strings.TrimSpace(r.ResourcePath) == "" {
		return fmt.Errorf("resource_path is required")
	}
	if err := validatePredicate(r.Predicate); err != nil {
		return err
	}
	if err := validateResourceType(r.ResourceType); err != nil {
		return err
	}
	if r.TTL == 0 {
		return fmt.Errorf("ttl must be greater than 0")
	}
	return nil
}

// intentItem is one entry of a declareIntentRequest's intents batch.
type intentItem struct {
	Predicate    string `json:"predicate"`
	ResourceType string `json:"resource_type"`
	ResourcePath string `json:"resource_path"`
	Confidence   string `json:"confidence,omitempty"`
}

// declareIntentRequest declares a batch of intents under one session.
type declareIntentRequest struct {
	SessionID string       `json:"session_id"`
	AgentID   string       `json:"agent_id"`
	Intents   []intentItem `json:"intents"`
}

func (r declareIntentRequest) validate() error {
	if strings.TrimSpace(r.AgentID) == "" {
		return fmt.Errorf("agent_id is required")
	}
	if strings.TrimSpace(r.SessionID) == "" {
		return fmt.Errorf("session_id is required")
	}
	if len(r.Intents) == 0 {
		return fmt.Errorf("intents must not be empty")
	}
	for i, intent := range r.Intents {
		if err := validatePredicate(intent.Predicate); err != nil {
			return fmt.Errorf("intents[%d]: %w", i, err)
		}
		if err := validateResourceType(intent.ResourceType); err != nil {
			return fmt.Errorf("intents[%d]: %w", i, err)
		}
	}
	return nil
}
