package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/waythor-lab/klock/internal/facade"
	"github.com/waythor-lab/klock/internal/kernel"
	"github.com/waythor-lab/klock/internal/store/memory"
	"github.com/waythor-lab/klock/internal/types"
)

// manifestDTO is the JSON wire shape of an IntentManifest read from stdin.
type manifestDTO struct {
	SessionID string      `json:"session_id"`
	AgentID   string      `json:"agent_id"`
	Intents   []tripleDTO `json:"intents"`
}

type tripleDTO struct {
	ID         string      `json:"id"`
	Subject    string      `json:"subject"`
	Predicate  string      `json:"predicate"`
	Object     resourceDTO `json:"object"`
	Timestamp  uint64      `json:"timestamp"`
	Confidence string      `json:"confidence"`
	SessionID  string      `json:"session_id"`
}

type resourceDTO struct {
	ResourceType string `json:"resource_type"`
	Path         string `json:"path"`
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check for conflicts from a JSON intent manifest (stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(os.Stderr, "Reading intent manifest from stdin...")

			input, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}

			var dto manifestDTO
			if err := json.Unmarshal(input, &dto); err != nil {
				return fmt.Errorf("invalid JSON manifest: %w", err)
			}

			manifest := kernel.IntentManifest{
				SessionID: dto.SessionID,
				AgentID:   dto.AgentID,
				Intents:   make([]types.SPOTriple, 0, len(dto.Intents)),
			}
			for _, t := range dto.Intents {
				manifest.Intents = append(manifest.Intents, types.SPOTriple{
					ID:        t.ID,
					Subject:   t.Subject,
					Predicate: types.ParsePredicate(t.Predicate),
					Object: types.ResourceRef{
						ResourceType: types.ParseResourceType(t.Object.ResourceType),
						Path:         t.Object.Path,
					},
					Timestamp:  t.Timestamp,
					Confidence: types.ParseConfidence(t.Confidence),
					SessionID:  t.SessionID,
				})
			}

			client := facade.New(memory.New())
			verdict := client.DeclareIntent(manifest)

			out, err := json.MarshalIndent(verdictDTO(verdict), "", "  ")
			if err != nil {
				return fmt.Errorf("encode verdict: %w", err)
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

func verdictDTO(v kernel.Verdict) map[string]interface{} {
	out := map[string]interface{}{
		"agent_id":   v.AgentID,
		"session_id": v.SessionID,
		"status":     v.Status.String(),
		"reason":     v.Reason,
		"held_by":    v.HeldBy,
		"conflicts":  v.Conflicts,
	}
	if v.RetryAfterMS != nil {
		out["retry_after_ms"] = *v.RetryAfterMS
	}
	return out
}
