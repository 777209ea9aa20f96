// Package export builds the end-of-session report and talks to the
// companion backend for per-day effect resolution.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/vreyes/stakecraft/engine/session"
	"github.com/vreyes/stakecraft/types"
)

// SessionMetadata identifies one exported playthrough.
type SessionMetadata struct {
	SessionID  string           `json:"session_id"`
	Title      string           `json:"title"`
	Version    string           `json:"version"`
	PlayerName string           `json:"player_name"`
	Status     types.GameStatus `json:"status"`
	StartedAt  time.Time        `json:"started_at"`
	ExportedAt time.Time        `json:"exported_at"`
}

// Export is the full session report: metadata, every log, the final
// state, and the comparison set with unmatched expectations closed out.
type Export struct {
	Metadata    SessionMetadata          `json:"session_metadata"`
	FinalState  *types.GameState         `json:"final_state"`
	Comparisons []types.ComparisonResult `json:"comparisons"`
	Objectives  []types.ObjectiveSnapshot `json:"objectives"`
}

// Build assembles the report from a session. The comparison set is
// recomputed with NOT_DONE included so every registered expectation
// has a verdict.
func Build(s *session.Session, title, version string) Export {
	return Export{
		Metadata: SessionMetadata{
			SessionID:  s.ID,
			Title:      title,
			Version:    version,
			PlayerName: s.State().PlayerName,
			Status:     s.Status(),
			StartedAt:  s.StartedAt(),
			ExportedAt: time.Now().UTC(),
		},
		FinalState:  s.State(),
		Comparisons: s.FinalComparisons(),
		Objectives:  s.Objectives(),
	}
}

// WriteFile writes the report as indented JSON.
func WriteFile(e Export, path string) error {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	return nil
}
