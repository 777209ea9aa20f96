// Package objectives evaluates win and fail conditions over the live
// game state and tracks which objectives the player can currently see.
package objectives

import (
	"strings"

	"github.com/vreyes/stakecraft/types"
)

// Eval evaluates one condition against the state. Unknown metric
// names evaluate false rather than erroring: content mistakes should
// surface in pack validation, not crash a running session.
func Eval(gs *types.GameState, c types.Condition) bool {
	switch cond := c.(type) {
	case types.GlobalMetric:
		v, ok := globalMetric(gs, cond.Metric)
		return ok && compare(v, cond.Op, cond.Value)
	case types.StakeholderMetric:
		sh := findStakeholder(gs, cond.StakeholderID)
		if sh == nil {
			return false
		}
		v, ok := stakeholderMetric(sh, cond.Metric)
		return ok && compare(v, cond.Op, cond.Value)
	case types.CompletedSequence:
		return contains(gs.CompletedSequences, cond.SequenceID)
	case types.CompletedScenario:
		return contains(gs.CompletedScenarios, cond.ScenarioID)
	case types.ActionCount:
		return countActions(gs, cond) >= cond.MinCount
	}
	return false
}

// EvalGroup evaluates a condition group: every condition in All must
// hold, and when Any is non-empty at least one of it must hold. An
// entirely empty group holds trivially.
func EvalGroup(gs *types.GameState, g *types.ConditionGroup) bool {
	if g == nil {
		return false
	}
	for _, c := range g.All {
		if !Eval(gs, c) {
			return false
		}
	}
	if len(g.Any) == 0 {
		return true
	}
	for _, c := range g.Any {
		if Eval(gs, c) {
			return true
		}
	}
	return false
}

// Status derives an objective's current status. Failure is checked
// first and wins over success when both trees hold at once.
func Status(gs *types.GameState, def types.ObjectiveDefinition) types.ObjectiveStatus {
	if def.Failure != nil && EvalGroup(gs, def.Failure) {
		return types.ObjectiveFailed
	}
	if EvalGroup(gs, &def.Success) {
		return types.ObjectiveCompleted
	}
	return types.ObjectiveInProgress
}

func globalMetric(gs *types.GameState, name string) (int, bool) {
	switch name {
	case "budget":
		return gs.Budget, true
	case "reputation":
		return gs.Reputation, true
	case "progress":
		return gs.ProjectProgress, true
	case "day":
		return gs.Day, true
	}
	return 0, false
}

func stakeholderMetric(sh *types.Stakeholder, name string) (int, bool) {
	switch name {
	case "trust":
		return sh.Trust, true
	case "support":
		return sh.Support, true
	}
	return 0, false
}

func compare(v int, op types.CompareOp, want int) bool {
	switch op {
	case types.OpGE:
		return v >= want
	case types.OpLE:
		return v <= want
	case types.OpGT:
		return v > want
	case types.OpLT:
		return v < want
	case types.OpEQ:
		return v == want
	}
	return false
}

func countActions(gs *types.GameState, cond types.ActionCount) int {
	n := 0
	for _, a := range gs.CanonicalActions {
		if a.ActionType != cond.ActionType {
			continue
		}
		if cond.TargetRefIncludes != "" && !strings.Contains(a.TargetRef, cond.TargetRefIncludes) {
			continue
		}
		n++
	}
	return n
}

func findStakeholder(gs *types.GameState, id string) *types.Stakeholder {
	for i := range gs.Stakeholders {
		if gs.Stakeholders[i].ID == id {
			return &gs.Stakeholders[i]
		}
	}
	return nil
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// Tracker maintains which objectives are revealed and whether any
// visible objective changed status since the player last looked.
// Visibility is monotonic: once revealed, always revealed.
type Tracker struct {
	defs     []types.ObjectiveDefinition
	revealed map[string]bool
	statuses map[string]types.ObjectiveStatus
	unseen   map[string]bool
}

// NewTracker builds a tracker over the pack's objective definitions.
// Objectives with no RevealedBy gate are visible from the start.
func NewTracker(defs []types.ObjectiveDefinition) *Tracker {
	t := &Tracker{
		defs:     defs,
		revealed: make(map[string]bool, len(defs)),
		statuses: make(map[string]types.ObjectiveStatus, len(defs)),
		unseen:   make(map[string]bool, len(defs)),
	}
	for _, d := range defs {
		if len(d.RevealedBy) == 0 {
			t.revealed[d.ID] = true
		}
		t.statuses[d.ID] = types.ObjectivePending
	}
	return t
}

// SequenceCompleted reveals objectives gated on the finished sequence
// (or on the "*" wildcard) and re-evaluates every visible objective.
// Returns the ids whose status changed.
func (t *Tracker) SequenceCompleted(gs *types.GameState, sequenceID string) []string {
	for _, d := range t.defs {
		for _, gate := range d.RevealedBy {
			if gate == "*" || gate == sequenceID {
				t.revealed[d.ID] = true
			}
		}
	}
	return t.Refresh(gs)
}

// Refresh re-evaluates all revealed objectives against the state.
// Completed and failed verdicts are terminal and never downgraded.
func (t *Tracker) Refresh(gs *types.GameState) []string {
	var changed []string
	for _, d := range t.defs {
		if !t.revealed[d.ID] {
			continue
		}
		prev := t.statuses[d.ID]
		if prev == types.ObjectiveCompleted || prev == types.ObjectiveFailed {
			continue
		}
		next := Status(gs, d)
		if next != prev {
			t.statuses[d.ID] = next
			t.unseen[d.ID] = true
			changed = append(changed, d.ID)
		}
	}
	return changed
}

// Visible returns snapshots of every revealed objective, in pack order.
func (t *Tracker) Visible() []types.ObjectiveSnapshot {
	var out []types.ObjectiveSnapshot
	for _, d := range t.defs {
		if !t.revealed[d.ID] {
			continue
		}
		out = append(out, types.ObjectiveSnapshot{
			ObjectiveID:     d.ID,
			Status:          t.statuses[d.ID],
			Label:           d.Title,
			HasUnseenUpdate: t.unseen[d.ID],
		})
	}
	return out
}

// HasUnseen reports whether any objective changed status since the
// player last marked them seen.
func (t *Tracker) HasUnseen() bool {
	for _, u := range t.unseen {
		if u {
			return true
		}
	}
	return false
}

// UnseenCount counts objectives with a pending update.
func (t *Tracker) UnseenCount() int {
	n := 0
	for _, u := range t.unseen {
		if u {
			n++
		}
	}
	return n
}

// MarkAllSeen clears the unseen flag on every objective.
func (t *Tracker) MarkAllSeen() {
	for id := range t.unseen {
		delete(t.unseen, id)
	}
}
