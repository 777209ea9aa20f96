package objectives

import (
	"testing"

	"github.com/vreyes/stakecraft/types"
)

func testState() *types.GameState {
	return &types.GameState{
		Day:             3,
		Budget:          100000,
		Reputation:      60,
		ProjectProgress: 40,
		Stakeholders: []types.Stakeholder{
			{ID: "cfo", Trust: 70, Support: 6},
		},
		CompletedSequences: []string{"kickoff"},
		CanonicalActions: []types.CanonicalAction{
			{ActionType: "visit", TargetRef: "site_north"},
			{ActionType: "visit", TargetRef: "site_south"},
			{ActionType: "read_document", TargetRef: "budget_memo"},
		},
	}
}

func TestEval_GlobalMetric(t *testing.T) {
	gs := testState()
	if !Eval(gs, types.GlobalMetric{Metric: "budget", Op: types.OpGE, Value: 100000}) {
		t.Error("budget >= 100000 should hold")
	}
	if Eval(gs, types.GlobalMetric{Metric: "reputation", Op: types.OpGT, Value: 60}) {
		t.Error("reputation > 60 should not hold")
	}
	if Eval(gs, types.GlobalMetric{Metric: "no_such_metric", Op: types.OpGE, Value: 0}) {
		t.Error("unknown metric must evaluate false")
	}
}

func TestEval_StakeholderMetric(t *testing.T) {
	gs := testState()
	if !Eval(gs, types.StakeholderMetric{StakeholderID: "cfo", Metric: "trust", Op: types.OpGE, Value: 70}) {
		t.Error("cfo trust >= 70 should hold")
	}
	if Eval(gs, types.StakeholderMetric{StakeholderID: "ghost", Metric: "trust", Op: types.OpGE, Value: 0}) {
		t.Error("missing stakeholder must evaluate false")
	}
}

func TestEval_CompletionConditions(t *testing.T) {
	gs := testState()
	if !Eval(gs, types.CompletedSequence{SequenceID: "kickoff"}) {
		t.Error("completed sequence should hold")
	}
	if Eval(gs, types.CompletedScenario{ScenarioID: "week_one"}) {
		t.Error("unfinished scenario should not hold")
	}
}

func TestEval_ActionCount(t *testing.T) {
	gs := testState()
	if !Eval(gs, types.ActionCount{ActionType: "visit", MinCount: 2}) {
		t.Error("two visits should satisfy min 2")
	}
	if !Eval(gs, types.ActionCount{ActionType: "visit", TargetRefIncludes: "north", MinCount: 1}) {
		t.Error("target substring filter should match site_north")
	}
	if Eval(gs, types.ActionCount{ActionType: "visit", MinCount: 3}) {
		t.Error("min 3 visits should not hold")
	}
}

func TestEvalGroup_AllAndAny(t *testing.T) {
	gs := testState()
	g := &types.ConditionGroup{
		All: []types.Condition{types.GlobalMetric{Metric: "day", Op: types.OpGE, Value: 3}},
		Any: []types.Condition{
			types.GlobalMetric{Metric: "budget", Op: types.OpLT, Value: 0},
			types.CompletedSequence{SequenceID: "kickoff"},
		},
	}
	if !EvalGroup(gs, g) {
		t.Error("group with satisfied all and one satisfied any should hold")
	}
	g.Any = []types.Condition{types.GlobalMetric{Metric: "budget", Op: types.OpLT, Value: 0}}
	if EvalGroup(gs, g) {
		t.Error("group with no satisfied any should not hold")
	}
}

func TestEvalGroup_EmptyHoldsTrivially(t *testing.T) {
	if !EvalGroup(testState(), &types.ConditionGroup{}) {
		t.Error("empty group should hold")
	}
	if EvalGroup(testState(), nil) {
		t.Error("nil group should not hold")
	}
}

func TestStatus_FailurePrecedesSuccess(t *testing.T) {
	gs := testState()
	def := types.ObjectiveDefinition{
		ID:      "solvency",
		Success: types.ConditionGroup{All: []types.Condition{types.GlobalMetric{Metric: "budget", Op: types.OpGE, Value: 0}}},
		Failure: &types.ConditionGroup{All: []types.Condition{types.GlobalMetric{Metric: "reputation", Op: types.OpLE, Value: 60}}},
	}
	if got := Status(gs, def); got != types.ObjectiveFailed {
		t.Errorf("expected failed when both trees hold, got %s", got)
	}
}

func trackerDefs() []types.ObjectiveDefinition {
	return []types.ObjectiveDefinition{
		{
			ID:      "always_visible",
			Title:   "Keep the project funded",
			Success: types.ConditionGroup{All: []types.Condition{types.GlobalMetric{Metric: "budget", Op: types.OpGE, Value: 500000}}},
		},
		{
			ID:         "gated",
			Title:      "Win over the CFO",
			RevealedBy: []string{"kickoff"},
			Success:    types.ConditionGroup{All: []types.Condition{types.StakeholderMetric{StakeholderID: "cfo", Metric: "trust", Op: types.OpGE, Value: 70}}},
		},
		{
			ID:         "wildcard",
			Title:      "Stay visible",
			RevealedBy: []string{"*"},
			Success:    types.ConditionGroup{All: []types.Condition{types.GlobalMetric{Metric: "day", Op: types.OpGE, Value: 10}}},
		},
	}
}

func TestTracker_InitialVisibility(t *testing.T) {
	tr := NewTracker(trackerDefs())
	vis := tr.Visible()
	if len(vis) != 1 || vis[0].ObjectiveID != "always_visible" {
		t.Errorf("expected only ungated objective visible, got %+v", vis)
	}
	if vis[0].Status != types.ObjectivePending {
		t.Errorf("expected pending before first refresh, got %s", vis[0].Status)
	}
}

func TestTracker_SequenceCompletedRevealsGatedAndWildcard(t *testing.T) {
	tr := NewTracker(trackerDefs())
	tr.SequenceCompleted(testState(), "kickoff")
	if got := len(tr.Visible()); got != 3 {
		t.Errorf("expected all 3 visible after kickoff, got %d", got)
	}
}

func TestTracker_VisibilityMonotonic(t *testing.T) {
	tr := NewTracker(trackerDefs())
	gs := testState()
	tr.SequenceCompleted(gs, "kickoff")
	// A later unrelated completion must not hide anything.
	tr.SequenceCompleted(gs, "something_else")
	if got := len(tr.Visible()); got != 3 {
		t.Errorf("expected visibility to stay at 3, got %d", got)
	}
}

func TestTracker_UnseenFlag(t *testing.T) {
	tr := NewTracker(trackerDefs())
	gs := testState()
	if tr.HasUnseen() {
		t.Error("fresh tracker should have nothing unseen")
	}
	changed := tr.SequenceCompleted(gs, "kickoff")
	if len(changed) == 0 || !tr.HasUnseen() {
		t.Error("status changes should raise the unseen flag")
	}
	if got := tr.UnseenCount(); got != len(changed) {
		t.Errorf("expected %d unseen objectives, got %d", len(changed), got)
	}
	// The flag is per objective: only the changed ones carry it.
	unseenByID := map[string]bool{}
	for _, snap := range tr.Visible() {
		unseenByID[snap.ObjectiveID] = snap.HasUnseenUpdate
	}
	for _, id := range changed {
		if !unseenByID[id] {
			t.Errorf("expected %s flagged unseen", id)
		}
	}
	tr.MarkAllSeen()
	if tr.HasUnseen() || tr.UnseenCount() != 0 {
		t.Error("MarkAllSeen should clear every flag")
	}
	for _, snap := range tr.Visible() {
		if snap.HasUnseenUpdate {
			t.Errorf("expected %s cleared, still flagged", snap.ObjectiveID)
		}
	}
	// Refresh with no status movement keeps it clear.
	tr.Refresh(gs)
	if tr.HasUnseen() {
		t.Error("no-op refresh should not raise the flag")
	}
}

func TestTracker_TerminalStatusSticks(t *testing.T) {
	tr := NewTracker(trackerDefs())
	gs := testState()
	tr.SequenceCompleted(gs, "kickoff") // cfo trust 70 -> gated completes
	gs.Stakeholders[0].Trust = 0
	tr.Refresh(gs)
	for _, v := range tr.Visible() {
		if v.ObjectiveID == "gated" && v.Status != types.ObjectiveCompleted {
			t.Errorf("completed objective must not downgrade, got %s", v.Status)
		}
	}
}
