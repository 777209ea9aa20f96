package clock

import (
	"testing"

	"github.com/vreyes/stakecraft/engine/state"
	"github.com/vreyes/stakecraft/types"
)

var slots = []types.TimeSlot{"MORNING", "AFTERNOON", "EVENING"}

func testState() *types.GameState {
	return &types.GameState{
		Day:      1,
		TimeSlot: "MORNING",
		History:  make(map[int][]types.Stakeholder),
		Stakeholders: []types.Stakeholder{
			{ID: "cfo", Role: "CFO", Trust: 50, Support: 5, MinSupport: 0, MaxSupport: 10},
		},
		ScenarioSchedule: make(map[string]types.SlotRef),
	}
}

func TestAdvance_SameDay(t *testing.T) {
	gs := testState()
	res := Advance(gs, slots)
	if res.DayCompleted {
		t.Error("expected no day rollover")
	}
	if gs.Day != 1 || gs.TimeSlot != "AFTERNOON" {
		t.Errorf("expected day 1 AFTERNOON, got day %d %s", gs.Day, gs.TimeSlot)
	}
}

func TestAdvance_DayRollover(t *testing.T) {
	gs := testState()
	gs.TimeSlot = "EVENING"
	res := Advance(gs, slots)
	if !res.DayCompleted || res.CompletedDay != 1 {
		t.Errorf("expected completion of day 1, got %+v", res)
	}
	if gs.Day != 2 || gs.TimeSlot != "MORNING" {
		t.Errorf("expected day 2 MORNING, got day %d %s", gs.Day, gs.TimeSlot)
	}
}

func TestAdvance_HistoryWriteOnce(t *testing.T) {
	gs := testState()
	gs.TimeSlot = "EVENING"
	gs.History[1] = []types.Stakeholder{{ID: "frozen"}}
	Advance(gs, slots)
	if gs.History[1][0].ID != "frozen" {
		t.Error("existing history snapshot was overwritten")
	}
}

func TestAdvance_HistorySnapshotDoesNotAlias(t *testing.T) {
	gs := testState()
	gs.TimeSlot = "EVENING"
	Advance(gs, slots)
	gs.Stakeholders[0].Trust = 1
	if gs.History[1][0].Trust != 50 {
		t.Error("history snapshot aliases live stakeholder state")
	}
}

func TestAdvance_CommitmentDecay(t *testing.T) {
	gs := testState()
	gs.TimeSlot = "EVENING"
	gs.Stakeholders[0].Commitments = []types.Commitment{
		{Description: "overdue", DayDue: 1, Status: types.CommitmentPending},
		{Description: "not due", DayDue: 2, Status: types.CommitmentPending},
		{Description: "done", DayDue: 1, Status: types.CommitmentCompleted},
	}
	res := Advance(gs, slots)
	if len(res.NewlyBroken) != 1 || res.NewlyBroken[0].Description != "overdue" {
		t.Fatalf("expected exactly the overdue commitment broken, got %+v", res.NewlyBroken)
	}
	sh := gs.Stakeholders[0]
	if sh.Commitments[0].Status != types.CommitmentBroken {
		t.Error("overdue commitment not marked broken")
	}
	if sh.Commitments[1].Status != types.CommitmentPending {
		t.Error("future commitment should stay pending")
	}
	if sh.Trust != 30 {
		t.Errorf("expected trust 50-20=30, got %d", sh.Trust)
	}
}

func TestAdvance_DecayAppliesOnce(t *testing.T) {
	gs := testState()
	gs.TimeSlot = "EVENING"
	gs.Stakeholders[0].Commitments = []types.Commitment{
		{Description: "overdue", DayDue: 1, Status: types.CommitmentPending},
	}
	Advance(gs, slots)
	// Walk through day 2; the already-broken commitment must not decay again.
	Advance(gs, slots)
	Advance(gs, slots)
	Advance(gs, slots)
	if gs.Stakeholders[0].Trust != 30 {
		t.Errorf("expected trust 30 after single penalty, got %d", gs.Stakeholders[0].Trust)
	}
}

func TestAdvance_TrustClampedAtZero(t *testing.T) {
	gs := testState()
	gs.TimeSlot = "EVENING"
	gs.Stakeholders[0].Trust = 15
	gs.Stakeholders[0].Commitments = []types.Commitment{
		{Description: "a", DayDue: 1, Status: types.CommitmentPending},
		{Description: "b", DayDue: 1, Status: types.CommitmentPending},
	}
	Advance(gs, slots)
	if gs.Stakeholders[0].Trust != 0 {
		t.Errorf("expected trust clamped to 0, got %d", gs.Stakeholders[0].Trust)
	}
}

func TestInevitableDue_ExactMatchOnly(t *testing.T) {
	gs := testState()
	gs.ScenarioSchedule["board_review"] = types.SlotRef{Day: 1, Slot: "AFTERNOON"}

	if got := InevitableDue(gs); got != "" {
		t.Errorf("expected nothing due at MORNING, got %q", got)
	}
	gs.TimeSlot = "AFTERNOON"
	if got := InevitableDue(gs); got != "board_review" {
		t.Errorf("expected board_review due, got %q", got)
	}
	gs.CompletedSequences = []string{"board_review"}
	if got := InevitableDue(gs); got != "" {
		t.Errorf("completed sequence should not fire again, got %q", got)
	}
}

func TestShouldTrigger_BudgetThreshold(t *testing.T) {
	gs := testState()
	gs.Budget = 5000
	limit := 10000
	if !ShouldTrigger(gs, &types.ContingentRules{BudgetBelow: &limit}, "") {
		t.Error("expected trigger when budget below threshold")
	}
	gs.Budget = 10000
	if ShouldTrigger(gs, &types.ContingentRules{BudgetBelow: &limit}, "") {
		t.Error("budget at threshold should not trigger")
	}
}

func TestShouldTrigger_StakeholderThresholds(t *testing.T) {
	gs := testState()
	gs.Stakeholders[0].Trust = 10
	limit := 20
	rules := &types.ContingentRules{TrustBelow: &limit, StakeholderRole: "CFO"}
	if !ShouldTrigger(gs, rules, "") {
		t.Error("expected trigger when trust below threshold")
	}
	gs.Stakeholders[0].Trust = 20
	if ShouldTrigger(gs, rules, "") {
		t.Error("trust at threshold should not trigger")
	}
}

func TestShouldTrigger_MissingStakeholderFailsClosed(t *testing.T) {
	gs := testState()
	limit := 20
	rules := &types.ContingentRules{TrustBelow: &limit, StakeholderRole: "CEO"}
	if ShouldTrigger(gs, rules, "") {
		t.Error("rules naming an unknown stakeholder must not trigger")
	}
}

func TestShouldTrigger_FallsBackToSequenceStakeholder(t *testing.T) {
	gs := testState()
	gs.Stakeholders[0].Trust = 10
	limit := 20
	rules := &types.ContingentRules{TrustBelow: &limit}
	if !ShouldTrigger(gs, rules, "cfo") {
		t.Error("expected fallback to the sequence stakeholder")
	}
	if ShouldTrigger(gs, rules, "") {
		t.Error("no stakeholder anywhere must fail closed")
	}
}

func TestContingentDue_UsesOwningSequenceStakeholder(t *testing.T) {
	gs := testState()
	gs.Stakeholders[0].Trust = 10
	limit := 20
	p := &state.Pack{Sequences: map[string]types.Sequence{
		"trust_crisis": {ID: "trust_crisis", StakeholderID: "cfo", Trigger: types.TriggerContingent,
			Contingent: &types.ContingentRules{TrustBelow: &limit}},
	}}
	if got := ContingentDue(gs, p); got != "trust_crisis" {
		t.Errorf("expected trust_crisis due via sequence stakeholder, got %q", got)
	}
}

func TestShouldTrigger_EmptyRulesNeverFire(t *testing.T) {
	gs := testState()
	if ShouldTrigger(gs, &types.ContingentRules{}, "") {
		t.Error("rule set with no thresholds must not trigger")
	}
}

func TestContingentDue_SkipsCompleted(t *testing.T) {
	gs := testState()
	gs.Budget = 0
	limit := 10000
	p := &state.Pack{Sequences: map[string]types.Sequence{
		"crisis": {ID: "crisis", Trigger: types.TriggerContingent, Contingent: &types.ContingentRules{BudgetBelow: &limit}},
	}}
	if got := ContingentDue(gs, p); got != "crisis" {
		t.Errorf("expected crisis due, got %q", got)
	}
	gs.CompletedSequences = []string{"crisis"}
	if got := ContingentDue(gs, p); got != "" {
		t.Errorf("completed contingent should not fire again, got %q", got)
	}
}
