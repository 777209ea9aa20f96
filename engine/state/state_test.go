package state

import (
	"testing"

	"github.com/vreyes/stakecraft/types"
)

func testPack() *Pack {
	return &Pack{
		Title:             "Test Project",
		PlayerName:        "Alex",
		TimeSlots:         []types.TimeSlot{"MORNING", "AFTERNOON", "EVENING"},
		InitialBudget:     500000,
		InitialReputation: 50,
		Stakeholders: []types.Stakeholder{
			{ID: "cfo", Name: "Dana", Role: "CFO", Trust: 50, Support: 5, MinSupport: 0, MaxSupport: 10},
			{ID: "eng_a", Name: "Sam", Role: "ENGINEER", Trust: 40, Support: 3, MinSupport: 0, MaxSupport: 10},
			{ID: "eng_b", Name: "Kim", Role: "ENGINEER", Trust: 60, Support: 7, MinSupport: 0, MaxSupport: 10},
		},
		Sequences: map[string]types.Sequence{
			"kickoff": {ID: "kickoff", Trigger: types.TriggerInevitable, Schedule: &types.SlotRef{Day: 1, Slot: "MORNING"}},
			"chat":    {ID: "chat", Trigger: types.TriggerProactive},
		},
	}
}

func TestNew_SeedsFromPack(t *testing.T) {
	gs := New(testPack())
	if gs.Day != 1 {
		t.Errorf("expected day 1, got %d", gs.Day)
	}
	if gs.TimeSlot != "MORNING" {
		t.Errorf("expected MORNING, got %s", gs.TimeSlot)
	}
	if gs.Budget != 500000 {
		t.Errorf("expected budget 500000, got %d", gs.Budget)
	}
	if len(gs.Stakeholders) != 3 {
		t.Fatalf("expected 3 stakeholders, got %d", len(gs.Stakeholders))
	}
}

func TestNew_SchedulesInevitableSequencesOnly(t *testing.T) {
	gs := New(testPack())
	if len(gs.ScenarioSchedule) != 1 {
		t.Fatalf("expected 1 scheduled sequence, got %d", len(gs.ScenarioSchedule))
	}
	ref, ok := gs.ScenarioSchedule["kickoff"]
	if !ok {
		t.Fatal("kickoff not scheduled")
	}
	if ref.Day != 1 || ref.Slot != "MORNING" {
		t.Errorf("expected day 1 MORNING, got %+v", ref)
	}
}

func TestCopyStakeholders_DoesNotAlias(t *testing.T) {
	src := []types.Stakeholder{{
		ID:          "cfo",
		Commitments: []types.Commitment{{Description: "review budget", DayDue: 3, Status: types.CommitmentPending}},
	}}
	cp := CopyStakeholders(src)
	cp[0].Commitments[0].Status = types.CommitmentBroken
	if src[0].Commitments[0].Status != types.CommitmentPending {
		t.Error("commitment mutation leaked through copy")
	}
}

func TestResolve_ByIDBeforeRole(t *testing.T) {
	gs := New(testPack())
	sh, warn, err := Resolve(gs, "cfo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if warn != "" {
		t.Errorf("unexpected warning: %s", warn)
	}
	if sh.Name != "Dana" {
		t.Errorf("expected Dana, got %s", sh.Name)
	}
}

func TestResolve_AmbiguousRoleWarnsAndPicksFirst(t *testing.T) {
	gs := New(testPack())
	sh, warn, err := Resolve(gs, "ENGINEER")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if warn == "" {
		t.Error("expected warning for ambiguous role")
	}
	if sh.ID != "eng_a" {
		t.Errorf("expected first match eng_a, got %s", sh.ID)
	}
}

func TestResolve_UnknownRef(t *testing.T) {
	gs := New(testPack())
	if _, _, err := Resolve(gs, "nobody"); err == nil {
		t.Error("expected error for unknown ref")
	}
}

func TestResolve_ReturnsLiveReference(t *testing.T) {
	gs := New(testPack())
	sh, _, _ := Resolve(gs, "cfo")
	sh.Trust = 99
	if gs.Stakeholders[0].Trust != 99 {
		t.Error("expected mutation through resolved pointer to hit live state")
	}
}

func TestClamping(t *testing.T) {
	if got := ClampReputation(120); got != 100 {
		t.Errorf("expected 100, got %d", got)
	}
	if got := ClampReputation(-5); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
	if got := ClampTrust(101); got != 100 {
		t.Errorf("expected 100, got %d", got)
	}
	sh := &types.Stakeholder{MinSupport: 2, MaxSupport: 8}
	if got := ClampSupport(sh, 11); got != 8 {
		t.Errorf("expected 8, got %d", got)
	}
	if got := ClampSupport(sh, 0); got != 2 {
		t.Errorf("expected 2, got %d", got)
	}
}

func TestBandedDeltas(t *testing.T) {
	if got := BudgetDelta(&types.BandedEffect{Magnitude: types.MagnitudeM, Positive: false}); got != -50000 {
		t.Errorf("expected -50000, got %d", got)
	}
	if got := BudgetDelta(nil); got != 0 {
		t.Errorf("expected 0 for nil effect, got %d", got)
	}
	if got := ReputationDelta(&types.BandedEffect{Magnitude: types.MagnitudeL, Positive: true}); got != 15 {
		t.Errorf("expected 15, got %d", got)
	}
}

func TestBandFor(t *testing.T) {
	cases := []struct {
		amount int
		want   types.Magnitude
	}{
		{5000, types.MagnitudeS},
		{-10000, types.MagnitudeS},
		{30000, types.MagnitudeM},
		{99000, types.MagnitudeL},
	}
	for _, c := range cases {
		if got := BandFor(c.amount); got != c.want {
			t.Errorf("BandFor(%d): expected %s, got %s", c.amount, c.want, got)
		}
	}
}

func TestApplyConsequences_BandsOverrideRawNumbers(t *testing.T) {
	gs := New(testPack())
	sh, _, _ := Resolve(gs, "cfo")
	ApplyConsequences(gs, sh, types.Consequences{
		BudgetChange: 123,
		BudgetEffect: &types.BandedEffect{Magnitude: types.MagnitudeS, Positive: true},
		TrustChange:  10,
	})
	if gs.Budget != 510000 {
		t.Errorf("expected budget 510000, got %d", gs.Budget)
	}
	if sh.Trust != 60 {
		t.Errorf("expected trust 60, got %d", sh.Trust)
	}
}

func TestApplyConsequences_ClampsMeters(t *testing.T) {
	gs := New(testPack())
	sh, _, _ := Resolve(gs, "cfo")
	ApplyConsequences(gs, sh, types.Consequences{ReputationChange: 200, SupportChange: 100})
	if gs.Reputation != 100 {
		t.Errorf("expected reputation clamped to 100, got %d", gs.Reputation)
	}
	if sh.Support != 10 {
		t.Errorf("expected support clamped to 10, got %d", sh.Support)
	}
	ApplyConsequences(gs, nil, types.Consequences{ProgressChange: 150})
	if gs.ProjectProgress != 100 {
		t.Errorf("expected progress clamped to 100, got %d", gs.ProjectProgress)
	}
	ApplyConsequences(gs, nil, types.Consequences{ProgressChange: -500})
	if gs.ProjectProgress != 0 {
		t.Errorf("expected progress clamped to 0, got %d", gs.ProjectProgress)
	}
}
