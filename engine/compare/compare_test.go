package compare

import (
	"testing"

	"github.com/vreyes/stakecraft/types"
)

func expected(id, ruleID string) types.ExpectedAction {
	return types.ExpectedAction{
		ID:         id,
		ActionType: "set_meeting_time",
		TargetRef:  "cfo",
		RuleID:     ruleID,
		CreatedAt:  60,
	}
}

func canonical(id string, committedAt int64) types.CanonicalAction {
	return types.CanonicalAction{
		ID:          id,
		ActionType:  "set_meeting_time",
		TargetRef:   "cfo",
		CommittedAt: committedAt,
	}
}

func TestReconcile_PassThroughRule(t *testing.T) {
	out := Reconcile(
		[]types.ExpectedAction{expected("e1", "meeting_time_rule_v1")},
		[]types.CanonicalAction{canonical("c1", 100)},
		nil, Options{},
	)
	if len(out) != 1 {
		t.Fatalf("expected 1 result, got %d", len(out))
	}
	if out[0].Outcome != types.OutcomeDoneOK || out[0].CanonicalActionID != "c1" {
		t.Errorf("unexpected result %+v", out[0])
	}
}

func TestReconcile_BestMatchPrefersEarliestAfterCreation(t *testing.T) {
	out := Reconcile(
		[]types.ExpectedAction{expected("e1", "meeting_time_rule_v1")},
		[]types.CanonicalAction{canonical("c100", 100), canonical("c50", 50), canonical("c150", 150)},
		nil, Options{},
	)
	if out[0].CanonicalActionID != "c100" {
		t.Errorf("expected c100 (earliest committed after creation), got %s", out[0].CanonicalActionID)
	}
}

func TestReconcile_BestMatchFallsBackToGloballyEarliest(t *testing.T) {
	out := Reconcile(
		[]types.ExpectedAction{expected("e1", "meeting_time_rule_v1")},
		[]types.CanonicalAction{canonical("c40", 40), canonical("c20", 20)},
		nil, Options{},
	)
	if out[0].CanonicalActionID != "c20" {
		t.Errorf("expected globally earliest c20, got %s", out[0].CanonicalActionID)
	}
}

func TestReconcile_MatchFiltersOnTypeTargetMechanic(t *testing.T) {
	ea := expected("e1", "meeting_time_rule_v1")
	ea.MechanicID = "scheduler"
	wrong := []types.CanonicalAction{
		{ID: "c1", ActionType: "visit", TargetRef: "cfo", MechanicID: "scheduler", CommittedAt: 100},
		{ID: "c2", ActionType: "set_meeting_time", TargetRef: "ceo", MechanicID: "scheduler", CommittedAt: 100},
		{ID: "c3", ActionType: "set_meeting_time", TargetRef: "cfo", MechanicID: "other", CommittedAt: 100},
	}
	out := Reconcile([]types.ExpectedAction{ea}, wrong, nil, Options{IncludeNotDone: true})
	if out[0].Outcome != types.OutcomeNotDone {
		t.Errorf("expected NOT_DONE, got %s matched to %s", out[0].Outcome, out[0].CanonicalActionID)
	}

	right := append(wrong, types.CanonicalAction{ID: "c4", ActionType: "set_meeting_time", TargetRef: "cfo", MechanicID: "scheduler", CommittedAt: 100})
	out = Reconcile([]types.ExpectedAction{ea}, right, nil, Options{})
	if out[0].CanonicalActionID != "c4" {
		t.Errorf("expected c4, got %s", out[0].CanonicalActionID)
	}
}

func TestReconcile_NoMatchSkippedUnlessIncludeNotDone(t *testing.T) {
	eas := []types.ExpectedAction{expected("e1", "meeting_time_rule_v1")}
	if out := Reconcile(eas, nil, nil, Options{}); len(out) != 0 {
		t.Errorf("periodic pass should leave unmatched pending, got %+v", out)
	}
	out := Reconcile(eas, nil, nil, Options{IncludeNotDone: true})
	if len(out) != 1 || out[0].Outcome != types.OutcomeNotDone {
		t.Errorf("expected NOT_DONE, got %+v", out)
	}
	if out[0].CanonicalActionID != "" {
		t.Errorf("NOT_DONE must not reference a canonical action, got %s", out[0].CanonicalActionID)
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	eas := []types.ExpectedAction{expected("e1", "meeting_time_rule_v1")}
	cas := []types.CanonicalAction{canonical("c1", 100)}
	first := Reconcile(eas, cas, nil, Options{})
	second := Reconcile(eas, cas, first, Options{})
	if len(second) != 0 {
		t.Errorf("second pass must not re-emit results, got %+v", second)
	}
}

func TestReconcile_DefaultRuleConstraints(t *testing.T) {
	ea := expected("e1", "default_rule")
	ea.Constraints = map[string]any{"duration": 30, "room": "A"}
	ca := canonical("c1", 100)
	ca.Context = map[string]any{"room": "A"}
	ca.ValueFinal = map[string]any{"duration": float64(30)}

	out := Reconcile([]types.ExpectedAction{ea}, []types.CanonicalAction{ca}, nil, Options{})
	if out[0].Outcome != types.OutcomeDoneOK {
		t.Errorf("expected DONE_OK with numeric normalization, got %+v", out[0])
	}
}

func TestReconcile_DefaultRuleValueFinalOverlaysContext(t *testing.T) {
	ea := expected("e1", "default_rule")
	ea.Constraints = map[string]any{"duration": 30}
	ca := canonical("c1", 100)
	ca.Context = map[string]any{"duration": 15}
	ca.ValueFinal = map[string]any{"duration": 30}

	out := Reconcile([]types.ExpectedAction{ea}, []types.CanonicalAction{ca}, nil, Options{})
	if out[0].Outcome != types.OutcomeDoneOK {
		t.Errorf("final value should overlay context, got %+v", out[0])
	}
}

func TestReconcile_DefaultRuleMissingKey(t *testing.T) {
	ea := expected("e1", "default_rule")
	ea.Constraints = map[string]any{"duration": 30}
	ca := canonical("c1", 100)

	out := Reconcile([]types.ExpectedAction{ea}, []types.CanonicalAction{ca}, nil, Options{})
	if out[0].Outcome != types.OutcomeDeviation {
		t.Fatalf("expected DEVIATION, got %s", out[0].Outcome)
	}
	missing, ok := out[0].Deviation["missing"].(map[string]any)
	if !ok || missing["duration"] != 30 {
		t.Errorf("expected missing map with duration, got %+v", out[0].Deviation)
	}
}

func TestReconcile_DefaultRuleMismatchedValue(t *testing.T) {
	ea := expected("e1", "default_rule")
	ea.Constraints = map[string]any{"duration": 30}
	ca := canonical("c1", 100)
	ca.ValueFinal = map[string]any{"duration": 45}

	out := Reconcile([]types.ExpectedAction{ea}, []types.CanonicalAction{ca}, nil, Options{})
	if out[0].Outcome != types.OutcomeDeviation {
		t.Fatalf("expected DEVIATION, got %s", out[0].Outcome)
	}
	missing, _ := out[0].Deviation["missing"].(map[string]any)
	if missing["duration"] != 30 {
		t.Errorf("expected missing map with expected value, got %+v", out[0].Deviation)
	}
	actual, _ := out[0].Deviation["actual"].(map[string]any)
	if actual["duration"] != 45 {
		t.Errorf("expected actual values in payload, got %+v", out[0].Deviation)
	}
}

func TestReconcile_DefaultRuleCollectsEveryFailure(t *testing.T) {
	ea := expected("e1", "default_rule")
	ea.Constraints = map[string]any{"day": "Monday", "room": "A", "duration": 30}
	ca := canonical("c1", 100)
	ca.Context = map[string]any{"day": "Tuesday", "duration": 30}

	out := Reconcile([]types.ExpectedAction{ea}, []types.CanonicalAction{ca}, nil, Options{})
	if out[0].Outcome != types.OutcomeDeviation {
		t.Fatalf("expected DEVIATION, got %s", out[0].Outcome)
	}
	missing, _ := out[0].Deviation["missing"].(map[string]any)
	if len(missing) != 2 || missing["day"] != "Monday" || missing["room"] != "A" {
		t.Errorf("expected both unmet keys collected, got %+v", missing)
	}
	actual, _ := out[0].Deviation["actual"].(map[string]any)
	if actual["day"] != "Tuesday" {
		t.Errorf("expected merged actual values, got %+v", actual)
	}
}

func TestReconcile_UnknownRuleIsExplicitDeviation(t *testing.T) {
	out := Reconcile(
		[]types.ExpectedAction{expected("e1", "rule_from_the_future_v9")},
		[]types.CanonicalAction{canonical("c1", 100)},
		nil, Options{},
	)
	if out[0].Outcome != types.OutcomeDeviation {
		t.Fatalf("expected DEVIATION for unknown rule, got %s", out[0].Outcome)
	}
	if out[0].Deviation["reason"] != "missing_rule" {
		t.Errorf("expected missing_rule reason, got %+v", out[0].Deviation)
	}
}
