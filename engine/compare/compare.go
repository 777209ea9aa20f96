// Package compare reconciles expected actions registered by dialogue
// choices against the canonical actions the player actually committed,
// producing per-expectation outcomes.
package compare

import (
	"reflect"

	"github.com/vreyes/stakecraft/types"
)

// Options controls a reconciliation pass.
type Options struct {
	// IncludeNotDone records a NOT_DONE result for expectations with
	// no matching canonical action. Periodic passes leave those
	// pending so a later action can still satisfy them; the final
	// export pass sets this to close every expectation out.
	IncludeNotDone bool
}

// Reconcile evaluates each expected action against the canonical
// actions and returns new comparison results. Expectations already
// present in existing are skipped, so re-running a pass over the same
// inputs never duplicates or rewrites a verdict.
func Reconcile(expected []types.ExpectedAction, canonical []types.CanonicalAction, existing []types.ComparisonResult, opts Options) []types.ComparisonResult {
	done := make(map[string]bool, len(existing))
	for _, r := range existing {
		done[r.ExpectedActionID] = true
	}

	var out []types.ComparisonResult
	for _, ea := range expected {
		if done[ea.ID] {
			continue
		}
		matches := matchCandidates(ea, canonical)
		if len(matches) == 0 {
			if opts.IncludeNotDone {
				out = append(out, types.ComparisonResult{
					ExpectedActionID: ea.ID,
					Outcome:          types.OutcomeNotDone,
				})
			}
			continue
		}
		best := pickBestMatch(ea, matches)
		res := applyRule(ea, best)
		out = append(out, res)
	}
	return out
}

// matchCandidates filters canonical actions to those addressing the
// same action type and target. A mechanic id on the expectation
// narrows the match further; an empty one matches any mechanic.
func matchCandidates(ea types.ExpectedAction, canonical []types.CanonicalAction) []types.CanonicalAction {
	var out []types.CanonicalAction
	for _, ca := range canonical {
		if ca.ActionType != ea.ActionType || ca.TargetRef != ea.TargetRef {
			continue
		}
		if ea.MechanicID != "" && ca.MechanicID != ea.MechanicID {
			continue
		}
		out = append(out, ca)
	}
	return out
}

// pickBestMatch prefers the earliest action committed at or after the
// expectation was created; when every candidate predates it, the
// globally earliest wins.
func pickBestMatch(ea types.ExpectedAction, matches []types.CanonicalAction) types.CanonicalAction {
	var after *types.CanonicalAction
	for i := range matches {
		m := &matches[i]
		if m.CommittedAt < ea.CreatedAt {
			continue
		}
		if after == nil || m.CommittedAt < after.CommittedAt {
			after = m
		}
	}
	if after != nil {
		return *after
	}
	best := matches[0]
	for _, m := range matches[1:] {
		if m.CommittedAt < best.CommittedAt {
			best = m
		}
	}
	return best
}

// passThroughRules are the closed set of named rules where matching on
// action type and target is the whole contract.
var passThroughRules = map[string]bool{
	"meeting_time_rule_v1":        true,
	"visit_stakeholder_rule_v1":   true,
	"research_hours_rule_v1":      true,
	"training_commitment_rule_v1": true,
	"cross_sector_help_rule_v1":   true,
	"scheduler_war_rule_v1":       true,
	"visit_priority_rule_v1":      true,
}

// KnownRule reports whether a rule id is in the registry. Content
// validation uses this to reject packs naming rules that do not exist.
func KnownRule(id string) bool {
	return id == "" || id == "default_rule" || passThroughRules[id]
}

// applyRule runs the expectation's comparison rule against the chosen
// canonical action. The rule registry is closed: an unknown rule id is
// an explicit deviation, never a silent pass.
func applyRule(ea types.ExpectedAction, ca types.CanonicalAction) types.ComparisonResult {
	res := types.ComparisonResult{
		ExpectedActionID:  ea.ID,
		CanonicalActionID: ca.ID,
	}
	switch ea.RuleID {
	case "", "default_rule":
		if dev := checkConstraints(ea.Constraints, ca); dev != nil {
			res.Outcome = types.OutcomeDeviation
			res.Deviation = dev
		} else {
			res.Outcome = types.OutcomeDoneOK
		}
	default:
		if passThroughRules[ea.RuleID] {
			res.Outcome = types.OutcomeDoneOK
			return res
		}
		res.Outcome = types.OutcomeDeviation
		res.Deviation = map[string]any{"reason": "missing_rule", "rule_id": ea.RuleID}
	}
	return res
}

// checkConstraints deep-compares every constraint key against the
// action's merged view, where the final value overlays the context.
// Returns nil when all constraints hold; otherwise a deviation payload
// with a "missing" map of every unmet key to its expected value, plus
// the merged actual values.
func checkConstraints(constraints map[string]any, ca types.CanonicalAction) map[string]any {
	if len(constraints) == 0 {
		return nil
	}
	merged := make(map[string]any, len(ca.Context)+1)
	for k, v := range ca.Context {
		merged[k] = v
	}
	if vf, ok := ca.ValueFinal.(map[string]any); ok {
		for k, v := range vf {
			merged[k] = v
		}
	}
	missing := map[string]any{}
	for key, want := range constraints {
		got, ok := merged[key]
		if !ok || !valuesEqual(want, got) {
			missing[key] = want
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return map[string]any{"missing": missing, "actual": merged}
}

// valuesEqual compares constraint values with numeric normalization:
// JSON round-trips turn ints into float64, and content packs mix both.
func valuesEqual(a, b any) bool {
	if na, ok := asFloat(a); ok {
		if nb, ok := asFloat(b); ok {
			return na == nb
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}
