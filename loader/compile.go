// Package loader loads Lua simulation content into Go structs at load
// time. The Lua VM is discarded after loading; no Lua runs at runtime.
package loader

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/vreyes/stakecraft/engine/state"
	"github.com/vreyes/stakecraft/types"
)

// rawDef holds one collected definition before compilation.
type rawDef struct {
	id    string
	table *lua.LTable
}

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	v := tbl.RawGetString(key)
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getBool returns a bool field from a Lua table, or the default if missing.
func getBool(tbl *lua.LTable, key string, def bool) bool {
	v := tbl.RawGetString(key)
	if b, ok := v.(lua.LBool); ok {
		return bool(b)
	}
	return def
}

// getInt returns an int field from a Lua table, or def if missing.
func getInt(tbl *lua.LTable, key string, def int) int {
	v := tbl.RawGetString(key)
	if n, ok := v.(lua.LNumber); ok {
		return int(n)
	}
	return def
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	v := tbl.RawGetString(key)
	if t, ok := v.(*lua.LTable); ok {
		return t
	}
	return nil
}

// getStrings returns an array-of-strings field, or nil if missing. A
// bare string value is treated as a one-element list.
func getStrings(tbl *lua.LTable, key string) []string {
	switch v := tbl.RawGetString(key).(type) {
	case lua.LString:
		return []string{string(v)}
	case *lua.LTable:
		var out []string
		v.ForEach(func(k, item lua.LValue) {
			if _, ok := k.(lua.LNumber); !ok {
				return
			}
			if s, ok := item.(lua.LString); ok {
				out = append(out, string(s))
			}
		})
		return out
	}
	return nil
}

// toGoValue converts a Lua value to a Go value recursively.
func toGoValue(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		f := float64(val)
		if f == float64(int(f)) {
			return int(f)
		}
		return f
	case *lua.LNilType:
		return nil
	case lua.LString:
		return string(val)
	case *lua.LTable:
		maxN := val.MaxN()
		if maxN > 0 {
			arr := make([]any, 0, maxN)
			for i := 1; i <= maxN; i++ {
				arr = append(arr, toGoValue(val.RawGetInt(i)))
			}
			return arr
		}
		m := map[string]any{}
		val.ForEach(func(k, v lua.LValue) {
			if ks, ok := k.(lua.LString); ok {
				m[string(ks)] = toGoValue(v)
			}
		})
		return m
	default:
		return nil
	}
}

// tableToAnyMap converts a Lua table to a map[string]any.
func tableToAnyMap(tbl *lua.LTable) map[string]any {
	if tbl == nil {
		return nil
	}
	m := map[string]any{}
	tbl.ForEach(func(k, v lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			m[string(ks)] = toGoValue(v)
		}
	})
	return m
}

// tableToStringMap converts a Lua table to a map[string]string.
func tableToStringMap(tbl *lua.LTable) map[string]string {
	if tbl == nil {
		return nil
	}
	m := map[string]string{}
	tbl.ForEach(func(k, v lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			if vs, ok := v.(lua.LString); ok {
				m[string(ks)] = string(vs)
			}
		}
	})
	return m
}

// forEachArray calls fn for every integer-keyed table element.
func forEachArray(tbl *lua.LTable, fn func(*lua.LTable)) {
	if tbl == nil {
		return
	}
	tbl.ForEach(func(k, v lua.LValue) {
		if _, ok := k.(lua.LNumber); !ok {
			return
		}
		if t, ok := v.(*lua.LTable); ok {
			fn(t)
		}
	})
}

// compile converts all collected Lua data into a Pack.
func compile(coll *collector) (*state.Pack, error) {
	if coll.simulation == nil {
		return nil, fmt.Errorf("no Simulation{} definition found")
	}
	pack := compileSimulation(coll.simulation)

	for _, raw := range coll.stakeholders {
		pack.Stakeholders = append(pack.Stakeholders, compileStakeholder(raw))
	}
	pack.Nodes = make(map[string]types.Node, len(coll.nodes))
	for _, raw := range coll.nodes {
		n := compileNode(raw)
		if _, dup := pack.Nodes[n.ID]; dup {
			return nil, fmt.Errorf("duplicate node %q", n.ID)
		}
		pack.Nodes[n.ID] = n
	}
	pack.Sequences = make(map[string]types.Sequence, len(coll.sequences))
	for _, raw := range coll.sequences {
		seq, err := compileSequence(raw)
		if err != nil {
			return nil, fmt.Errorf("compiling sequence %s: %w", raw.id, err)
		}
		if _, dup := pack.Sequences[seq.ID]; dup {
			return nil, fmt.Errorf("duplicate sequence %q", seq.ID)
		}
		pack.Sequences[seq.ID] = seq
	}
	for _, raw := range coll.emails {
		pack.Emails = append(pack.Emails, compileEmail(raw))
	}
	for _, raw := range coll.documents {
		pack.Documents = append(pack.Documents, types.Document{
			ID:      raw.id,
			Title:   getString(raw.table, "title"),
			Content: getString(raw.table, "content"),
		})
	}
	for _, raw := range coll.objectives {
		obj, err := compileObjective(raw)
		if err != nil {
			return nil, fmt.Errorf("compiling objective %s: %w", raw.id, err)
		}
		pack.Objectives = append(pack.Objectives, obj)
	}
	return pack, nil
}

func compileSimulation(tbl *lua.LTable) *state.Pack {
	p := &state.Pack{
		Title:             getString(tbl, "title"),
		Version:           getString(tbl, "version"),
		PlayerName:        getString(tbl, "player_name"),
		PlayerRole:        getString(tbl, "player_role"),
		ProjectName:       getString(tbl, "project_name"),
		SecretaryRole:     getString(tbl, "secretary_role"),
		InitialBudget:     getInt(tbl, "initial_budget", 0),
		InitialReputation: getInt(tbl, "initial_reputation", 50),
		InitialProgress:   getInt(tbl, "initial_progress", 0),
		FinalDay:          getInt(tbl, "final_day", 0),
		MinTrustRequired:  getInt(tbl, "min_trust_required", 0),
	}
	for _, s := range getStrings(tbl, "time_slots") {
		p.TimeSlots = append(p.TimeSlots, types.TimeSlot(s))
	}
	forEachArray(getTable(tbl, "schedule"), func(t *lua.LTable) {
		p.Schedule = append(p.Schedule, types.ScheduleEntry{
			Day:      getString(t, "day"),
			Block:    getString(t, "block"),
			Activity: getString(t, "activity"),
		})
	})
	return p
}

func compileStakeholder(raw rawDef) types.Stakeholder {
	tbl := raw.table
	sh := types.Stakeholder{
		ID:         raw.id,
		Name:       getString(tbl, "name"),
		Role:       getString(tbl, "role"),
		Trust:      getInt(tbl, "trust", 50),
		Support:    getInt(tbl, "support", 5),
		MinSupport: getInt(tbl, "min_support", 0),
		MaxSupport: getInt(tbl, "max_support", 10),
		Critical:   getBool(tbl, "critical", false),
	}
	forEachArray(getTable(tbl, "commitments"), func(t *lua.LTable) {
		sh.Commitments = append(sh.Commitments, types.Commitment{
			Description: getString(t, "description"),
			DayDue:      getInt(t, "day_due", 0),
			Status:      types.CommitmentPending,
		})
	})
	forEachArray(getTable(tbl, "questions"), func(t *lua.LTable) {
		q := types.Question{
			ID:     getString(t, "id"),
			Text:   getString(t, "text"),
			Answer: getString(t, "answer"),
		}
		if req := getTable(t, "requires"); req != nil {
			q.Requires = types.QuestionRequirement{
				TrustMin:      getInt(req, "trust_min", 0),
				SupportMin:    getInt(req, "support_min", 0),
				ReputationMin: getInt(req, "reputation_min", 0),
			}
		}
		sh.Questions = append(sh.Questions, q)
	})
	return sh
}

func compileNode(raw rawDef) types.Node {
	tbl := raw.table
	n := types.Node{
		ID:              raw.id,
		StakeholderID:   getString(tbl, "stakeholder"),
		StakeholderRole: getString(tbl, "stakeholder_role"),
		Dialogue:        getString(tbl, "dialogue"),
	}
	forEachArray(getTable(tbl, "options"), func(t *lua.LTable) {
		n.Options = append(n.Options, compileOption(t))
	})
	return n
}

func compileOption(tbl *lua.LTable) types.NodeOption {
	opt := types.NodeOption{
		ID:   getString(tbl, "id"),
		Text: getString(tbl, "text"),
		Tags: tableToStringMap(getTable(tbl, "tags")),
		Consequences: types.Consequences{
			BudgetChange:     getInt(tbl, "budget_change", 0),
			TrustChange:      getInt(tbl, "trust_change", 0),
			SupportChange:    getInt(tbl, "support_change", 0),
			ReputationChange: getInt(tbl, "reputation_change", 0),
			ProgressChange:   getInt(tbl, "progress_change", 0),
			DialogueResponse: getString(tbl, "response"),
		},
	}
	if b := getTable(tbl, "budget_effect"); b != nil {
		opt.Consequences.BudgetEffect = compileBand(b)
	}
	if r := getTable(tbl, "reputation_effect"); r != nil {
		opt.Consequences.ReputationEffect = compileBand(r)
	}
	forEachArray(getTable(tbl, "expects"), func(t *lua.LTable) {
		opt.Consequences.ExpectedActions = append(opt.Consequences.ExpectedActions, types.ExpectedActionSpec{
			ActionType:  getString(t, "action_type"),
			TargetRef:   getString(t, "target_ref"),
			RuleID:      getString(t, "rule_id"),
			MechanicID:  getString(t, "mechanic_id"),
			Constraints: tableToAnyMap(getTable(t, "constraints")),
		})
	})
	return opt
}

func compileBand(tbl *lua.LTable) *types.BandedEffect {
	return &types.BandedEffect{
		Magnitude: types.Magnitude(getString(tbl, "magnitude")),
		Positive:  getBool(tbl, "positive", true),
	}
}

func compileSequence(raw rawDef) (types.Sequence, error) {
	tbl := raw.table
	seq := types.Sequence{
		ID:              raw.id,
		StakeholderID:   getString(tbl, "stakeholder"),
		StakeholderRole: getString(tbl, "stakeholder_role"),
		InitialDialogue: getString(tbl, "initial_dialogue"),
		FinalDialogue:   getString(tbl, "final_dialogue"),
		Nodes:           getStrings(tbl, "nodes"),
		ConsumesTime:    getBool(tbl, "consumes_time", true),
		Trigger:         types.TriggerProactive,
	}
	switch trigger := getString(tbl, "trigger"); trigger {
	case "", "proactive":
	case "inevitable":
		seq.Trigger = types.TriggerInevitable
	case "contingent":
		seq.Trigger = types.TriggerContingent
	default:
		return seq, fmt.Errorf("unknown trigger %q", trigger)
	}
	if sched := getTable(tbl, "schedule"); sched != nil {
		seq.Schedule = &types.SlotRef{
			Day:  getInt(sched, "day", 0),
			Slot: types.TimeSlot(getString(sched, "slot")),
		}
	}
	if cont := getTable(tbl, "contingent"); cont != nil {
		rules := &types.ContingentRules{
			StakeholderRole: getString(cont, "stakeholder"),
		}
		if v, ok := cont.RawGetString("budget_below").(lua.LNumber); ok {
			n := int(v)
			rules.BudgetBelow = &n
		}
		if v, ok := cont.RawGetString("trust_below").(lua.LNumber); ok {
			n := int(v)
			rules.TrustBelow = &n
		}
		if v, ok := cont.RawGetString("support_below").(lua.LNumber); ok {
			n := int(v)
			rules.SupportBelow = &n
		}
		seq.Contingent = rules
	}
	return seq, nil
}

func compileEmail(raw rawDef) types.EmailTemplate {
	tbl := raw.table
	return types.EmailTemplate{
		ID:                   raw.id,
		TriggerStakeholderID: getString(tbl, "trigger"),
		From:                 getString(tbl, "from"),
		Subject:              getString(tbl, "subject"),
		Body:                 getString(tbl, "body"),
		GrantsInformation:    getString(tbl, "grants_information"),
	}
}

func compileObjective(raw rawDef) (types.ObjectiveDefinition, error) {
	tbl := raw.table
	obj := types.ObjectiveDefinition{
		ID:            raw.id,
		Owner:         types.OwnerGlobal,
		StakeholderID: getString(tbl, "stakeholder"),
		Title:         getString(tbl, "title"),
		Description:   getString(tbl, "description"),
		RevealedBy:    getStrings(tbl, "revealed_by"),
		Weight:        getInt(tbl, "weight", 1),
	}
	if getString(tbl, "owner") == "npc" {
		obj.Owner = types.OwnerNPC
	}
	success := getTable(tbl, "success")
	if success == nil {
		return obj, fmt.Errorf("success conditions are required")
	}
	g, err := compileGroup(success)
	if err != nil {
		return obj, err
	}
	obj.Success = g
	if failure := getTable(tbl, "failure"); failure != nil {
		fg, err := compileGroup(failure)
		if err != nil {
			return obj, err
		}
		obj.Failure = &fg
	}
	return obj, nil
}

// compileGroup accepts either {all = {...}, any = {...}} or a bare
// array of conditions, which is shorthand for all.
func compileGroup(tbl *lua.LTable) (types.ConditionGroup, error) {
	var g types.ConditionGroup
	all := getTable(tbl, "all")
	anyTbl := getTable(tbl, "any")
	if all == nil && anyTbl == nil {
		all = tbl
	}
	var err error
	forEachArray(all, func(t *lua.LTable) {
		c, cerr := compileCondition(t)
		if cerr != nil && err == nil {
			err = cerr
			return
		}
		g.All = append(g.All, c)
	})
	forEachArray(anyTbl, func(t *lua.LTable) {
		c, cerr := compileCondition(t)
		if cerr != nil && err == nil {
			err = cerr
			return
		}
		g.Any = append(g.Any, c)
	})
	return g, err
}

func compileCondition(tbl *lua.LTable) (types.Condition, error) {
	switch condType := getString(tbl, "type"); condType {
	case "metric":
		return types.GlobalMetric{
			Metric: getString(tbl, "metric"),
			Op:     types.CompareOp(getString(tbl, "op")),
			Value:  getInt(tbl, "value", 0),
		}, nil
	case "stakeholder_metric":
		return types.StakeholderMetric{
			StakeholderID: getString(tbl, "stakeholder"),
			Metric:        getString(tbl, "metric"),
			Op:            types.CompareOp(getString(tbl, "op")),
			Value:         getInt(tbl, "value", 0),
		}, nil
	case "sequence_done":
		return types.CompletedSequence{SequenceID: getString(tbl, "sequence")}, nil
	case "scenario_done":
		return types.CompletedScenario{ScenarioID: getString(tbl, "scenario")}, nil
	case "did_action":
		return types.ActionCount{
			ActionType:        getString(tbl, "action_type"),
			TargetRefIncludes: getString(tbl, "target_includes"),
			MinCount:          getInt(tbl, "min", 1),
		}, nil
	default:
		return nil, fmt.Errorf("unknown condition type %q", condType)
	}
}
