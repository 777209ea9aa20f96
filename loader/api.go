package loader

import (
	lua "github.com/yuin/gopher-lua"
)

// registerAPI registers all Lua constructors and helpers as globals.
func registerAPI(L *lua.LState, coll *collector) {
	registerConstructors(L, coll)
	registerConditionHelpers(L)
	registerEffectHelpers(L)
}

// curried registers a `Name "id" { ... }` constructor appending into dst.
func curried(L *lua.LState, name string, dst *[]rawDef) {
	L.SetGlobal(name, L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			*dst = append(*dst, rawDef{id: id, table: tbl})
			return 0
		}))
		return 1
	}))
}

func registerConstructors(L *lua.LState, coll *collector) {
	// Simulation { title = "...", time_slots = {...}, ... }
	L.SetGlobal("Simulation", L.NewFunction(func(L *lua.LState) int {
		coll.simulation = L.CheckTable(1)
		return 0
	}))

	// Stakeholder "id" { ... } and the rest are curried: the
	// constructor takes the id and returns a function taking the body.
	curried(L, "Stakeholder", &coll.stakeholders)
	curried(L, "Node", &coll.nodes)
	curried(L, "Sequence", &coll.sequences)
	curried(L, "Email", &coll.emails)
	curried(L, "Document", &coll.documents)
	curried(L, "Objective", &coll.objectives)
}

func registerConditionHelpers(L *lua.LState) {
	// Metric("budget", ">=", 100000)
	L.SetGlobal("Metric", L.NewFunction(func(L *lua.LState) int {
		metric := L.CheckString(1)
		op := L.CheckString(2)
		value := L.CheckNumber(3)
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString("metric"))
		tbl.RawSetString("metric", lua.LString(metric))
		tbl.RawSetString("op", lua.LString(op))
		tbl.RawSetString("value", value)
		L.Push(tbl)
		return 1
	}))

	// StakeholderMetric("cfo", "trust", ">=", 70)
	L.SetGlobal("StakeholderMetric", L.NewFunction(func(L *lua.LState) int {
		sh := L.CheckString(1)
		metric := L.CheckString(2)
		op := L.CheckString(3)
		value := L.CheckNumber(4)
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString("stakeholder_metric"))
		tbl.RawSetString("stakeholder", lua.LString(sh))
		tbl.RawSetString("metric", lua.LString(metric))
		tbl.RawSetString("op", lua.LString(op))
		tbl.RawSetString("value", value)
		L.Push(tbl)
		return 1
	}))

	// SequenceDone("id")
	L.SetGlobal("SequenceDone", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString("sequence_done"))
		tbl.RawSetString("sequence", lua.LString(id))
		L.Push(tbl)
		return 1
	}))

	// ScenarioDone("id")
	L.SetGlobal("ScenarioDone", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString("scenario_done"))
		tbl.RawSetString("scenario", lua.LString(id))
		L.Push(tbl)
		return 1
	}))

	// DidAction("visit", { target_includes = "site", min = 2 })
	// The options table may be omitted; min defaults to 1.
	L.SetGlobal("DidAction", L.NewFunction(func(L *lua.LState) int {
		actionType := L.CheckString(1)
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString("did_action"))
		tbl.RawSetString("action_type", lua.LString(actionType))
		if opts, ok := L.Get(2).(*lua.LTable); ok {
			tbl.RawSetString("target_includes", opts.RawGetString("target_includes"))
			tbl.RawSetString("min", opts.RawGetString("min"))
		}
		L.Push(tbl)
		return 1
	}))
}

func registerEffectHelpers(L *lua.LState) {
	// BudgetGain("M") / BudgetLoss("L"): banded budget effects.
	L.SetGlobal("BudgetGain", L.NewFunction(bandHelper(true)))
	L.SetGlobal("BudgetLoss", L.NewFunction(bandHelper(false)))
	// RepGain("S") / RepLoss("M"): banded reputation effects.
	L.SetGlobal("RepGain", L.NewFunction(bandHelper(true)))
	L.SetGlobal("RepLoss", L.NewFunction(bandHelper(false)))

	// Expect("set_meeting_time", "cfo", { rule_id = "meeting_time_rule_v1", constraints = {...} })
	L.SetGlobal("Expect", L.NewFunction(func(L *lua.LState) int {
		actionType := L.CheckString(1)
		targetRef := L.CheckString(2)
		tbl := L.NewTable()
		tbl.RawSetString("action_type", lua.LString(actionType))
		tbl.RawSetString("target_ref", lua.LString(targetRef))
		if opts, ok := L.Get(3).(*lua.LTable); ok {
			tbl.RawSetString("rule_id", opts.RawGetString("rule_id"))
			tbl.RawSetString("mechanic_id", opts.RawGetString("mechanic_id"))
			tbl.RawSetString("constraints", opts.RawGetString("constraints"))
		}
		L.Push(tbl)
		return 1
	}))

	// At(day, "MORNING"): a schedule slot for inevitable sequences.
	L.SetGlobal("At", L.NewFunction(func(L *lua.LState) int {
		day := L.CheckNumber(1)
		slot := L.CheckString(2)
		tbl := L.NewTable()
		tbl.RawSetString("day", day)
		tbl.RawSetString("slot", lua.LString(slot))
		L.Push(tbl)
		return 1
	}))
}

func bandHelper(positive bool) lua.LGFunction {
	return func(L *lua.LState) int {
		magnitude := L.CheckString(1)
		tbl := L.NewTable()
		tbl.RawSetString("magnitude", lua.LString(magnitude))
		tbl.RawSetString("positive", lua.LBool(positive))
		L.Push(tbl)
		return 1
	}
}
