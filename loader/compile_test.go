package loader

import (
	"reflect"
	"testing"

	lua "github.com/yuin/gopher-lua"
)

func luaEval(t *testing.T, src string) *lua.LTable {
	t.Helper()
	L := lua.NewState()
	t.Cleanup(L.Close)
	if err := L.DoString("result = " + src); err != nil {
		t.Fatalf("lua error: %v", err)
	}
	tbl, ok := L.GetGlobal("result").(*lua.LTable)
	if !ok {
		t.Fatal("expression did not yield a table")
	}
	return tbl
}

func TestToGoValue_NestedTable(t *testing.T) {
	tbl := luaEval(t, `{ name = "x", count = 3, ratio = 1.5, tags = { "a", "b" }, meta = { deep = true } }`)
	got := toGoValue(tbl).(map[string]any)
	want := map[string]any{
		"name":  "x",
		"count": 3,
		"ratio": 1.5,
		"tags":  []any{"a", "b"},
		"meta":  map[string]any{"deep": true},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("toGoValue = %#v, want %#v", got, want)
	}
}

func TestToGoValue_WholeNumbersBecomeInts(t *testing.T) {
	tbl := luaEval(t, `{ n = 42 }`)
	got := toGoValue(tbl).(map[string]any)
	if _, ok := got["n"].(int); !ok {
		t.Errorf("expected int, got %T", got["n"])
	}
}

func TestGetStrings_BareStringIsSingletonList(t *testing.T) {
	tbl := luaEval(t, `{ revealed_by = "intro" }`)
	got := getStrings(tbl, "revealed_by")
	if len(got) != 1 || got[0] != "intro" {
		t.Errorf("getStrings = %v", got)
	}
}

func TestGetInt_DefaultWhenMissing(t *testing.T) {
	tbl := luaEval(t, `{}`)
	if got := getInt(tbl, "trust", 50); got != 50 {
		t.Errorf("expected default 50, got %d", got)
	}
}
