package export

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/vreyes/stakecraft/engine/session"
	"github.com/vreyes/stakecraft/engine/state"
	"github.com/vreyes/stakecraft/types"
)

func testSession() *session.Session {
	p := &state.Pack{
		Title:         "Test",
		PlayerName:    "Alex",
		TimeSlots:     []types.TimeSlot{"AM", "PM"},
		InitialBudget: 1000,
		Stakeholders:  []types.Stakeholder{{ID: "cfo", Role: "CFO", MaxSupport: 10}},
		Sequences:     map[string]types.Sequence{},
	}
	return session.New(p, session.WithID("sess-42"))
}

func TestBuild_CarriesMetadataAndState(t *testing.T) {
	e := Build(testSession(), "Test", "1.0")
	if e.Metadata.SessionID != "sess-42" || e.Metadata.PlayerName != "Alex" {
		t.Errorf("metadata = %+v", e.Metadata)
	}
	if e.Metadata.Status != types.StatusPlaying {
		t.Errorf("status = %s", e.Metadata.Status)
	}
	if e.FinalState.Budget != 1000 {
		t.Errorf("budget = %d", e.FinalState.Budget)
	}
	if e.Metadata.StartedAt.IsZero() {
		t.Error("expected session start time recorded")
	}
	if e.Metadata.ExportedAt.Before(e.Metadata.StartedAt) {
		t.Errorf("export time %v precedes start %v", e.Metadata.ExportedAt, e.Metadata.StartedAt)
	}
}

func TestWriteFile_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.json")
	if err := WriteFile(Build(testSession(), "Test", "1.0"), path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var e Export
	if err := json.Unmarshal(data, &e); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if e.Metadata.SessionID != "sess-42" {
		t.Errorf("round-tripped id = %q", e.Metadata.SessionID)
	}
}

func TestClient_ResolveDay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sessions/sess-42/resolve_day_effects" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("day") != "3" {
			t.Errorf("day = %s", r.URL.Query().Get("day"))
		}
		var req resolveDayRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(session.DayDeltas{Budget: -500, Trust: map[string]int{"cfo": 2}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	deltas, err := c.ResolveDay("sess-42", 3, []types.ComparisonResult{{ExpectedActionID: "e1", Outcome: types.OutcomeDoneOK}})
	if err != nil {
		t.Fatalf("ResolveDay: %v", err)
	}
	if deltas.Budget != -500 || deltas.Trust["cfo"] != 2 {
		t.Errorf("deltas = %+v", deltas)
	}
}

func TestClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if _, err := c.ResolveDay("x", 1, nil); err == nil {
		t.Error("expected error on 500 response")
	}
}
