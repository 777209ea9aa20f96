package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/vreyes/stakecraft/engine/session"
	"github.com/vreyes/stakecraft/types"
)

func testServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return New(store).Router()
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createTestSession(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/sessions", gin.H{"player_name": "Alex"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create session: %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp.SessionID
}

func TestHealth(t *testing.T) {
	r := testServer(t)
	w := doJSON(t, r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("health = %d", w.Code)
	}
}

func TestCreateAndGetSession(t *testing.T) {
	r := testServer(t)
	id := createTestSession(t, r)

	w := doJSON(t, r, http.MethodGet, "/sessions/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get session: %d", w.Code)
	}
	var rec SessionRecord
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatal(err)
	}
	if rec.PlayerName != "Alex" {
		t.Errorf("player = %q", rec.PlayerName)
	}
}

func TestCreateSession_RequiresPlayerName(t *testing.T) {
	r := testServer(t)
	w := doJSON(t, r, http.MethodPost, "/sessions", gin.H{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestGetSession_NotFound(t *testing.T) {
	r := testServer(t)
	w := doJSON(t, r, http.MethodGet, "/sessions/ghost", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestResolveDayEffects_ComputesDeltas(t *testing.T) {
	r := testServer(t)
	id := createTestSession(t, r)

	body := gin.H{"comparisons": []types.ComparisonResult{
		{ExpectedActionID: "e1", Outcome: types.OutcomeDoneOK},
		{ExpectedActionID: "e2", Outcome: types.OutcomeDeviation},
		{ExpectedActionID: "e3", Outcome: types.OutcomeNotDone},
	}}
	w := doJSON(t, r, http.MethodPost, "/sessions/"+id+"/resolve_day_effects?day=1", body)
	if w.Code != http.StatusOK {
		t.Fatalf("resolve: %d %s", w.Code, w.Body.String())
	}
	var deltas session.DayDeltas
	if err := json.Unmarshal(w.Body.Bytes(), &deltas); err != nil {
		t.Fatal(err)
	}
	if deltas.Reputation != -2 || deltas.Budget != -5000 {
		t.Errorf("deltas = %+v", deltas)
	}
}

func TestResolveDayEffects_CachedPerDay(t *testing.T) {
	r := testServer(t)
	id := createTestSession(t, r)

	first := gin.H{"comparisons": []types.ComparisonResult{
		{ExpectedActionID: "e1", Outcome: types.OutcomeDoneOK},
	}}
	w := doJSON(t, r, http.MethodPost, "/sessions/"+id+"/resolve_day_effects?day=2", first)
	if w.Code != http.StatusOK {
		t.Fatalf("first resolve: %d", w.Code)
	}

	// A retry with different comparisons returns the cached result.
	second := gin.H{"comparisons": []types.ComparisonResult{
		{ExpectedActionID: "e1", Outcome: types.OutcomeDeviation},
		{ExpectedActionID: "e2", Outcome: types.OutcomeDeviation},
	}}
	w = doJSON(t, r, http.MethodPost, "/sessions/"+id+"/resolve_day_effects?day=2", second)
	if w.Code != http.StatusOK {
		t.Fatalf("second resolve: %d", w.Code)
	}
	var deltas session.DayDeltas
	if err := json.Unmarshal(w.Body.Bytes(), &deltas); err != nil {
		t.Fatal(err)
	}
	if deltas.Reputation != 1 {
		t.Errorf("expected cached deltas, got %+v", deltas)
	}
}

func TestResolveDayEffects_BadDay(t *testing.T) {
	r := testServer(t)
	id := createTestSession(t, r)
	w := doJSON(t, r, http.MethodPost, "/sessions/"+id+"/resolve_day_effects?day=zero", gin.H{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestResolveDayEffects_UnknownSession(t *testing.T) {
	r := testServer(t)
	w := doJSON(t, r, http.MethodPost, "/sessions/ghost/resolve_day_effects?day=1", gin.H{})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
