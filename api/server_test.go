package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/wricardo/pushrules/game/config"
	"github.com/wricardo/pushrules/game/engine"
	"github.com/wricardo/pushrules/game/service"
	"github.com/wricardo/pushrules/game/session"
	"github.com/wricardo/pushrules/game/solver"
	"github.com/wricardo/pushrules/transport/websocket"
)

// createTestPack builds a walled two-level pack. Baba starts at (1,1) with
// the flag two cells to the right on the first level.
func createTestPack() *engine.LevelPack {
	rows := make([]string, engine.LevelHeight)
	rows[0] = strings.Repeat("#", engine.LevelWidth)
	rows[engine.LevelHeight-1] = rows[0]
	for y := 1; y < engine.LevelHeight-1; y++ {
		rows[y] = "#" + strings.Repeat(" ", engine.LevelWidth-2) + "#"
	}
	first := slices.Clone(rows)
	first[1] = "#@ $" + strings.Repeat(" ", engine.LevelWidth-5) + "#"

	return &engine.LevelPack{
		Name:        "test",
		Description: "Test pack",
		Levels: []engine.LevelConfig{
			{Name: "First", Layout: first},
			{Name: "Second", Layout: first},
		},
	}
}

// newTestServer wires the real service, session and pack managers behind
// the router, with the test pack saved as "test"
func newTestServer(t *testing.T) *Server {
	t.Helper()

	packs, err := config.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create pack manager: %v", err)
	}
	if err := packs.SavePack("test", createTestPack()); err != nil {
		t.Fatalf("Failed to save test pack: %v", err)
	}

	hub := websocket.NewHub()
	svc := service.NewGameService(session.NewManager(), packs, service.WithNotifier(hub))
	return NewServer(svc, hub)
}

func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
	return v
}

func createSession(t *testing.T, s *Server, pack string) string {
	t.Helper()
	w := doRequest(t, s, "POST", "/api/sessions", map[string]string{"pack": pack})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201 creating session, got %d: %s", w.Code, w.Body.String())
	}
	return decode[service.SessionInfo](t, w).ID
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := doRequest(t, s, "GET", "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestCreateSession(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantPack   string
	}{
		{"default pack", nil, http.StatusCreated, "default"},
		{"named pack", map[string]string{"pack": "test"}, http.StatusCreated, "test"},
		{"unknown pack", map[string]string{"pack": "missing"}, http.StatusNotFound, ""},
		{"bad body", "{not json", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, s, "POST", "/api/sessions", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("Expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantPack != "" {
				info := decode[service.SessionInfo](t, w)
				if info.PackID != tt.wantPack {
					t.Errorf("Expected pack %q, got %q", tt.wantPack, info.PackID)
				}
				if len(info.State.Rows) != engine.LevelHeight {
					t.Errorf("Expected %d rows, got %d", engine.LevelHeight, len(info.State.Rows))
				}
			}
		})
	}
}

func TestSessionEndpoints(t *testing.T) {
	s := newTestServer(t)
	first := createSession(t, s, "test")
	createSession(t, s, "test")
	createSession(t, s, "")

	w := doRequest(t, s, "GET", "/api/sessions?limit=2&sort=created&order=asc", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	list := decode[struct {
		Count    int                    `json:"count"`
		Total    int                    `json:"total"`
		Sessions []*service.SessionInfo `json:"sessions"`
	}](t, w)
	if list.Count != 2 || list.Total != 3 {
		t.Errorf("Expected 2 of 3 sessions, got %d of %d", list.Count, list.Total)
	}
	if list.Sessions[0].ID != first {
		t.Errorf("Expected oldest session %s first, got %s", first, list.Sessions[0].ID)
	}

	if w := doRequest(t, s, "GET", "/api/sessions/"+first, nil); w.Code != http.StatusOK {
		t.Errorf("Expected 200 for existing session, got %d", w.Code)
	}
	if w := doRequest(t, s, "GET", "/api/sessions/"+first+"/state", nil); w.Code != http.StatusOK {
		t.Errorf("Expected 200 for state, got %d", w.Code)
	}
	if w := doRequest(t, s, "DELETE", "/api/sessions/"+first, nil); w.Code != http.StatusOK {
		t.Errorf("Expected 200 deleting session, got %d", w.Code)
	}
	if w := doRequest(t, s, "GET", "/api/sessions/"+first, nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", w.Code)
	}
	if w := doRequest(t, s, "DELETE", "/api/sessions/"+first, nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 deleting twice, got %d", w.Code)
	}
}

func TestMove(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s, "test")

	tests := []struct {
		name       string
		session    string
		body       any
		wantStatus int
	}{
		{"direction name", id, map[string]string{"direction": "down"}, http.StatusOK},
		{"key shortcut", id, map[string]string{"direction": "w"}, http.StatusOK},
		{"not a direction", id, map[string]string{"direction": "undo"}, http.StatusBadRequest},
		{"unknown direction", id, map[string]string{"direction": "diagonal"}, http.StatusBadRequest},
		{"bad body", id, "nope", http.StatusBadRequest},
		{"unknown session", "zzzz", map[string]string{"direction": "up"}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, s, "POST", "/api/sessions/"+tt.session+"/move", tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("Expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestMoveToVictoryAndLevelActions(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s, "test")
	base := "/api/sessions/" + id

	doRequest(t, s, "POST", base+"/move", map[string]string{"direction": "right"})
	w := doRequest(t, s, "POST", base+"/move", map[string]string{"direction": "right"})
	resp := decode[service.ActionResponse](t, w)
	if !resp.State.Win {
		t.Fatalf("Expected win after two moves right, got %+v", resp.Result)
	}

	w = doRequest(t, s, "POST", base+"/move", map[string]string{"direction": "down"})
	resp = decode[service.ActionResponse](t, w)
	if resp.Result.Ignored != engine.IgnoredLevelComplete {
		t.Errorf("Expected level_complete, got %q", resp.Result.Ignored)
	}

	resp = decode[service.ActionResponse](t, doRequest(t, s, "POST", base+"/undo", nil))
	if !resp.Result.Applied || resp.State.Win {
		t.Errorf("Expected undo to reopen the level, got %+v", resp.Result)
	}

	resp = decode[service.ActionResponse](t, doRequest(t, s, "POST", base+"/next", nil))
	if resp.State.Level != 1 {
		t.Errorf("Expected level 1, got %d", resp.State.Level)
	}

	resp = decode[service.ActionResponse](t, doRequest(t, s, "POST", base+"/previous", nil))
	if resp.State.Level != 0 || resp.State.HistoryDepth != 1 {
		t.Errorf("Expected fresh level 0, got level %d depth %d", resp.State.Level, resp.State.HistoryDepth)
	}

	resp = decode[service.ActionResponse](t, doRequest(t, s, "POST", base+"/reset", nil))
	if resp.State.Moves != 0 {
		t.Errorf("Expected reset to clear moves, got %d", resp.State.Moves)
	}
}

func TestBulkMove(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s, "test")
	path := "/api/sessions/" + id + "/bulk-move"

	w := doRequest(t, s, "POST", path, map[string][]string{"moves": {"d", "d", "s"}})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	result := decode[service.BulkActionResult](t, w)
	if result.StopReasonCode != "victory" || result.ActionsExecuted != 2 {
		t.Errorf("Expected victory after 2 moves, got %q after %d", result.StopReasonCode, result.ActionsExecuted)
	}

	if w := doRequest(t, s, "POST", path, map[string][]string{"moves": {"up", "fly"}}); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid move, got %d", w.Code)
	}
	if w := doRequest(t, s, "POST", path, map[string][]string{"moves": {}}); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty moves, got %d", w.Code)
	}
}

func TestRules(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s, "test")
	path := "/api/sessions/" + id + "/rules"

	w := doRequest(t, s, "GET", path, nil)
	rules := decode[struct {
		Count int           `json:"count"`
		Rules []engine.Rule `json:"rules"`
	}](t, w)
	if rules.Count != engine.DefaultRules().Len() {
		t.Errorf("Expected %d rules, got %d", engine.DefaultRules().Len(), rules.Count)
	}

	w = doRequest(t, s, "POST", path, map[string]string{"kind": "rock", "property": "you"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	view := decode[service.StateView](t, w)
	if !slices.Contains(view.Rules["you"], engine.Rock) {
		t.Errorf("Expected rock in you set, got %v", view.Rules["you"])
	}

	tests := []struct {
		name string
		body map[string]string
	}{
		{"unknown kind", map[string]string{"kind": "ghost", "property": "you"}},
		{"unknown property", map[string]string{"kind": "rock", "property": "fly"}},
		{"empty kind", map[string]string{"kind": "empty", "property": "win"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := doRequest(t, s, "POST", path, tt.body); w.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestSolve(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s, "test")
	path := "/api/sessions/" + id + "/solve"

	w := doRequest(t, s, "GET", path, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	sol := decode[struct {
		Moves  []engine.Action `json:"moves"`
		Length int             `json:"length"`
	}](t, w)
	if sol.Length != 2 || !slices.Equal(sol.Moves, []engine.Action{engine.ActionRight, engine.ActionRight}) {
		t.Errorf("Expected [right right], got %v", sol.Moves)
	}

	if w := doRequest(t, s, "GET", path+"?max_states=abc", nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad bound, got %d", w.Code)
	}

	// A stop flag can never be entered
	doRequest(t, s, "POST", "/api/sessions/"+id+"/rules", map[string]string{"kind": "flag", "property": "stop"})
	if w := doRequest(t, s, "GET", path, nil); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 without a solution, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPacks(t *testing.T) {
	s := newTestServer(t)

	packs := decode[[]*service.PackInfo](t, doRequest(t, s, "GET", "/api/packs", nil))
	if len(packs) != 2 || packs[0].PackID != "default" || packs[1].PackID != "test" {
		t.Errorf("Unexpected pack list: %+v", packs)
	}

	if w := doRequest(t, s, "GET", "/api/packs/test", nil); w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
	if w := doRequest(t, s, "GET", "/api/packs/missing", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}

	pack := createTestPack()
	pack.Name = "Uploaded"
	if w := doRequest(t, s, "PUT", "/api/packs/uploaded", pack); w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if id := createSession(t, s, "uploaded"); id == "" {
		t.Error("Expected a session on the uploaded pack")
	}

	pack.Name = "posted"
	if w := doRequest(t, s, "POST", "/api/packs", pack); w.Code != http.StatusCreated {
		t.Errorf("Expected 201 for POST, got %d: %s", w.Code, w.Body.String())
	}

	broken := createTestPack()
	broken.Levels[0].Layout = broken.Levels[0].Layout[:3]
	if w := doRequest(t, s, "PUT", "/api/packs/broken", broken); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid pack, got %d", w.Code)
	}
	if w := doRequest(t, s, "POST", "/api/packs", map[string]string{"description": "no name"}); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without a name, got %d", w.Code)
	}
}

func TestWebSocketRequiresSession(t *testing.T) {
	s := newTestServer(t)

	if w := doRequest(t, s, "GET", "/ws", nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without session, got %d", w.Code)
	}
	if w := doRequest(t, s, "GET", "/ws?session=zzzz", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown session, got %d", w.Code)
	}
}

func TestMount(t *testing.T) {
	s := newTestServer(t)
	s.Mount("/extra", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "mounted")
	}))

	w := doRequest(t, s, "GET", "/extra/thing", nil)
	if w.Code != http.StatusOK || w.Body.String() != "mounted" {
		t.Errorf("Expected mounted handler, got %d %q", w.Code, w.Body.String())
	}
}

func TestRespondServiceError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: ab12", service.ErrSessionNotFound), http.StatusNotFound},
		{service.ErrPackNotFound, http.StatusNotFound},
		{fmt.Errorf("wrap: %w", service.ErrInvalidAction), http.StatusBadRequest},
		{service.ErrInvalidPack, http.StatusBadRequest},
		{solver.ErrNoSolution, http.StatusUnprocessableEntity},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			respondServiceError(w, tt.err)
			if w.Code != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, w.Code)
			}
			body := decode[map[string]string](t, w)
			if body["error"] == "" {
				t.Error("Expected error message in body")
			}
		})
	}
}
