package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mezzala/gaffer/pkg/match"
	"github.com/mezzala/gaffer/pkg/roster"
	"github.com/mezzala/gaffer/pkg/session"
)

// testServer wires the full stack the way cmd/server does: a SQLite roster
// store behind the resolver, the session store on the same file, and the
// router on top.
func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gaffer.db")

	store, err := roster.OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	fixtures := []struct {
		name, nationality, position string
		mononym                     bool
	}{
		{"Cristiano Ronaldo", "Portugal", "Forward", false},
		{"Ronaldo", "Brazil", "Forward", true},
		{"Lionel Messi", "Argentina", "Forward", false},
		{"Danilo", "Brazil", "Defender", true},
		{"Danilo", "Portugal", "Defender", true},
	}
	players := make([]roster.Player, len(fixtures))
	for i, f := range fixtures {
		normalized, tokens := match.NormalizeName(f.name)
		players[i] = roster.Player{
			Name:        f.name,
			Normalized:  normalized,
			Tokens:      tokens,
			Mononym:     f.mononym,
			Nationality: f.nationality,
			Position:    f.position,
		}
	}
	if err := store.ImportPlayers(context.Background(), players); err != nil {
		t.Fatalf("ImportPlayers: %v", err)
	}

	sessions, err := session.Open(path)
	if err != nil {
		t.Fatalf("session.Open: %v", err)
	}
	t.Cleanup(func() { sessions.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(Deps{
		Resolver: match.New(store, match.DefaultConfig(), logger),
		Cards:    store,
		Sessions: sessions,
		Logger:   logger,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, wantStatus int) map[string]any {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("GET %s: status = %d, want %d (body %s)", url, resp.StatusCode, wantStatus, body)
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return out
}

func postJSON(t *testing.T, url string, body any, wantStatus int) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatalf("encode body: %v", err)
	}
	resp, err := http.Post(url, "application/json", &buf)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("POST %s: status = %d, want %d (body %s)", url, resp.StatusCode, wantStatus, raw)
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return out
}

func TestHandlerResolveFound(t *testing.T) {
	srv := testServer(t)

	out := getJSON(t, srv.URL+"/v1/resolve/Lionel%20Messi", http.StatusOK)
	if out["status"] != "found" {
		t.Fatalf("status = %v, want found", out["status"])
	}
	if out["message"] != "Player found!" {
		t.Errorf("message = %v", out["message"])
	}
	player, ok := out["player"].(map[string]any)
	if !ok {
		t.Fatalf("player missing: %v", out)
	}
	if player["name"] != "Lionel Messi" {
		t.Errorf("player.name = %v", player["name"])
	}
}

func TestHandlerResolveNeedsFullName(t *testing.T) {
	srv := testServer(t)

	out := getJSON(t, srv.URL+"/v1/resolve/messi", http.StatusOK)
	if out["status"] != "need_full_name" {
		t.Fatalf("status = %v, want need_full_name", out["status"])
	}
	if out["message"] != "Please enter the player's first and last name." {
		t.Errorf("message = %v", out["message"])
	}
}

func TestHandlerResolveAmbiguous(t *testing.T) {
	srv := testServer(t)

	out := getJSON(t, srv.URL+"/v1/resolve/danilo", http.StatusOK)
	if out["status"] != "ambiguous" {
		t.Fatalf("status = %v, want ambiguous", out["status"])
	}
	if out["count"] != float64(2) {
		t.Errorf("count = %v, want 2", out["count"])
	}
	if !strings.Contains(out["message"].(string), "2 players") {
		t.Errorf("message = %v", out["message"])
	}
}

func TestHandlerResolveNotFound(t *testing.T) {
	srv := testServer(t)

	out := getJSON(t, srv.URL+"/v1/resolve/qwxz%20vbnm", http.StatusOK)
	if out["status"] != "not_found" {
		t.Fatalf("status = %v, want not_found", out["status"])
	}
	if out["message"] != "Player not found. Check the spelling and try again." {
		t.Errorf("message = %v", out["message"])
	}
}

func TestHandlerResolveBatch(t *testing.T) {
	srv := testServer(t)

	out := postJSON(t, srv.URL+"/v1/resolve/batch",
		map[string]any{"names": []string{"Lionel Messi", "nobody here"}}, http.StatusOK)
	results, ok := out["results"].([]any)
	if !ok || len(results) != 2 {
		t.Fatalf("results = %v, want 2 entries", out["results"])
	}
	first := results[0].(map[string]any)
	if first["status"] != "found" {
		t.Errorf("results[0].status = %v", first["status"])
	}
	second := results[1].(map[string]any)
	if second["status"] != "not_found" {
		t.Errorf("results[1].status = %v", second["status"])
	}
}

func TestHandlerResolveBatchLimits(t *testing.T) {
	srv := testServer(t)

	// Empty list.
	out := postJSON(t, srv.URL+"/v1/resolve/batch",
		map[string]any{"names": []string{}}, http.StatusBadRequest)
	if out["error"] == "" {
		t.Errorf("want error for empty names")
	}

	// Over the cap.
	names := make([]string, 101)
	for i := range names {
		names[i] = fmt.Sprintf("player %d", i)
	}
	out = postJSON(t, srv.URL+"/v1/resolve/batch",
		map[string]any{"names": names}, http.StatusBadRequest)
	if !strings.Contains(out["error"].(string), "too many names") {
		t.Errorf("error = %v", out["error"])
	}

	// Malformed body.
	resp, err := http.Post(srv.URL+"/v1/resolve/batch", "application/json",
		strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed body: status = %d, want 400", resp.StatusCode)
	}

	// GET is not allowed on the batch route.
	resp, err = http.Get(srv.URL + "/v1/resolve/batch")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET batch: status = %d, want 405", resp.StatusCode)
	}
}

func TestHandlerCard(t *testing.T) {
	srv := testServer(t)

	out := getJSON(t, srv.URL+"/v1/players/1", http.StatusOK)
	player, ok := out["player"].(map[string]any)
	if !ok {
		t.Fatalf("player missing: %v", out)
	}
	if player["name"] != "Cristiano Ronaldo" {
		t.Errorf("player.name = %v", player["name"])
	}

	out = getJSON(t, srv.URL+"/v1/players/99999", http.StatusNotFound)
	if out["error"] != "player not found" {
		t.Errorf("error = %v", out["error"])
	}

	getJSON(t, srv.URL+"/v1/players/abc", http.StatusBadRequest)
}

func TestHandlerStats(t *testing.T) {
	srv := testServer(t)

	out := getJSON(t, srv.URL+"/v1/stats", http.StatusOK)
	if out["total_players"] != float64(5) {
		t.Errorf("total_players = %v, want 5", out["total_players"])
	}
}

func TestHandlerSessionLifecycle(t *testing.T) {
	srv := testServer(t)

	created := postJSON(t, srv.URL+"/v1/sessions", map[string]any{}, http.StatusCreated)
	sess, ok := created["session"].(map[string]any)
	if !ok {
		t.Fatalf("session missing: %v", created)
	}
	id := int64(sess["id"].(float64))
	base := fmt.Sprintf("%s/v1/sessions/%d", srv.URL, id)

	// Record a guess for player 3 (Lionel Messi).
	guess := postJSON(t, base+"/guesses", map[string]any{"player_id": 3}, http.StatusOK)
	if guess["success"] != true || guess["already_guessed"] != false {
		t.Fatalf("guess = %v", guess)
	}

	// Repeat guess is flagged, not duplicated.
	guess = postJSON(t, base+"/guesses", map[string]any{"player_id": 3}, http.StatusOK)
	if guess["already_guessed"] != true {
		t.Fatalf("repeat guess = %v", guess)
	}

	got := getJSON(t, base, http.StatusOK)
	gotSess := got["session"].(map[string]any)
	if gotSess["player_count"] != float64(1) {
		t.Errorf("player_count = %v, want 1", gotSess["player_count"])
	}
	guessed, ok := got["players"].([]any)
	if !ok || len(guessed) != 1 {
		t.Fatalf("players = %v, want 1 entry", got["players"])
	}
	if guessed[0].(map[string]any)["name"] != "Lionel Messi" {
		t.Errorf("players[0].name = %v", guessed[0])
	}

	// Delete, then every further access is a 404.
	req, err := http.NewRequest(http.MethodDelete, base, nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("DELETE: status = %d, want 200", resp.StatusCode)
	}
	getJSON(t, base, http.StatusNotFound)
	postJSON(t, base+"/guesses", map[string]any{"player_id": 1}, http.StatusNotFound)
}

func TestHandlerHealth(t *testing.T) {
	srv := testServer(t)

	out := getJSON(t, srv.URL+"/v1/health", http.StatusOK)
	if out["status"] != "ok" {
		t.Errorf("status = %v, want ok", out["status"])
	}
	if out["players"] != float64(5) {
		t.Errorf("players = %v, want 5", out["players"])
	}
}

func TestHandlerCORSPreflight(t *testing.T) {
	srv := testServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/v1/resolve/x", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("missing CORS header")
	}
}
