package importer

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mezzala/gaffer/pkg/match"
	"github.com/mezzala/gaffer/pkg/roster"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roster.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestParseRosterCSV(t *testing.T) {
	path := writeCSV(t, `name,wikidata_id,nationality,position,mononym
Cristiano Ronaldo,Q11571,Portugal,Forward,
Ronaldinho,Q39444,Brazil,Midfielder,true
,Q1,Nowhere,,
Cristiano Ronaldo,Q11571,Portugal,Forward,
`)

	players, err := parseRosterCSV(path)
	if err != nil {
		t.Fatalf("parseRosterCSV: %v", err)
	}
	// The empty name and the duplicate are dropped.
	if len(players) != 2 {
		t.Fatalf("len = %d, want 2", len(players))
	}

	cr := players[0]
	if cr.Name != "Cristiano Ronaldo" || cr.WikidataID != "Q11571" {
		t.Errorf("players[0] = %+v", cr)
	}
	if cr.Normalized != "cristiano ronaldo" || len(cr.Tokens) != 2 {
		t.Errorf("normalization: %q %v", cr.Normalized, cr.Tokens)
	}
	if cr.Mononym {
		t.Error("two-token name flagged as mononym")
	}

	if !players[1].Mononym {
		t.Error("Ronaldinho should be a mononym")
	}
}

func TestParseRosterCSV_ColumnOrder(t *testing.T) {
	// Columns in a different order, extra unknown columns, uppercase header.
	path := writeCSV(t, `Position,NAME,club,Nationality
Forward,Erling Haaland,Manchester City,Norway
`)

	players, err := parseRosterCSV(path)
	if err != nil {
		t.Fatalf("parseRosterCSV: %v", err)
	}
	if len(players) != 1 {
		t.Fatalf("len = %d, want 1", len(players))
	}
	p := players[0]
	if p.Name != "Erling Haaland" || p.Nationality != "Norway" || p.Position != "Forward" {
		t.Errorf("player = %+v", p)
	}
}

func TestParseRosterCSV_MissingNameColumn(t *testing.T) {
	path := writeCSV(t, "player,country\nMessi,Argentina\n")

	if _, err := parseRosterCSV(path); err == nil {
		t.Fatal("expected error for header without a name column")
	}
}

func TestCollectPlayers(t *testing.T) {
	raw := `{"results":{"bindings":[
		{"wikidataId":{"value":"Q11571"},"playerLabel":{"value":"Cristiano Ronaldo"},
		 "nationalityLabel":{"value":"Portugal"},"positionLabel":{"value":"forward"}},
		{"wikidataId":{"value":"Q615"},"playerLabel":{"value":"Lionel Messi"}},
		{"wikidataId":{"value":"Q999999"},"playerLabel":{"value":"Q999999"}},
		{"wikidataId":{"value":"Q11571"},"playerLabel":{"value":"Cristiano Ronaldo"}},
		{"wikidataId":{"value":""},"playerLabel":{"value":"No ID"}}
	]}}`

	var resp sparqlResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	seen := make(map[string]bool)
	var players []roster.Player
	added := collectPlayers(resp.Results.Bindings, seen, &players)

	// The Q-number label, the duplicate and the missing ID are all skipped.
	if added != 2 || len(players) != 2 {
		t.Fatalf("added = %d, len = %d, want 2", added, len(players))
	}
	if players[0].WikidataID != "Q11571" || players[0].Nationality != "Portugal" {
		t.Errorf("players[0] = %+v", players[0])
	}
	if players[1].Name != "Lionel Messi" || players[1].Nationality != "" {
		t.Errorf("players[1] = %+v", players[1])
	}
	if players[0].Mononym || players[1].Mononym {
		t.Error("two-token names flagged as mononyms")
	}
}

func TestIsQID(t *testing.T) {
	cases := map[string]bool{
		"Q11571":  true,
		"Q1":      true,
		"Quaresma": false,
		"Q":        false,
		"messi":    false,
		"":         false,
	}
	for in, want := range cases {
		if got := isQID(in); got != want {
			t.Errorf("isQID(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTruncateDate(t *testing.T) {
	if got := truncateDate("2003-08-12T00:00:00Z"); got != "2003-08-12" {
		t.Errorf("got %q", got)
	}
	if got := truncateDate("2003-08-12"); got != "2003-08-12" {
		t.Errorf("got %q", got)
	}
	if got := truncateDate(""); got != "" {
		t.Errorf("got %q", got)
	}
}

func TestFDTeamsResponseDecode(t *testing.T) {
	raw := `{"teams":[{"id":65,"name":"Manchester City FC",
		"area":{"name":"England"},
		"squad":[{"id":3754,"name":"Erling Haaland","position":"Centre-Forward","nationality":"Norway"}]}]}`

	var resp fdTeamsResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Teams) != 1 {
		t.Fatalf("teams = %d, want 1", len(resp.Teams))
	}
	team := resp.Teams[0]
	if team.ID != 65 || team.Area.Name != "England" {
		t.Errorf("team = %+v", team)
	}
	if len(team.Squad) != 1 || team.Squad[0].Name != "Erling Haaland" {
		t.Errorf("squad = %+v", team.Squad)
	}
}

func TestRegistry(t *testing.T) {
	// The built-in adapters register themselves in init.
	for _, id := range []string{"wikidata-players", "wikidata-careers", "football-data", "roster-csv"} {
		if _, err := Get(id); err != nil {
			t.Errorf("Get(%q): %v", id, err)
		}
	}
	if _, err := Get("no-such-adapter"); err == nil {
		t.Error("expected error for unknown adapter")
	}

	all := All()
	if len(all) < 4 {
		t.Errorf("All() = %d adapters, want at least 4", len(all))
	}
}

func TestExportSnapshotRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "gaffer.db")
	store, err := roster.OpenStore(dbPath)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()

	players, err := parseRosterCSV(writeCSV(t, "name,nationality\nLionel Messi,Argentina\nRonaldinho,Brazil\n"))
	if err != nil {
		t.Fatalf("parseRosterCSV: %v", err)
	}
	ctx := context.Background()
	if err := store.ImportPlayers(ctx, players); err != nil {
		t.Fatalf("ImportPlayers: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "snapshot")
	if err := ExportSnapshot(ctx, store, dir, "test-roster", "2026-08"); err != nil {
		t.Fatalf("ExportSnapshot: %v", err)
	}

	snap, err := roster.LoadSnapshot(dir, match.NormalizeName)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if snap.Len() != 2 {
		t.Errorf("snapshot len = %d, want 2", snap.Len())
	}
}
