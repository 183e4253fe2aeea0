package roster

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// lowerNormalize is a minimal NormalizeFunc for tests: the engine's real
// normalizer lives a package up and is injected the same way.
func lowerNormalize(raw string) (string, []string) {
	tokens := strings.Fields(strings.ToLower(raw))
	return strings.Join(tokens, " "), tokens
}

func mkPlayer(id int64, name, nationality string) Player {
	normalized, tokens := lowerNormalize(name)
	return Player{
		ID:          id,
		Name:        name,
		Normalized:  normalized,
		Tokens:      tokens,
		Mononym:     len(tokens) == 1,
		Nationality: nationality,
	}
}

func testSnapshot() *Snapshot {
	players := []Player{
		mkPlayer(1, "Cristiano Ronaldo", "Portugal"),
		mkPlayer(2, "Ronaldo", "Brazil"),
		mkPlayer(3, "Ronaldinho", "Brazil"),
		mkPlayer(4, "Lionel Messi", "Argentina"),
		mkPlayer(5, "Cristian Romero", "Argentina"),
	}
	return NewSnapshot(&Manifest{ID: "test"}, players)
}

func TestSnapshotExact(t *testing.T) {
	s := testSnapshot()
	ctx := context.Background()

	got, err := s.Exact(ctx, "lionel messi")
	if err != nil {
		t.Fatalf("Exact: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Lionel Messi" {
		t.Fatalf("Exact(lionel messi) = %v, want [Lionel Messi]", got)
	}

	got, err = s.Exact(ctx, "messi")
	if err != nil {
		t.Fatalf("Exact: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Exact(messi) = %v, want empty", got)
	}
}

func TestSnapshotPrefix(t *testing.T) {
	s := testSnapshot()
	ctx := context.Background()

	got, err := s.Prefix(ctx, "cristian", 10)
	if err != nil {
		t.Fatalf("Prefix: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Prefix(cristian) returned %d players, want 2", len(got))
	}
	// Ordered by normalized name.
	if got[0].Name != "Cristian Romero" || got[1].Name != "Cristiano Ronaldo" {
		t.Errorf("Prefix order = [%s, %s]", got[0].Name, got[1].Name)
	}

	got, err = s.Prefix(ctx, "cristian", 1)
	if err != nil {
		t.Fatalf("Prefix: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("limit 1 returned %d players", len(got))
	}

	got, err = s.Prefix(ctx, "", 10)
	if err != nil || got != nil {
		t.Errorf("empty prefix = %v, %v; want nil, nil", got, err)
	}
}

func TestSnapshotTokens(t *testing.T) {
	s := testSnapshot()
	ctx := context.Background()

	// Whole-token match on "ronaldo" plus last-token prefix semantics.
	got, err := s.Tokens(ctx, []string{"ronaldo"}, 10)
	if err != nil {
		t.Fatalf("Tokens: %v", err)
	}
	// "ronaldo" prefix-matches the token "ronaldo" but not "ronaldinho".
	if len(got) != 2 {
		t.Fatalf("Tokens(ronaldo) returned %d players, want 2", len(got))
	}
	// Fewer name tokens rank first: the mononym before the full name.
	if got[0].Name != "Ronaldo" || got[1].Name != "Cristiano Ronaldo" {
		t.Errorf("Tokens order = [%s, %s]", got[0].Name, got[1].Name)
	}

	// Non-last tokens must match whole: "ronal cristiano" fails, while
	// "ronaldo cristian" matches via the prefix on the last token.
	got, _ = s.Tokens(ctx, []string{"ronal", "cristiano"}, 10)
	if len(got) != 0 {
		t.Errorf("Tokens(ronal cristiano) = %v, want empty", got)
	}
	got, _ = s.Tokens(ctx, []string{"ronaldo", "cristian"}, 10)
	if len(got) != 1 || got[0].Name != "Cristiano Ronaldo" {
		t.Errorf("Tokens(ronaldo cristian) = %v, want [Cristiano Ronaldo]", got)
	}

	got, _ = s.Tokens(ctx, nil, 10)
	if got != nil {
		t.Errorf("Tokens(nil) = %v, want nil", got)
	}
}

func TestLoadSnapshotCSV(t *testing.T) {
	dir := t.TempDir()

	manifest := `id: test-roster
version: "2026-08"
source: test
license: CC0
data_file: players.csv
format:
  has_header: true
  columns:
    name: player_name
    nationality: country
    mononym: single_name
`
	csvData := `player_name,country,single_name
Cristiano Ronaldo,Portugal,false
Ronaldinho,Brazil,true
Cristiano Ronaldo,Portugal,false
,Brazil,false
`
	if err := os.WriteFile(filepath.Join(dir, "manifest.yaml"), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "players.csv"), []byte(csvData), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadSnapshot(dir, lowerNormalize)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}

	// Duplicate and empty rows are dropped.
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}

	got, err := s.Exact(context.Background(), "ronaldinho")
	if err != nil {
		t.Fatalf("Exact: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Exact(ronaldinho) = %v", got)
	}
	if !got[0].Mononym {
		t.Error("mononym column not applied")
	}
}

func TestLoadSnapshotGobPriority(t *testing.T) {
	dir := t.TempDir()

	manifest := `id: gob-roster
version: "2026-08"
source: test
license: CC0
data_file: players.csv
`
	if err := os.WriteFile(filepath.Join(dir, "manifest.yaml"), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	// A CSV is present but the gob must win.
	if err := os.WriteFile(filepath.Join(dir, "players.csv"), []byte("name\nWrong Player\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	players := []Player{mkPlayer(1, "Lionel Messi", "Argentina")}
	if err := SaveGob(players, filepath.Join(dir, "data.gob")); err != nil {
		t.Fatalf("SaveGob: %v", err)
	}

	s, err := LoadSnapshot(dir, lowerNormalize)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
	got, _ := s.Exact(context.Background(), "lionel messi")
	if len(got) != 1 || got[0].Nationality != "Argentina" {
		t.Fatalf("gob snapshot not loaded: %v", got)
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "manifest.yaml"), []byte("id: minimal\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := LoadManifest(filepath.Join(dir, "manifest.yaml"))
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if m.DataFile != "data.csv" {
		t.Errorf("DataFile = %q, want data.csv", m.DataFile)
	}
	if m.Format.Columns.Name != "name" {
		t.Errorf("Columns.Name = %q, want name", m.Format.Columns.Name)
	}
}

func TestLoadManifestMissingID(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "manifest.yaml"), []byte("version: x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadManifest(filepath.Join(dir, "manifest.yaml")); err == nil {
		t.Fatal("expected error for manifest without id")
	}
}
