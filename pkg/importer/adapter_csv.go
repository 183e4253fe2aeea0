package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mezzala/gaffer/pkg/match"
	"github.com/mezzala/gaffer/pkg/roster"
)

func init() {
	Register(&csvRosterAdapter{})
}

// csvRosterAdapter loads a roster from a CSV file, either a local path or an
// HTTP(S) URL, optionally inside a ZIP archive. The header must contain a
// "name" column; "wikidata_id", "nationality", "position" and "mononym" are
// picked up when present.
type csvRosterAdapter struct{}

func (a *csvRosterAdapter) ID() string          { return "roster-csv" }
func (a *csvRosterAdapter) Description() string { return "Roster CSV file (local path or URL)" }
func (a *csvRosterAdapter) DefaultURL() string  { return "file://roster.csv" }
func (a *csvRosterAdapter) License() string     { return "source-dependent" }

func (a *csvRosterAdapter) Import(ctx context.Context, sourceURL string, store *roster.Store) error {
	path := strings.TrimPrefix(sourceURL, "file://")

	if strings.HasPrefix(sourceURL, "http://") || strings.HasPrefix(sourceURL, "https://") {
		dlDir, err := os.MkdirTemp("", "gaffer-import-")
		if err != nil {
			return err
		}
		defer os.RemoveAll(dlDir)

		path = filepath.Join(dlDir, filepath.Base(sourceURL))
		fmt.Printf("  downloading %s...\n", sourceURL)
		if err := downloadFile(ctx, sourceURL, path); err != nil {
			return fmt.Errorf("download: %w", err)
		}
	}

	if strings.HasSuffix(strings.ToLower(path), ".zip") {
		extractDir := filepath.Dir(path)
		files, err := unzipFile(path, extractDir)
		if err != nil {
			return fmt.Errorf("unzip: %w", err)
		}
		path = ""
		for _, f := range files {
			if strings.HasSuffix(strings.ToLower(f), ".csv") {
				path = f
				break
			}
		}
		if path == "" {
			return fmt.Errorf("no CSV found in ZIP")
		}
	}

	players, err := parseRosterCSV(path)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	fmt.Printf("  importing %d players\n", len(players))
	return store.ImportPlayers(ctx, players)
}

// parseRosterCSV reads a roster CSV with a header row into players.
func parseRosterCSV(path string) ([]roster.Player, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	colIdx := make(map[string]int)
	for i, h := range header {
		colIdx[strings.TrimSpace(strings.ToLower(h))] = i
	}

	nameCol, hasName := colIdx["name"]
	if !hasName {
		return nil, fmt.Errorf("column 'name' not found in header %v", header)
	}

	field := func(record []string, col string) string {
		idx, ok := colIdx[col]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	seen := make(map[string]bool)
	var players []roster.Player
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if nameCol >= len(record) {
			continue
		}

		name := strings.TrimSpace(record[nameCol])
		if name == "" {
			continue
		}

		normalized, tokens := match.NormalizeName(name)
		nationality := field(record, "nationality")
		key := normalized + "\x00" + nationality
		if seen[key] {
			continue
		}
		seen[key] = true

		mononym := len(tokens) == 1
		switch strings.ToLower(field(record, "mononym")) {
		case "true", "1", "yes":
			mononym = true
		}

		players = append(players, roster.Player{
			WikidataID:  field(record, "wikidata_id"),
			Name:        name,
			Normalized:  normalized,
			Tokens:      tokens,
			Mononym:     mononym,
			Nationality: nationality,
			Position:    field(record, "position"),
		})
	}
	return players, nil
}
