package roster

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// NormalizeFunc canonicalizes a raw name into its normalized form and
// whitespace-delimited tokens. The engine's normalizer is passed in here so
// snapshot keys and query keys always agree.
type NormalizeFunc func(raw string) (normalized string, tokens []string)

// Snapshot is an immutable in-memory roster index. It serves the same Index
// contract as the SQLite store and is the backend of choice for tests and
// small deployments.
type Snapshot struct {
	Manifest *Manifest

	players []Player
	byName  map[string][]int
	// ordered holds player indices sorted by normalized name for prefix scans.
	ordered []int
}

// LoadSnapshot reads a snapshot directory (manifest.yaml plus data.gob or a
// CSV data file) into memory. Gob takes priority over CSV.
func LoadSnapshot(dir string, normalize NormalizeFunc) (*Snapshot, error) {
	manifest, err := LoadManifest(filepath.Join(dir, "manifest.yaml"))
	if err != nil {
		return nil, err
	}

	var players []Player
	gobPath := filepath.Join(dir, "data.gob")
	if _, err := os.Stat(gobPath); err == nil {
		players, err = loadGob(gobPath)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", manifest.ID, err)
		}
	} else {
		players, err = loadCSV(filepath.Join(dir, manifest.DataFile), manifest, normalize)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", manifest.ID, err)
		}
	}

	return NewSnapshot(manifest, players), nil
}

// NewSnapshot builds the lookup structures over a player slice. The slice is
// retained; callers must not mutate it afterwards.
func NewSnapshot(manifest *Manifest, players []Player) *Snapshot {
	s := &Snapshot{
		Manifest: manifest,
		players:  players,
		byName:   make(map[string][]int, len(players)),
		ordered:  make([]int, len(players)),
	}
	for i, p := range players {
		s.byName[p.Normalized] = append(s.byName[p.Normalized], i)
		s.ordered[i] = i
	}
	sort.Slice(s.ordered, func(a, b int) bool {
		return s.players[s.ordered[a]].Normalized < s.players[s.ordered[b]].Normalized
	})
	return s
}

// Len returns the number of players in the snapshot.
func (s *Snapshot) Len() int { return len(s.players) }

// Exact returns players whose normalized name equals name.
func (s *Snapshot) Exact(_ context.Context, name string) ([]Player, error) {
	idxs := s.byName[name]
	if len(idxs) == 0 {
		return nil, nil
	}
	out := make([]Player, len(idxs))
	for i, idx := range idxs {
		out[i] = s.players[idx]
	}
	return out, nil
}

// Prefix returns up to limit players whose normalized name starts with name.
func (s *Snapshot) Prefix(_ context.Context, name string, limit int) ([]Player, error) {
	if name == "" {
		return nil, nil
	}
	start := sort.Search(len(s.ordered), func(i int) bool {
		return s.players[s.ordered[i]].Normalized >= name
	})
	var out []Player
	for i := start; i < len(s.ordered); i++ {
		p := s.players[s.ordered[i]]
		if !strings.HasPrefix(p.Normalized, name) {
			break
		}
		out = append(out, p)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Tokens returns players matching every query token as a whole name token,
// except the last which may match as a prefix. Matches are ranked by token
// count (fewer name tokens first) then normalized name.
func (s *Snapshot) Tokens(_ context.Context, tokens []string, limit int) ([]Player, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	var out []Player
	for _, idx := range s.ordered {
		p := s.players[idx]
		if matchesTokens(p.Tokens, tokens) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		if len(out[a].Tokens) != len(out[b].Tokens) {
			return len(out[a].Tokens) < len(out[b].Tokens)
		}
		return out[a].Normalized < out[b].Normalized
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matchesTokens(nameTokens, queryTokens []string) bool {
	for i, q := range queryTokens {
		last := i == len(queryTokens)-1
		found := false
		for _, t := range nameTokens {
			if t == q || (last && strings.HasPrefix(t, q)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// loadCSV reads players from a CSV data file described by the manifest.
func loadCSV(path string, manifest *Manifest, normalize NormalizeFunc) ([]Player, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	defer f.Close()

	// Transcode non-UTF-8 encodings declared in the manifest.
	var reader io.Reader = f
	if enc := manifest.Format.Encoding; enc != "" && !isUTF8(enc) {
		e, err := htmlindex.Get(enc)
		if err != nil {
			return nil, fmt.Errorf("unsupported encoding %q: %w", enc, err)
		}
		reader = transform.NewReader(f, e.NewDecoder())
	}

	r := csv.NewReader(reader)
	if delim := manifest.Format.Delimiter; delim != "" {
		r.Comma = []rune(delim)[0]
	}
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	cols := manifest.Format.Columns
	col := map[string]int{}
	if manifest.Format.HasHeader {
		header, err := r.Read()
		if err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		for i, h := range header {
			col[strings.TrimSpace(h)] = i
		}
		if _, ok := col[cols.Name]; !ok {
			return nil, fmt.Errorf("name column %q not found in header %v", cols.Name, header)
		}
	} else {
		col[cols.Name] = 0
	}

	field := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || name == "" || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var players []Player
	var collisions int
	seen := make(map[string]bool)
	nextID := int64(1)
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		name := field(record, cols.Name)
		if name == "" {
			continue
		}
		normalized, tokens := normalize(name)
		if normalized == "" {
			continue
		}

		p := Player{
			ID:          nextID,
			WikidataID:  field(record, cols.WikidataID),
			Name:        name,
			Normalized:  normalized,
			Tokens:      tokens,
			Nationality: field(record, cols.Nationality),
			Position:    field(record, cols.Position),
		}
		if v := field(record, cols.Mononym); v == "1" || strings.EqualFold(v, "true") {
			p.Mononym = true
		}

		key := normalized + "\x00" + p.Nationality
		if seen[key] {
			collisions++
			continue
		}
		seen[key] = true
		players = append(players, p)
		nextID++
	}

	if collisions > 0 {
		slog.Warn("duplicate players after normalization", "snapshot", manifest.ID, "dropped", collisions)
	}
	return players, nil
}

func isUTF8(enc string) bool {
	e := strings.ToLower(strings.ReplaceAll(enc, "-", ""))
	return e == "utf8" || e == ""
}
