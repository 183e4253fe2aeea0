package roster

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed roster database. It serves the Index contract
// over an FTS5 token index and carries the club-history and stats queries
// used by the player card endpoints. Writes happen only during import.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the roster database at path and ensures the
// schema exists.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open roster db: %w", err)
	}

	ddl := []string{
		`CREATE TABLE IF NOT EXISTS players (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			wikidata_id     TEXT UNIQUE,
			name            TEXT NOT NULL,
			normalized_name TEXT NOT NULL,
			tokens          TEXT NOT NULL,
			is_mononym      INTEGER NOT NULL DEFAULT 0,
			nationality     TEXT,
			position        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_players_normalized ON players(normalized_name)`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS players_fts USING fts5(tokens)`,
		`CREATE TABLE IF NOT EXISTS clubs (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			wikidata_id     TEXT UNIQUE,
			name            TEXT NOT NULL,
			normalized_name TEXT NOT NULL,
			country         TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS player_clubs (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			player_id        INTEGER NOT NULL REFERENCES players(id),
			club_id          INTEGER NOT NULL REFERENCES clubs(id),
			start_date       TEXT,
			end_date         TEXT,
			is_national_team INTEGER NOT NULL DEFAULT 0,
			UNIQUE(player_id, club_id, start_date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_player_clubs_player ON player_clubs(player_id)`,
	}
	for _, q := range ddl {
		if _, err := db.Exec(q); err != nil {
			db.Close()
			return nil, fmt.Errorf("create roster schema: %w", err)
		}
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

const playerCols = `id, COALESCE(wikidata_id, ''), name, normalized_name, tokens,
	is_mononym, COALESCE(nationality, ''), COALESCE(position, '')`

func scanPlayer(row interface{ Scan(...any) error }) (Player, error) {
	var p Player
	var tokens string
	var mononym int
	err := row.Scan(&p.ID, &p.WikidataID, &p.Name, &p.Normalized, &tokens,
		&mononym, &p.Nationality, &p.Position)
	if err != nil {
		return Player{}, err
	}
	p.Tokens = strings.Fields(tokens)
	p.Mononym = mononym != 0
	return p, nil
}

func (s *Store) queryPlayers(ctx context.Context, query string, args ...any) ([]Player, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Exact returns players whose normalized name equals name.
func (s *Store) Exact(ctx context.Context, name string) ([]Player, error) {
	players, err := s.queryPlayers(ctx,
		`SELECT `+playerCols+` FROM players WHERE normalized_name = ? ORDER BY id`, name)
	if err != nil {
		return nil, fmt.Errorf("exact lookup: %w", err)
	}
	return players, nil
}

// Prefix returns up to limit players whose normalized name starts with name.
func (s *Store) Prefix(ctx context.Context, name string, limit int) ([]Player, error) {
	if name == "" {
		return nil, nil
	}
	players, err := s.queryPlayers(ctx,
		`SELECT `+playerCols+` FROM players
		 WHERE normalized_name LIKE ? ESCAPE '\' ORDER BY normalized_name, id LIMIT ?`,
		escapeLike(name)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("prefix lookup: %w", err)
	}
	return players, nil
}

// Tokens runs an FTS5 query where every token except the last must match a
// whole token and the last matches as a prefix, ranked by FTS relevance.
func (s *Store) Tokens(ctx context.Context, tokens []string, limit int) ([]Player, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		quoted := `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
		if i == len(tokens)-1 {
			quoted += "*"
		}
		parts[i] = quoted
	}
	match := strings.Join(parts, " ")

	players, err := s.queryPlayers(ctx,
		`SELECT p.id, COALESCE(p.wikidata_id, ''), p.name, p.normalized_name, p.tokens,
			p.is_mononym, COALESCE(p.nationality, ''), COALESCE(p.position, '')
		 FROM players_fts f JOIN players p ON p.id = f.rowid
		 WHERE players_fts MATCH ? ORDER BY f.rank LIMIT ?`,
		match, limit)
	if err != nil {
		return nil, fmt.Errorf("token lookup %q: %w", match, err)
	}
	return players, nil
}

// ImportPlayers inserts a batch of players inside one transaction, replacing
// any previous roster contents. Called only by the import pipeline.
func (s *Store) ImportPlayers(ctx context.Context, players []Player) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{`DELETE FROM players_fts`, `DELETE FROM player_clubs`, `DELETE FROM players`} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("clear roster: %w", err)
		}
	}

	insert, err := tx.PrepareContext(ctx,
		`INSERT INTO players (wikidata_id, name, normalized_name, tokens, is_mononym, nationality, position)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer insert.Close()

	fts, err := tx.PrepareContext(ctx, `INSERT INTO players_fts (rowid, tokens) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare fts insert: %w", err)
	}
	defer fts.Close()

	for _, p := range players {
		mononym := 0
		if p.Mononym {
			mononym = 1
		}
		res, err := insert.ExecContext(ctx, nullable(p.WikidataID), p.Name, p.Normalized,
			strings.Join(p.Tokens, " "), mononym, nullable(p.Nationality), nullable(p.Position))
		if err != nil {
			return fmt.Errorf("insert player %q: %w", p.Name, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("player id for %q: %w", p.Name, err)
		}
		if _, err := fts.ExecContext(ctx, id, strings.Join(p.Tokens, " ")); err != nil {
			return fmt.Errorf("index player %q: %w", p.Name, err)
		}
	}

	return tx.Commit()
}

// UpsertClub inserts a club if absent and returns its ID.
func (s *Store) UpsertClub(ctx context.Context, wikidataID, name, normalized, country string) (int64, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO clubs (wikidata_id, name, normalized_name, country) VALUES (?, ?, ?, ?)
		 ON CONFLICT(wikidata_id) DO UPDATE SET name = excluded.name`,
		wikidataID, name, normalized, nullable(country))
	if err != nil {
		return 0, fmt.Errorf("upsert club %q: %w", name, err)
	}
	var id int64
	err = s.db.QueryRowContext(ctx, `SELECT id FROM clubs WHERE wikidata_id = ?`, wikidataID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("club id for %q: %w", name, err)
	}
	return id, nil
}

// AddStint records one club spell for a player. Duplicate spells are ignored.
func (s *Store) AddStint(ctx context.Context, playerID, clubID int64, start, end string, national bool) error {
	n := 0
	if national {
		n = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO player_clubs (player_id, club_id, start_date, end_date, is_national_team)
		 VALUES (?, ?, ?, ?, ?)`,
		playerID, clubID, nullable(start), nullable(end), n)
	if err != nil {
		return fmt.Errorf("add stint: %w", err)
	}
	return nil
}

// PlayerByWikidataID returns the stored player for a wikidata ID, used by the
// import pipeline to attach club histories.
func (s *Store) PlayerByWikidataID(ctx context.Context, wikidataID string) (Player, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+playerCols+` FROM players WHERE wikidata_id = ?`, wikidataID)
	p, err := scanPlayer(row)
	if err != nil {
		return Player{}, fmt.Errorf("player by wikidata id %s: %w", wikidataID, err)
	}
	return p, nil
}

// Card returns the full player view: identity, club history ordered by start
// date, and the first three non-national clubs.
func (s *Store) Card(ctx context.Context, playerID int64) (*Card, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+playerCols+` FROM players WHERE id = ?`, playerID)
	p, err := scanPlayer(row)
	if err != nil {
		return nil, fmt.Errorf("player %d: %w", playerID, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT c.name, COALESCE(pc.start_date, ''), COALESCE(pc.end_date, ''), pc.is_national_team
		 FROM player_clubs pc JOIN clubs c ON c.id = pc.club_id
		 WHERE pc.player_id = ? ORDER BY pc.start_date`, playerID)
	if err != nil {
		return nil, fmt.Errorf("club history %d: %w", playerID, err)
	}
	defer rows.Close()

	card := &Card{Player: p}
	for rows.Next() {
		var st Stint
		var national int
		if err := rows.Scan(&st.Club, &st.StartDate, &st.EndDate, &national); err != nil {
			return nil, fmt.Errorf("scan stint: %w", err)
		}
		st.IsNationalTeam = national != 0
		card.Clubs = append(card.Clubs, st)
		if !st.IsNationalTeam && len(card.TopClubs) < 3 {
			card.TopClubs = append(card.TopClubs, st.Club)
		}
	}
	return card, rows.Err()
}

// Stats returns roster totals and top-ten nationality and position breakdowns.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM players`).Scan(&st.TotalPlayers); err != nil {
		return nil, fmt.Errorf("count players: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clubs`).Scan(&st.TotalClubs); err != nil {
		return nil, fmt.Errorf("count clubs: %w", err)
	}

	group := func(column string) ([]GroupCount, error) {
		rows, err := s.db.QueryContext(ctx,
			`SELECT `+column+`, COUNT(*) AS n FROM players
			 WHERE `+column+` IS NOT NULL GROUP BY `+column+` ORDER BY n DESC LIMIT 10`)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		var out []GroupCount
		for rows.Next() {
			var g GroupCount
			if err := rows.Scan(&g.Value, &g.Count); err != nil {
				return nil, err
			}
			out = append(out, g)
		}
		return out, rows.Err()
	}

	var err error
	if st.TopNationalities, err = group("nationality"); err != nil {
		return nil, fmt.Errorf("group nationalities: %w", err)
	}
	if st.TopPositions, err = group("position"); err != nil {
		return nil, fmt.Errorf("group positions: %w", err)
	}
	return st, nil
}

// AllPlayers returns the whole roster ordered by ID, used to export snapshots.
func (s *Store) AllPlayers(ctx context.Context) ([]Player, error) {
	players, err := s.queryPlayers(ctx, `SELECT `+playerCols+` FROM players ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	return players, nil
}

// Count returns the number of players in the store.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM players`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count players: %w", err)
	}
	return n, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
