// Package session persists guessing sessions and the players guessed in
// them. It is plain CRUD over the same SQLite file as the roster; the
// resolution engine never touches it.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a session or player does not exist.
var ErrNotFound = errors.New("not found")

// Session is one guessing session.
type Session struct {
	ID          int64  `json:"id"`
	CreatedAt   string `json:"created_at"`
	PlayerCount int    `json:"player_count"`
}

// Guess is one guessed player within a session.
type Guess struct {
	PlayerID    int64  `json:"id"`
	Name        string `json:"name"`
	Nationality string `json:"nationality,omitempty"`
	Position    string `json:"position,omitempty"`
	GuessedAt   string `json:"guessed_at"`
}

// GuessResult reports the outcome of recording a guess.
type GuessResult struct {
	Success        bool `json:"success"`
	AlreadyGuessed bool `json:"already_guessed"`
	PlayerCount    int  `json:"player_count"`
}

// Store manages the sessions and guessed_players tables.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the session tables in the database at path. The
// guess summaries join against the roster's players table, so path should
// be the same file the roster store uses.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}

	ddl := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS guessed_players (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id INTEGER NOT NULL REFERENCES sessions(id),
			player_id  INTEGER NOT NULL,
			guessed_at TEXT NOT NULL,
			UNIQUE(session_id, player_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_guessed_players_session ON guessed_players(session_id)`,
	}
	for _, q := range ddl {
		if _, err := db.Exec(q); err != nil {
			db.Close()
			return nil, fmt.Errorf("create session schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Create starts a new empty session.
func (s *Store) Create(ctx context.Context) (*Session, error) {
	ts := now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (created_at, updated_at) VALUES (?, ?)`, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("session id: %w", err)
	}
	return &Session{ID: id, CreatedAt: ts}, nil
}

// Get returns a session with its guess count.
func (s *Store) Get(ctx context.Context, id int64) (*Session, error) {
	sess := &Session{ID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT created_at, (SELECT COUNT(*) FROM guessed_players WHERE session_id = sessions.id)
		 FROM sessions WHERE id = ?`, id).Scan(&sess.CreatedAt, &sess.PlayerCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %d: %w", id, err)
	}
	return sess, nil
}

// Guesses lists the guessed players of a session, most recent first.
func (s *Store) Guesses(ctx context.Context, id int64) ([]Guess, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.name, COALESCE(p.nationality, ''), COALESCE(p.position, ''), gp.guessed_at
		 FROM guessed_players gp JOIN players p ON p.id = gp.player_id
		 WHERE gp.session_id = ? ORDER BY gp.guessed_at DESC, gp.id DESC`, id)
	if err != nil {
		return nil, fmt.Errorf("list guesses %d: %w", id, err)
	}
	defer rows.Close()

	var out []Guess
	for rows.Next() {
		var g Guess
		if err := rows.Scan(&g.PlayerID, &g.Name, &g.Nationality, &g.Position, &g.GuessedAt); err != nil {
			return nil, fmt.Errorf("scan guess: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// RecordGuess adds a player to a session. Guessing the same player twice is
// reported, not an error.
func (s *Store) RecordGuess(ctx context.Context, sessionID, playerID int64) (*GuessResult, error) {
	if _, err := s.Get(ctx, sessionID); err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO guessed_players (session_id, player_id, guessed_at) VALUES (?, ?, ?)`,
		sessionID, playerID, now())
	if err != nil {
		return nil, fmt.Errorf("record guess: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("record guess: %w", err)
	}

	if inserted > 0 {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE sessions SET updated_at = ? WHERE id = ?`, now(), sessionID); err != nil {
			return nil, fmt.Errorf("touch session: %w", err)
		}
	}

	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM guessed_players WHERE session_id = ?`, sessionID).Scan(&count); err != nil {
		return nil, fmt.Errorf("count guesses: %w", err)
	}

	return &GuessResult{
		Success:        inserted > 0,
		AlreadyGuessed: inserted == 0,
		PlayerCount:    count,
	}, nil
}

// Delete removes a session and its guesses.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM guessed_players WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete guesses %d: %w", id, err)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
