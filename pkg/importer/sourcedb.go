package importer

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Source is one row of import_sources: where an adapter currently pulls
// its data from, and how the last availability probe went.
type Source struct {
	AdapterID   string
	Description string
	SourceURL   string
	License     string
	LastCheck   *int64
	LastStatus  *int
	LastError   *string
	UpdatedAt   int64
}

// SourceDB persists per-adapter source URLs. Keeping them in SQLite rather
// than in the config file means a moved upstream can be fixed with one
// UPDATE and survives restarts.
type SourceDB struct {
	db *sql.DB
}

const sourcesSchema = `
CREATE TABLE IF NOT EXISTS import_sources (
	adapter_id   TEXT PRIMARY KEY,
	description  TEXT NOT NULL,
	source_url   TEXT NOT NULL,
	license      TEXT NOT NULL DEFAULT '',
	last_check   INTEGER,
	last_status  INTEGER,
	last_error   TEXT,
	updated_at   INTEGER NOT NULL
)`

// OpenSourceDB opens or creates the database at path.
func OpenSourceDB(path string) (*SourceDB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open source db: %w", err)
	}
	if _, err := db.Exec(sourcesSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create import_sources table: %w", err)
	}
	return &SourceDB{db: db}, nil
}

func (s *SourceDB) Close() error { return s.db.Close() }

// Seed inserts a default row per adapter. Existing rows are left alone so
// manual URL overrides survive a restart.
func (s *SourceDB) Seed(adapters []Adapter) error {
	now := time.Now().Unix()
	for _, a := range adapters {
		_, err := s.db.Exec(
			`INSERT OR IGNORE INTO import_sources
				(adapter_id, description, source_url, license, updated_at)
				VALUES (?, ?, ?, ?, ?)`,
			a.ID(), a.Description(), a.DefaultURL(), a.License(), now)
		if err != nil {
			return fmt.Errorf("seed %s: %w", a.ID(), err)
		}
	}
	return nil
}

// GetURL returns the current source URL for one adapter.
func (s *SourceDB) GetURL(adapterID string) (string, error) {
	var url string
	err := s.db.QueryRow(
		`SELECT source_url FROM import_sources WHERE adapter_id = ?`, adapterID).Scan(&url)
	if err != nil {
		return "", fmt.Errorf("get url for %s: %w", adapterID, err)
	}
	return url, nil
}

// SetURL points an adapter at a different upstream.
func (s *SourceDB) SetURL(adapterID, url string) error {
	res, err := s.db.Exec(
		`UPDATE import_sources SET source_url = ?, updated_at = ? WHERE adapter_id = ?`,
		url, time.Now().Unix(), adapterID)
	if err != nil {
		return fmt.Errorf("set url for %s: %w", adapterID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("adapter %s not found in import_sources", adapterID)
	}
	return nil
}

// UpdateCheck records one availability probe. An empty probe error is
// stored as NULL.
func (s *SourceDB) UpdateCheck(adapterID string, status int, probeErr string) error {
	lastErr := sql.NullString{String: probeErr, Valid: probeErr != ""}
	_, err := s.db.Exec(
		`UPDATE import_sources SET last_check = ?, last_status = ?, last_error = ? WHERE adapter_id = ?`,
		time.Now().Unix(), status, lastErr, adapterID)
	if err != nil {
		return fmt.Errorf("update check for %s: %w", adapterID, err)
	}
	return nil
}

// ListSources returns every source ordered by adapter ID.
func (s *SourceDB) ListSources() ([]Source, error) {
	rows, err := s.db.Query(
		`SELECT adapter_id, description, source_url, license,
			last_check, last_status, last_error, updated_at
		FROM import_sources ORDER BY adapter_id`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var out []Source
	for rows.Next() {
		var src Source
		err := rows.Scan(&src.AdapterID, &src.Description, &src.SourceURL, &src.License,
			&src.LastCheck, &src.LastStatus, &src.LastError, &src.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		out = append(out, src)
	}
	return out, rows.Err()
}
