package country

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite"
)

// Source is a row from the country_sources table.
type Source struct {
	Country    string
	Params     Params
	LastCheck  *int64
	LastStatus *int
	LastError  *string
	UpdatedAt  int64
}

// SourceDB persists per-country source URLs so operators can repoint a country
// at a mirror without a rebuild.
type SourceDB struct {
	db    *sql.DB
	clock clockwork.Clock
}

// OpenSourceDB opens (or creates) the SQLite database at path and ensures the
// country_sources table exists.
func OpenSourceDB(path string) (*SourceDB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open source db: %w", err)
	}

	const ddl = `CREATE TABLE IF NOT EXISTS country_sources (
		country       TEXT PRIMARY KEY,
		source_url    TEXT NOT NULL,
		archive_entry TEXT NOT NULL,
		local_file    TEXT NOT NULL,
		last_check    INTEGER,
		last_status   INTEGER,
		last_error    TEXT,
		updated_at    INTEGER NOT NULL
	)`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("create country_sources table: %w", err)
	}

	return &SourceDB{db: db, clock: clockwork.NewRealClock()}, nil
}

// WithClock sets the time source for row timestamps.
func (s *SourceDB) WithClock(clk clockwork.Clock) *SourceDB {
	s.clock = clk
	return s
}

// Close closes the database.
func (s *SourceDB) Close() error {
	return s.db.Close()
}

// Seed inserts a row per country. Existing rows are left untouched so that
// manual URL overrides survive restarts.
func (s *SourceDB) Seed(reg *Registry) error {
	const q = `INSERT OR IGNORE INTO country_sources
		(country, source_url, archive_entry, local_file, updated_at)
		VALUES (?, ?, ?, ?, ?)`

	now := s.clock.Now().Unix()
	for _, code := range reg.Codes() {
		p, _ := reg.Get(code)
		if _, err := s.db.Exec(q, code, p.SourceURL, p.ArchiveEntry, p.LocalFile, now); err != nil {
			return fmt.Errorf("seed %s: %w", code, err)
		}
	}
	return nil
}

// SetURL points a country at a new archive URL.
func (s *SourceDB) SetURL(country, url string) error {
	res, err := s.db.Exec(
		`UPDATE country_sources SET source_url = ?, updated_at = ? WHERE country = ?`,
		url, s.clock.Now().Unix(), country,
	)
	if err != nil {
		return fmt.Errorf("set url for %s: %w", country, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("country %s not found in country_sources", country)
	}
	return nil
}

// UpdateCheck persists the result of an availability check.
func (s *SourceDB) UpdateCheck(country string, status int, checkErr string) error {
	var errPtr *string
	if checkErr != "" {
		errPtr = &checkErr
	}
	_, err := s.db.Exec(
		`UPDATE country_sources SET last_check = ?, last_status = ?, last_error = ? WHERE country = ?`,
		s.clock.Now().Unix(), status, errPtr, country,
	)
	if err != nil {
		return fmt.Errorf("update check for %s: %w", country, err)
	}
	return nil
}

// ListSources returns all rows ordered by country.
func (s *SourceDB) ListSources() ([]Source, error) {
	rows, err := s.db.Query(`SELECT country, source_url, archive_entry, local_file,
		last_check, last_status, last_error, updated_at
		FROM country_sources ORDER BY country`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var src Source
		if err := rows.Scan(&src.Country, &src.Params.SourceURL, &src.Params.ArchiveEntry,
			&src.Params.LocalFile, &src.LastCheck, &src.LastStatus, &src.LastError, &src.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// Registry builds a registry from the stored rows.
func (s *SourceDB) Registry() (*Registry, error) {
	sources, err := s.ListSources()
	if err != nil {
		return nil, err
	}
	params := make(map[string]Params, len(sources))
	for _, src := range sources {
		params[src.Country] = src.Params
	}
	return NewRegistry(params), nil
}

// LastChecked reports when a country's source was last checked.
func (src Source) LastChecked() (time.Time, bool) {
	if src.LastCheck == nil {
		return time.Time{}, false
	}
	return time.Unix(*src.LastCheck, 0), true
}
