// Package store writes loaded postal code snapshots into a SQLite-backed
// key-value store, one JSON value per code plus a per-country code set.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"iter"
	"strings"

	"github.com/hazyhaar/postal-codes/pkg/geo"
	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite"
)

const (
	// KeyPrefix namespaces every key written by Populate.
	KeyPrefix = "postal-codes"
	// SchemaVersion is bumped when the stored value shape changes.
	SchemaVersion = 1
)

// RecordKey returns the key for one postal code.
func RecordKey(country, code string) string {
	return fmt.Sprintf("%s:v%d:%s:%s", KeyPrefix, SchemaVersion, geo.NormalizeCode(country), geo.NormalizeCode(code))
}

// CodesKey returns the key of the set of all codes for a country.
func CodesKey(country string) string {
	return fmt.Sprintf("%s:v%d:%s:codes", KeyPrefix, SchemaVersion, geo.NormalizeCode(country))
}

// Snapshot is what Populate reads. *loader.Snapshot satisfies it.
type Snapshot interface {
	Country() string
	Len() int
	Records() iter.Seq2[string, geo.Record]
}

// Store is a key-value and set store on SQLite.
type Store struct {
	db    *sql.DB
	clock clockwork.Clock
}

// Open opens (or creates) the store at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	const ddl = `
	CREATE TABLE IF NOT EXISTS kv (
		key        TEXT PRIMARY KEY,
		value      BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS kv_sets (
		key    TEXT NOT NULL,
		member TEXT NOT NULL,
		PRIMARY KEY (key, member)
	);`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("create store tables: %w", err)
	}
	return &Store{db: db, clock: clockwork.NewRealClock()}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Populate writes every record of snap and replaces the country's code set,
// all in one transaction. It returns the number of records written.
func (s *Store) Populate(ctx context.Context, snap Snapshot) (n int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	setKey := CodesKey(snap.Country())
	if _, err = tx.ExecContext(ctx, `DELETE FROM kv_sets WHERE key = ?`, setKey); err != nil {
		return 0, fmt.Errorf("clear %s: %w", setKey, err)
	}

	putKV, err := tx.PrepareContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)
	if err != nil {
		return 0, fmt.Errorf("prepare kv: %w", err)
	}
	defer putKV.Close()

	addMember, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO kv_sets (key, member) VALUES (?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare set: %w", err)
	}
	defer addMember.Close()

	now := s.clock.Now().Unix()
	for code, rec := range snap.Records() {
		value, err := json.Marshal(rec)
		if err != nil {
			return n, fmt.Errorf("marshal %s: %w", code, err)
		}
		if _, err := putKV.ExecContext(ctx, RecordKey(snap.Country(), code), value, now); err != nil {
			return n, fmt.Errorf("put %s: %w", code, err)
		}
		if _, err := addMember.ExecContext(ctx, setKey, code); err != nil {
			return n, fmt.Errorf("add %s to set: %w", code, err)
		}
		n++
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// Get returns the record stored for a country and postal code.
func (s *Store) Get(ctx context.Context, country, code string) (geo.Record, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, RecordKey(country, code)).Scan(&value)
	if err == sql.ErrNoRows {
		return geo.Record{}, false, nil
	}
	if err != nil {
		return geo.Record{}, false, fmt.Errorf("get %s/%s: %w", country, code, err)
	}

	var rec geo.Record
	if err := json.Unmarshal(value, &rec); err != nil {
		return geo.Record{}, false, fmt.Errorf("decode %s/%s: %w", country, code, err)
	}
	return rec, true, nil
}

// Members returns the sorted members of a set key.
func (s *Store) Members(ctx context.Context, key string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT member FROM kv_sets WHERE key = ? ORDER BY member`, key)
	if err != nil {
		return nil, fmt.Errorf("members of %s: %w", key, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Keys lists stored record keys with the given prefix.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	pattern := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix) + "%"
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM kv WHERE key LIKE ? ESCAPE '\' ORDER BY key`, pattern)
	if err != nil {
		return nil, fmt.Errorf("keys %s: %w", prefix, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}
