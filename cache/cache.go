// Package cache is the incremental build cache used by ualc. It keys
// generated output by source hash and target so unchanged files skip
// the pipeline entirely.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists compilation results in SQLite (modernc.org/sqlite,
// pure Go).
type Store struct {
	db *sql.DB
}

// Open opens or creates the cache database at the given path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	// Enable WAL mode for concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("open cache: %w", err)
	}
	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS compilations (
		source_hash TEXT NOT NULL,
		target      TEXT NOT NULL,
		output      TEXT NOT NULL,
		compiled_at DATETIME NOT NULL,
		PRIMARY KEY (source_hash, target)
	);

	CREATE INDEX IF NOT EXISTS idx_compilations_time ON compilations(compiled_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("init cache schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Lookup returns the cached output for a source hash and target. The
// second return is false on a cache miss.
func (s *Store) Lookup(hash, target string) (string, bool, error) {
	var output string
	err := s.db.QueryRow(
		`SELECT output FROM compilations WHERE source_hash = ? AND target = ?`,
		hash, target,
	).Scan(&output)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache lookup: %w", err)
	}
	return output, true, nil
}

// Put records generated output for a source hash and target,
// replacing any earlier entry.
func (s *Store) Put(hash, target, output string) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO compilations (source_hash, target, output, compiled_at)
		 VALUES (?, ?, ?, ?)`,
		hash, target, output, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Prune deletes entries older than the given age and returns the
// number removed.
func (s *Store) Prune(age time.Duration) (int64, error) {
	res, err := s.db.Exec(
		`DELETE FROM compilations WHERE compiled_at < ?`,
		time.Now().UTC().Add(-age),
	)
	if err != nil {
		return 0, fmt.Errorf("cache prune: %w", err)
	}
	return res.RowsAffected()
}

// Hash returns the cache key for a source text.
func Hash(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}
