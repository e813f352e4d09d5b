// Package cache stores compiled artifacts in sqlite, keyed by the source
// fingerprint of the build that produced them.
package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS builds (
	id      TEXT PRIMARY KEY,
	entry   TEXT NOT NULL,
	digest  TEXT NOT NULL UNIQUE,
	asm     TEXT NOT NULL,
	created INTEGER NOT NULL
)`

// Build is one cached artifact.
type Build struct {
	ID      string
	Entry   string
	Digest  string
	Asm     string
	Created time.Time
}

// Cache is a sqlite-backed artifact store. All access goes through a single
// connection, so one Cache may be shared by concurrent builds.
type Cache struct {
	db *sql.DB
}

// Open opens or creates the cache database at path. ":memory:" gives a
// private in-memory cache.
func Open(path string) (*Cache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing cache %s: %w", path, err)
	}
	return &Cache{db: db}, nil
}

// Close releases the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Lookup returns the build stored for digest, if any.
func (c *Cache) Lookup(digest string) (*Build, bool, error) {
	row := c.db.QueryRow(`SELECT id, entry, digest, asm, created FROM builds WHERE digest = ?`, digest)
	var (
		b       Build
		created int64
	)
	err := row.Scan(&b.ID, &b.Entry, &b.Digest, &b.Asm, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache: %w", err)
	}
	b.Created = time.Unix(0, created)
	return &b, true, nil
}

// Store records an artifact, replacing any earlier build with the same digest.
func (c *Cache) Store(entry, digest, asm string) (*Build, error) {
	b := &Build{
		ID:      uuid.NewString(),
		Entry:   entry,
		Digest:  digest,
		Asm:     asm,
		Created: time.Now(),
	}
	_, err := c.db.Exec(`
		INSERT INTO builds (id, entry, digest, asm, created) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(digest) DO UPDATE SET id = excluded.id, entry = excluded.entry,
			asm = excluded.asm, created = excluded.created`,
		b.ID, b.Entry, b.Digest, b.Asm, b.Created.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("writing cache: %w", err)
	}
	return b, nil
}

// Len returns the number of stored builds.
func (c *Cache) Len() (int, error) {
	var n int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM builds`).Scan(&n); err != nil {
		return 0, fmt.Errorf("reading cache: %w", err)
	}
	return n, nil
}

// Clean removes all stored builds.
func (c *Cache) Clean() error {
	if _, err := c.db.Exec(`DELETE FROM builds`); err != nil {
		return fmt.Errorf("cleaning cache: %w", err)
	}
	return nil
}
