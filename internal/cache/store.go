package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/crewhq/crew/pkg/models"
)

// Store persists cache entries in SQLite so results survive process restarts.
// It is used only at process boundaries: Load on startup, Save on shutdown.
type Store struct {
	conn *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key         TEXT PRIMARY KEY,
	result      TEXT NOT NULL,
	stored_at   INTEGER NOT NULL,
	last_access INTEGER NOT NULL
);
`

// OpenStore opens (or creates) the cache database at the given path.
// WAL mode is enabled for concurrent reads.
func OpenStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}

	return &Store{conn: conn, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Load reads all persisted entries into the cache. Expired entries are
// skipped by the cache's Import and purged from the database.
func (s *Store) Load(c *ResultCache) error {
	rows, err := s.conn.Query("SELECT key, result, stored_at, last_access FROM cache_entries")
	if err != nil {
		return fmt.Errorf("query cache entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var key, resultJSON string
		var storedAt, lastAccess int64
		if err := rows.Scan(&key, &resultJSON, &storedAt, &lastAccess); err != nil {
			return fmt.Errorf("scan cache entry: %w", err)
		}

		var result models.TaskResult
		if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
			// A corrupt row is dropped on the next Save rather than failing
			// the whole load.
			continue
		}

		entries = append(entries, Entry{
			Key:        key,
			Result:     result,
			StoredAt:   time.Unix(0, storedAt),
			LastAccess: time.Unix(0, lastAccess),
		})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate cache entries: %w", err)
	}

	c.Import(entries)
	return nil
}

// Save replaces the persisted contents with the cache's unexpired entries.
func (s *Store) Save(c *ResultCache) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin cache save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM cache_entries"); err != nil {
		return fmt.Errorf("clear cache entries: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO cache_entries (key, result, stored_at, last_access) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare cache insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range c.Export() {
		resultJSON, err := json.Marshal(e.Result)
		if err != nil {
			return fmt.Errorf("marshal cache entry %s: %w", e.Key, err)
		}
		if _, err := stmt.Exec(e.Key, string(resultJSON), e.StoredAt.UnixNano(), e.LastAccess.UnixNano()); err != nil {
			return fmt.Errorf("insert cache entry %s: %w", e.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cache save: %w", err)
	}
	return nil
}
