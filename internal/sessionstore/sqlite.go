package sessionstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

var sqliteDialect = dialect{
	name: "sqlite",
	schema: `CREATE TABLE IF NOT EXISTS %s (
		session_id TEXT PRIMARY KEY,
		ad_name    TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	put: `INSERT INTO %s (session_id, ad_name, created_at) VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET ad_name = excluded.ad_name, created_at = excluded.created_at`,
	get:   `SELECT ad_name, created_at FROM %s WHERE session_id = ?`,
	count: `SELECT COUNT(*) FROM %s`,
	purge: `DELETE FROM %s WHERE created_at < ?`,
}

// SQLiteStore persists bindings in a local SQLite database, one table per
// store name.
type SQLiteStore struct {
	*sqlStore
	path string
}

// OpenSQLite opens (creating if needed) the database at path and the table
// named name.
func OpenSQLite(ctx context.Context, path, name string, ttl time.Duration) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	s, err := newSQLStore(ctx, db, sqliteDialect, name, ttl)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{sqlStore: s, path: path}, nil
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string {
	return s.path
}
