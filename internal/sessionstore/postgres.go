package sessionstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

var postgresDialect = dialect{
	name: "postgres",
	schema: `CREATE TABLE IF NOT EXISTS %s (
		session_id TEXT PRIMARY KEY,
		ad_name    TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	put: `INSERT INTO %s (session_id, ad_name, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (session_id) DO UPDATE SET ad_name = EXCLUDED.ad_name, created_at = EXCLUDED.created_at`,
	get:   `SELECT ad_name, created_at FROM %s WHERE session_id = $1`,
	count: `SELECT COUNT(*) FROM %s`,
	purge: `DELETE FROM %s WHERE created_at < $1`,
}

// PostgresStore persists bindings in a shared Postgres database so several
// service instances resolve the same sessions.
type PostgresStore struct {
	*sqlStore
}

// OpenPostgres connects with dsn and prepares the table named name. maxConns
// caps the connection pool; a fifth of it, at least one, is kept idle.
func OpenPostgres(ctx context.Context, dsn, name string, ttl time.Duration, maxConns int) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if maxConns < 1 {
		maxConns = 1
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(max(maxConns/5, 1))

	s, err := newSQLStore(ctx, db, postgresDialect, name, ttl)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{sqlStore: s}, nil
}
