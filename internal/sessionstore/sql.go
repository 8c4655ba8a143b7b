package sessionstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// dialect holds the statements that differ between SQL backends. Each is a
// format string taking the table name.
type dialect struct {
	name   string
	schema string
	put    string
	get    string
	count  string
	purge  string
}

// sqlStore implements the session store on a database/sql handle. Creation
// time is kept as unix nanoseconds so both backends share one column type.
type sqlStore struct {
	db    *sql.DB
	table string
	ttl   time.Duration
	now   func() time.Time

	putQ   string
	getQ   string
	countQ string
	purgeQ string
	driver string
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect, table string, ttl time.Duration) (*sqlStore, error) {
	if !storeNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid store name %q", table)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf(d.schema, table)); err != nil {
		return nil, fmt.Errorf("create %s table %s: %w", d.name, table, err)
	}
	return &sqlStore{
		db:     db,
		table:  table,
		ttl:    ttl,
		now:    time.Now,
		putQ:   fmt.Sprintf(d.put, table),
		getQ:   fmt.Sprintf(d.get, table),
		countQ: fmt.Sprintf(d.count, table),
		purgeQ: fmt.Sprintf(d.purge, table),
		driver: d.name,
	}, nil
}

// Put implements adinsert.SessionStore.
func (s *sqlStore) Put(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, s.putQ, key, value, s.now().UnixNano()); err != nil {
		return fmt.Errorf("%s put session: %w", s.driver, err)
	}
	return nil
}

// Get implements adinsert.SessionStore.
func (s *sqlStore) Get(ctx context.Context, key string) (string, bool, error) {
	var (
		value   string
		created int64
	)
	err := s.db.QueryRowContext(ctx, s.getQ, key).Scan(&value, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%s get session: %w", s.driver, err)
	}
	if expired(time.Unix(0, created), s.now(), s.ttl) {
		return "", false, nil
	}
	return value, true, nil
}

// Count implements Counter.
func (s *sqlStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, s.countQ).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s count sessions: %w", s.driver, err)
	}
	return n, nil
}

// Purge implements Purger.
func (s *sqlStore) Purge(ctx context.Context) (int, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.ttl).UnixNano()
	res, err := s.db.ExecContext(ctx, s.purgeQ, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%s purge sessions: %w", s.driver, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s purge rows affected: %w", s.driver, err)
	}
	return int(n), nil
}

// Close closes the underlying database handle.
func (s *sqlStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
