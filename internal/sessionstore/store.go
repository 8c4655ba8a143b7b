// Package sessionstore provides the keyed stores that bind session
// identifiers to ad names: an in-process sharded map, SQLite and Postgres.
package sessionstore

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"time"
)

// storeNamePattern limits store names to identifiers usable as SQL table names.
var storeNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("session store closed")

// Purger removes entries older than the store's TTL.
type Purger interface {
	Purge(ctx context.Context) (int, error)
}

// Counter reports how many entries a store holds.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// expired reports whether an entry created at created has outlived ttl.
// A non-positive ttl never expires.
func expired(created, now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(created) > ttl
}

// RunJanitor purges p every interval until ctx is done.
func RunJanitor(ctx context.Context, p Purger, interval time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.Purge(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.Error("session purge failed", slog.String("error", err.Error()))
				}
				continue
			}
			if n > 0 {
				log.Debug("expired sessions purged", slog.Int("count", n))
			}
		}
	}
}
