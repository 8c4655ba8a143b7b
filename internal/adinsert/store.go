package adinsert

import "context"

// SessionStore is the keyed persistence shared by the rewriter and the
// resolver. Implementations must be safe for concurrent use; no locking is
// layered on top of them.
type SessionStore interface {
	// Put records value under key, replacing any previous value.
	Put(ctx context.Context, key, value string) error

	// Get returns the value stored under key. found is false when the key was
	// never written or has been evicted; err reports a store failure.
	Get(ctx context.Context, key string) (value string, found bool, err error)
}
