package adinsert

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// AdDecider chooses the ad bound to a session. A real decisioning service can
// implement it without the rewriter knowing.
type AdDecider interface {
	Decide(ctx context.Context, id SessionID) (string, error)
}

// RandomDecider picks uniformly from a fixed catalog.
type RandomDecider struct {
	mu      sync.Mutex
	rng     *rand.Rand
	catalog []string
}

// NewRandomDecider returns a decider over catalog drawing from rng. A nil rng
// is seeded from the clock.
func NewRandomDecider(catalog []string, rng *rand.Rand) *RandomDecider {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	c := make([]string, len(catalog))
	copy(c, catalog)
	return &RandomDecider{rng: rng, catalog: c}
}

// Decide implements AdDecider.
func (d *RandomDecider) Decide(_ context.Context, _ SessionID) (string, error) {
	if len(d.catalog) == 0 {
		return "", ErrEmptyCatalog
	}
	d.mu.Lock()
	idx := d.rng.IntN(len(d.catalog))
	d.mu.Unlock()
	return d.catalog[idx], nil
}

// Catalog returns a copy of the selectable ad names.
func (d *RandomDecider) Catalog() []string {
	c := make([]string, len(d.catalog))
	copy(c, d.catalog)
	return c
}
