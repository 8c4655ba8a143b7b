package adinsert

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator produces version 4 session identifiers from an injected
// randomness source. It is safe for concurrent use.
type IDGenerator struct {
	mu  sync.Mutex
	src io.Reader
}

// NewIDGenerator returns a generator reading from src. A nil src uses
// crypto/rand.
func NewIDGenerator(src io.Reader) *IDGenerator {
	if src == nil {
		src = rand.Reader
	}
	return &IDGenerator{src: src}
}

// New returns a fresh session identifier.
func (g *IDGenerator) New() (SessionID, error) {
	g.mu.Lock()
	id, err := uuid.NewRandomFromReader(g.src)
	g.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return SessionID(id.String()), nil
}

// validSessionID reports whether s is a UUID in canonical lowercase form,
// which is the only form the rewriter ever embeds.
func validSessionID(s string) bool {
	if len(s) != SessionIDLen {
		return false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return false
	}
	return id.String() == s
}
