package adinsert

import (
	"errors"
	"fmt"
)

// SessionID is the canonical lowercase hyphenated UUID that ties a rewritten
// playlist to the ad segments requested from it later.
type SessionID string

// SessionIDLen is the width of a canonical UUID string.
const SessionIDLen = 36

const (
	// PlaylistSuffix marks requests handled by the manifest rewriter.
	PlaylistSuffix = ".m3u8"

	// DefaultSegmentPrefix is the path namespace of synthetic ad segments.
	DefaultSegmentPrefix = "/ads"

	// DefaultMarker is the line the origin places where an ad break belongs.
	DefaultMarker = "#--INSERT AD--"

	// TemplateToken is replaced by the session identifier in the ad break template.
	TemplateToken = "{UUID}"
)

// DefaultAdBreakTemplate is a discontinuity-bounded break of one init segment
// and three 5 second chunks. Every path embeds the session identifier.
const DefaultAdBreakTemplate = `#EXT-X-DISCONTINUITY
#EXT-X-MAP:URI="/ads/{UUID}_init.mp4"
#EXTINF:5.000000,
/ads/{UUID}0.m4s
#EXTINF:5.000000,
/ads/{UUID}1.m4s
#EXTINF:5.000000,
/ads/{UUID}2.m4s
#EXT-X-DISCONTINUITY`

// DefaultCatalog lists the ads available for selection.
var DefaultCatalog = []string{"BigBuck_Spikes", "BigBuck_Smash", "BigBuck_Arrow"}

// Manifest is the result of a playlist rewrite.
type Manifest struct {
	SessionID SessionID
	Body      string
	// Inserted is false when the origin playlist had no marker.
	Inserted bool
}

// Binding is a session identifier paired with the ad chosen for it.
type Binding struct {
	SessionID SessionID
	AdName    string
}

var (
	// ErrSessionNotFound is returned when a segment references a session the
	// store has no entry for.
	ErrSessionNotFound = errors.New("session not found")

	// ErrMalformedSegment is returned when a segment filename does not start
	// with a canonical session identifier.
	ErrMalformedSegment = errors.New("malformed ad segment filename")

	// ErrEmptyCatalog is returned by a decider with nothing to choose from.
	ErrEmptyCatalog = errors.New("ad catalog is empty")
)

// UpstreamError reports a failed origin fetch. Status is zero when the origin
// could not be reached at all.
type UpstreamError struct {
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("origin unreachable: %v", e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("origin response (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("origin returned status %d", e.Status)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
