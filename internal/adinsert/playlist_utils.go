package adinsert

import (
	"strings"
)

const (
	mapTag    = "#EXT-X-MAP"
	extinfTag = "#EXTINF"
)

// InstantiateAdBreak substitutes id for every template token in tmpl.
func InstantiateAdBreak(tmpl string, id SessionID) string {
	return strings.ReplaceAll(tmpl, TemplateToken, string(id))
}

// CarriedMapLine returns the #EXT-X-MAP line of playlist if one appears before
// the first #EXTINF entry. Playlists whose first media entry precedes any map
// line, or that contain neither, yield "".
func CarriedMapLine(playlist string) string {
	for _, line := range strings.Split(playlist, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.HasPrefix(line, mapTag) {
			return line
		}
		if strings.HasPrefix(line, extinfTag) {
			return ""
		}
	}
	return ""
}

// BuildAdBreak instantiates tmpl for id and appends the playlist's carried
// map line so the main content resumes with its own init segment.
func BuildAdBreak(tmpl string, id SessionID, playlist string) string {
	fragment := InstantiateAdBreak(tmpl, id)
	if mapLine := CarriedMapLine(playlist); mapLine != "" {
		fragment += "\n" + mapLine
	}
	return fragment
}

// SpliceAdBreak replaces the first occurrence of marker in playlist with
// fragment. It reports false and returns playlist untouched when the marker
// is absent.
func SpliceAdBreak(playlist, marker, fragment string) (string, bool) {
	if marker == "" || !strings.Contains(playlist, marker) {
		return playlist, false
	}
	return strings.Replace(playlist, marker, fragment, 1), true
}

// SessionIDFromSegment extracts the session identifier that prefixes the
// final path component of an ad segment path. The prefix must be a canonical
// lowercase UUID.
func SessionIDFromSegment(segmentPath string) (SessionID, error) {
	filename := segmentPath
	if i := strings.LastIndexByte(filename, '/'); i >= 0 {
		filename = filename[i+1:]
	}
	if len(filename) < SessionIDLen {
		return "", ErrMalformedSegment
	}
	candidate := filename[:SessionIDLen]
	if !validSessionID(candidate) {
		return "", ErrMalformedSegment
	}
	return SessionID(candidate), nil
}

// ResolveSegmentPath replaces the session identifier in segmentPath with the
// ad name, producing the origin path of the real ad media.
func ResolveSegmentPath(segmentPath string, id SessionID, adName string) string {
	return strings.ReplaceAll(segmentPath, string(id), adName)
}
