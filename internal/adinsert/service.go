package adinsert

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// BindMode decides whether the ad binding is written before or after the
// rewritten playlist is sent.
type BindMode string

const (
	// BindAsync answers first and writes the binding afterwards. A client that
	// requests ad segments faster than the store write completes will miss.
	BindAsync BindMode = "async"

	// BindSync writes the binding before answering, paying the store latency
	// on every playlist request.
	BindSync BindMode = "sync"
)

// PlaylistFetcher retrieves the original playlist for a client request.
type PlaylistFetcher interface {
	FetchPlaylist(ctx context.Context, r *http.Request) (string, error)
}

// ServiceConfig holds the rewrite parameters. Zero values take the defaults.
type ServiceConfig struct {
	Template      string
	Marker        string
	SegmentPrefix string
	BindMode      BindMode
	// FallbackAd, when set, is served for sessions the store has no entry for
	// instead of failing the segment request.
	FallbackAd string
}

// Service rewrites playlists and resolves ad segments against the session store.
type Service struct {
	fetcher PlaylistFetcher
	store   SessionStore
	ids     *IDGenerator
	binder  *Binder
	cfg     ServiceConfig
}

// NewService returns a Service. Empty config fields are replaced by the
// package defaults.
func NewService(fetcher PlaylistFetcher, store SessionStore, ids *IDGenerator, binder *Binder, cfg ServiceConfig) *Service {
	if cfg.Template == "" {
		cfg.Template = DefaultAdBreakTemplate
	}
	if cfg.Marker == "" {
		cfg.Marker = DefaultMarker
	}
	if cfg.SegmentPrefix == "" {
		cfg.SegmentPrefix = DefaultSegmentPrefix
	}
	cfg.SegmentPrefix = "/" + strings.Trim(cfg.SegmentPrefix, "/")
	if cfg.BindMode == "" {
		cfg.BindMode = BindAsync
	}
	if ids == nil {
		ids = NewIDGenerator(nil)
	}
	return &Service{fetcher: fetcher, store: store, ids: ids, binder: binder, cfg: cfg}
}

// BindMode returns the configured bind ordering.
func (s *Service) BindMode() BindMode {
	return s.cfg.BindMode
}

// IsPlaylist reports whether path names a playlist resource.
func (s *Service) IsPlaylist(path string) bool {
	return strings.HasSuffix(path, PlaylistSuffix)
}

// IsAdSegment reports whether path falls under the ad segment namespace.
// Only the prefix itself or paths below it match; "/adsX" is forwarded as is.
func (s *Service) IsAdSegment(path string) bool {
	return path == s.cfg.SegmentPrefix || strings.HasPrefix(path, s.cfg.SegmentPrefix+"/")
}

// RewriteManifest fetches the origin playlist for r and splices in an ad
// break bound to a new session identifier. The binding itself is not
// written; see Bind and BindAsync.
func (s *Service) RewriteManifest(ctx context.Context, r *http.Request) (Manifest, error) {
	playlist, err := s.fetcher.FetchPlaylist(ctx, r)
	if err != nil {
		return Manifest{}, err
	}

	id, err := s.ids.New()
	if err != nil {
		return Manifest{}, err
	}

	fragment := BuildAdBreak(s.cfg.Template, id, playlist)
	body, inserted := SpliceAdBreak(playlist, s.cfg.Marker, fragment)

	return Manifest{SessionID: id, Body: body, Inserted: inserted}, nil
}

// Bind writes the ad binding for id before returning.
func (s *Service) Bind(ctx context.Context, id SessionID) error {
	return s.binder.BindSync(ctx, id)
}

// BindAsync schedules the ad binding for id in the background.
func (s *Service) BindAsync(id SessionID) {
	s.binder.BindAsync(id)
}

// Wait blocks until background binds have drained or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	return s.binder.Wait(ctx)
}

// Resolution is the outcome of resolving an ad segment path.
type Resolution struct {
	SessionID SessionID
	AdName    string
	Path      string
	// Fallback is true when the configured fallback ad replaced a missing binding.
	Fallback bool
}

// ResolveSegment maps a synthetic ad segment path to the origin path of the
// ad bound to its session.
func (s *Service) ResolveSegment(ctx context.Context, segmentPath string) (Resolution, error) {
	id, err := SessionIDFromSegment(segmentPath)
	if err != nil {
		return Resolution{}, err
	}

	adName, found, err := s.store.Get(ctx, string(id))
	if err != nil {
		err = fmt.Errorf("lookup session %s: %w", id, err)
	} else if !found {
		err = ErrSessionNotFound
	}

	res := Resolution{SessionID: id, AdName: adName}
	if err != nil {
		if s.cfg.FallbackAd == "" {
			return res, err
		}
		res.AdName = s.cfg.FallbackAd
		res.Fallback = true
	}
	res.Path = ResolveSegmentPath(segmentPath, id, res.AdName)
	return res, nil
}
