package adinsert

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"
)

// maxPlaylistBytes bounds how much of an origin playlist is read into memory.
const maxPlaylistBytes = 8 << 20

var errPlaylistTooLarge = fmt.Errorf("origin playlist exceeds %d bytes", maxPlaylistBytes)

var revalidationHeaders = []string{"If-None-Match", "If-Modified-Since", "If-Match", "If-Unmodified-Since", "If-Range", "Range"}

// Origin talks to the backend that serves original playlists and media.
type Origin struct {
	base   *url.URL
	client *http.Client
	proxy  *httputil.ReverseProxy
	log    *slog.Logger
}

// NewOrigin returns an Origin rooted at baseURL. timeout bounds playlist
// fetches; zero means no timeout.
func NewOrigin(baseURL string, timeout time.Duration, log *slog.Logger) (*Origin, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse origin url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("origin url %q: missing scheme or host", baseURL)
	}

	o := &Origin{
		base:   base,
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
	o.proxy = &httputil.ReverseProxy{
		Director: func(req *http.Request) {
			req.URL.Scheme = base.Scheme
			req.URL.Host = base.Host
			req.URL.Path = singleJoiningSlash(base.Path, req.URL.Path)
			req.URL.RawPath = ""
			req.Host = base.Host
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			o.log.Error("origin forward failed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("error", err.Error()))
			w.WriteHeader(http.StatusBadGateway)
		},
		FlushInterval: 50 * time.Millisecond,
	}
	return o, nil
}

// FetchPlaylist mirrors r (method, headers, path and query, no body) to the
// origin and returns the response body text.
func (o *Origin) FetchPlaylist(ctx context.Context, r *http.Request) (string, error) {
	target := *o.base
	target.Path = singleJoiningSlash(o.base.Path, r.URL.Path)
	target.RawPath = ""
	target.RawQuery = r.URL.RawQuery

	req, err := http.NewRequestWithContext(ctx, r.Method, target.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build origin request: %w", err)
	}
	req.Header = r.Header.Clone()
	// Let the transport negotiate compression so the body arrives as text.
	req.Header.Del("Accept-Encoding")
	// Every rewrite carries a fresh session, so the full playlist is always
	// needed: never a 304 or a partial body.
	for _, h := range revalidationHeaders {
		req.Header.Del(h)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return "", &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxPlaylistBytes))
		return "", &UpstreamError{Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPlaylistBytes+1))
	if err != nil {
		return "", &UpstreamError{Status: resp.StatusCode, Err: err}
	}
	if len(body) > maxPlaylistBytes {
		return "", &UpstreamError{Status: resp.StatusCode, Err: errPlaylistTooLarge}
	}
	return string(body), nil
}

// Forward proxies r to the origin at path and streams the response back
// unmodified.
func (o *Origin) Forward(w http.ResponseWriter, r *http.Request, path string) {
	out := r.Clone(r.Context())
	out.URL.Path = path
	out.URL.RawPath = ""
	o.proxy.ServeHTTP(w, out)
}

func singleJoiningSlash(a, b string) string {
	slashA := strings.HasSuffix(a, "/")
	slashB := strings.HasPrefix(b, "/")
	if slashA && slashB {
		return a + b[1:]
	}
	if !slashA && !slashB {
		return a + "/" + b
	}
	return a + b
}
