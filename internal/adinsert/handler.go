package adinsert

import (
	"errors"
	"log/slog"
	"net/http"

	"hls-adinsert/internal/platform/metrics"
)

const playlistContentType = "application/vnd.apple.mpegurl"

// Forwarder relays a request to the origin at the given path.
type Forwarder interface {
	Forward(w http.ResponseWriter, r *http.Request, path string)
}

// Handler dispatches client requests to the rewriter, the resolver or a
// plain origin forward.
type Handler struct {
	svc     *Service
	origin  Forwarder
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler. Metrics may be nil to disable metric
// recording (e.g. in tests).
func NewHandler(svc *Service, origin Forwarder, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, origin: origin, log: log, metrics: m}
}

// Dispatch examines the request path once and routes it.
func (h *Handler) Dispatch(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case h.svc.IsPlaylist(path):
		h.ServeManifest(w, r)
	case h.svc.IsAdSegment(path):
		h.ServeAdSegment(w, r)
	default:
		h.origin.Forward(w, r, path)
	}
}

// ServeManifest returns the origin playlist with an ad break spliced in.
func (h *Handler) ServeManifest(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.RewriteManifest(r.Context(), r)
	if err != nil {
		h.writeFetchError(w, r, err)
		return
	}

	if !m.Inserted {
		h.log.Debug("ad break marker not found", slog.String("path", r.URL.Path))
		if h.metrics != nil {
			h.metrics.IncMarkersMissing()
		}
	}

	async := h.svc.BindMode() != BindSync
	if !async {
		if err := h.svc.Bind(r.Context(), m.SessionID); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", playlistContentType)
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write([]byte(m.Body))
	}
	_ = http.NewResponseController(w).Flush()

	h.log.Debug("manifest rewritten",
		slog.String("path", r.URL.Path),
		slog.String("session_id", string(m.SessionID)),
		slog.Bool("inserted", m.Inserted))
	if h.metrics != nil {
		h.metrics.IncManifestsRewritten()
	}

	if async {
		h.svc.BindAsync(m.SessionID)
	}
}

// ServeAdSegment resolves a synthetic ad segment to the bound ad's media and
// forwards it from the origin.
func (h *Handler) ServeAdSegment(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ResolveSegment(r.Context(), r.URL.Path)
	if err != nil {
		switch {
		case errors.Is(err, ErrMalformedSegment):
			h.log.Debug("malformed ad segment", slog.String("path", r.URL.Path))
			w.WriteHeader(http.StatusBadRequest)
		case errors.Is(err, ErrSessionNotFound):
			h.log.Warn("ad session not found",
				slog.String("path", r.URL.Path),
				slog.String("session_id", string(res.SessionID)))
			if h.metrics != nil {
				h.metrics.IncLookupMisses()
			}
			w.WriteHeader(http.StatusInternalServerError)
		default:
			h.log.Error("ad session lookup failed",
				slog.String("path", r.URL.Path),
				slog.String("error", err.Error()))
			if h.metrics != nil {
				h.metrics.IncLookupMisses()
			}
			w.WriteHeader(http.StatusInternalServerError)
		}
		return
	}

	if res.Fallback {
		h.log.Warn("ad session not bound, serving fallback ad",
			slog.String("session_id", string(res.SessionID)),
			slog.String("ad_name", res.AdName))
		if h.metrics != nil {
			h.metrics.IncLookupMisses()
		}
	}

	h.log.Info("replacing session id with ad path",
		slog.String("session_id", string(res.SessionID)),
		slog.String("ad_name", res.AdName),
		slog.String("path", res.Path))
	if h.metrics != nil {
		h.metrics.IncSegmentsResolved()
	}
	h.origin.Forward(w, r, res.Path)
}

func (h *Handler) writeFetchError(w http.ResponseWriter, r *http.Request, err error) {
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		h.log.Warn("origin playlist fetch failed",
			slog.String("path", r.URL.Path),
			slog.Int("origin_status", upErr.Status),
			slog.String("error", err.Error()))
		if upErr.Status < http.StatusBadRequest {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(upErr.Status)
		return
	}
	h.log.Error("manifest rewrite failed",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()))
	w.WriteHeader(http.StatusInternalServerError)
}
