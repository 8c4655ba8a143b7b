package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRequestMiddleware_counts_errors(t *testing.T) {
	m := New()
	status := http.StatusOK
	h := RequestMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/a.m3u8", nil))
	status = http.StatusInternalServerError
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ads/x.m4s", nil))

	if got := testutil.ToFloat64(m.requestsTotal); got != 2 {
		t.Errorf("expected 2 requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.errorsTotal); got != 1 {
		t.Errorf("expected 1 error, got %v", got)
	}
}

func TestMetrics_binds_in_flight(t *testing.T) {
	m := New()
	m.IncBindsInFlight()
	m.IncBindsInFlight()
	m.DecBindsInFlight()
	if got := testutil.ToFloat64(m.bindsInFlight); got != 1 {
		t.Errorf("expected 1 bind in flight, got %v", got)
	}
}

func TestHandler_exposes_metrics(t *testing.T) {
	m := New()
	m.IncManifestsRewritten()
	m.IncLookupMisses()

	called := false
	rec := httptest.NewRecorder()
	m.Handler(func() {
		called = true
		m.SetStoreEntries(7)
	}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if !called {
		t.Error("expected gauges to be refreshed before scrape")
	}
	body := rec.Body.String()
	for _, want := range []string{
		"adinsert_manifests_rewritten_total 1",
		"adinsert_session_lookup_misses_total 1",
		"adinsert_store_entries 7",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in scrape output", want)
		}
	}
}
