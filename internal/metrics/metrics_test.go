package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestMetrics tests that recorders update the collectors.
func TestMetrics(t *testing.T) {
	t.Parallel()

	m := New()
	m.PageFetched(200, 1024, 0.2)
	m.PageFetched(200, 512, 0.1)
	m.PageFetched(404, 0, 0.05)
	m.Duplicate(DuplicatePage)
	m.Duplicate(DuplicateLink)
	m.Duplicate(DuplicateLink)
	m.URLEnqueued()
	m.MalformedURL()
	m.SetFrontier(7, 2)

	if got := testutil.ToFloat64(m.pagesFetched.WithLabelValues("200")); got != 2 {
		t.Errorf("expected 2 pages with status 200, got %v", got)
	}
	if got := testutil.ToFloat64(m.bytesFetched); got != 1536 {
		t.Errorf("expected 1536 bytes, got %v", got)
	}
	if got := testutil.ToFloat64(m.duplicates.WithLabelValues(DuplicateLink)); got != 2 {
		t.Errorf("expected 2 duplicate links, got %v", got)
	}
	if got := testutil.ToFloat64(m.frontierQueued); got != 7 {
		t.Errorf("expected 7 pending, got %v", got)
	}
	if got := testutil.ToFloat64(m.busyWorkers); got != 2 {
		t.Errorf("expected 2 busy workers, got %v", got)
	}
}

// TestNilMetrics tests that a nil *Metrics is a no-op.
func TestNilMetrics(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.PageFetched(200, 1, 0.1)
	m.Duplicate(DuplicatePage)
	m.URLEnqueued()
	m.MalformedURL()
	m.SetFrontier(1, 1)
}

// TestHandler tests the exposition endpoint.
func TestHandler(t *testing.T) {
	t.Parallel()

	m := New()
	m.URLEnqueued()

	server := httptest.NewServer(m.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL) //nolint:noctx // test request
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	for _, want := range []string{"campuscrawl_urls_enqueued_total 1", "go_goroutines"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("expected %q in exposition output", want)
		}
	}
}
