package prompush

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/qlemen7/cineexplorer/internal/metrics"
)

func TestNewBackendRequiresURL(t *testing.T) {
	t.Parallel()
	if _, err := NewBackend("job", ""); err == nil {
		t.Fatalf("expected error for empty gateway URL")
	}
	b, err := NewBackend("", "http://gw:9091")
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	if b.jobName != "cineexplorer" {
		t.Fatalf("jobName = %q, want default", b.jobName)
	}
}

func TestCountersAndSummary(t *testing.T) {
	t.Parallel()
	b, err := NewBackend("movies", "http://gw:9091")
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}

	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "load", "status": "success"})
	b.IncCounter(metrics.DocumentsTotal, 42, metrics.Labels{"kind": "inserted"})
	b.IncCounter(metrics.BatchesTotal, 3, nil)
	b.IncCounter("unknown", 1, nil)
	b.ObserveHistogram(metrics.StepDuration, 0.25, metrics.Labels{"step": "load", "status": "success"})

	if got := testutil.ToFloat64(b.stepCounter.WithLabelValues("load", "success")); got != 1 {
		t.Fatalf("step counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(b.docCounter.WithLabelValues("inserted")); got != 42 {
		t.Fatalf("doc counter = %v, want 42", got)
	}
	if got := testutil.ToFloat64(b.batchCounter); got != 3 {
		t.Fatalf("batch counter = %v, want 3", got)
	}
	if n := testutil.CollectAndCount(b.stepDuration); n != 1 {
		t.Fatalf("summary series = %d, want 1", n)
	}
}

func TestFlushPushesToGateway(t *testing.T) {
	t.Parallel()

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b, err := NewBackend("movies", srv.URL)
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	b.IncCounter(metrics.BatchesTotal, 1, nil)
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if !strings.Contains(gotPath, "/job/movies") {
		t.Fatalf("push path = %q, want job grouping", gotPath)
	}
}
