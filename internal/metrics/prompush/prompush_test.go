package prompush

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"csvsplit/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// gathered returns the metric in family name whose labels include want, or
// nil when the registry holds no such series.
func gathered(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) *dto.Metric {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			have := map[string]string{}
			for _, lp := range m.GetLabel() {
				have[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if have[k] != v {
					continue next
				}
			}
			return m
		}
	}
	return nil
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	m := gathered(t, reg, name, labels)
	if m == nil {
		t.Fatalf("%s%v not gathered", name, labels)
	}
	return m.GetCounter().GetValue()
}

func TestNewBackend_Defaults(t *testing.T) {
	if _, err := NewBackend("split-job", ""); err == nil {
		t.Fatalf("NewBackend without gateway URL should fail")
	}
	b, err := NewBackend("", "http://pushgateway:9091")
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	if b.jobName != "csvsplit" {
		t.Fatalf("jobName = %q, want csvsplit", b.jobName)
	}
}

/*
TestRecordHelpers_ReachRegistry verifies that the metrics package helpers,
routed through this backend, land on the right collectors: files are summed
on split_files_total, each row kind gets its own split_records_total series,
and zero deltas create no series at all.
*/
func TestRecordHelpers_ReachRegistry(t *testing.T) {
	b, err := NewBackend("split-job", "http://example.com")
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	metrics.SetBackend(b)
	t.Cleanup(metrics.Reset)

	metrics.RecordRow("split-job", "read", 10)
	metrics.RecordRow("split-job", "written", 7)
	metrics.RecordRow("split-job", "dropped", 2)
	metrics.RecordRow("split-job", "dropped", 1)
	metrics.RecordRow("split-job", "errors", 0)
	metrics.RecordFiles("split-job", 2)
	metrics.RecordFiles("split-job", 1)
	metrics.RecordFiles("split-job", 0)
	metrics.RecordStep("split-job", "split", nil, 1500*time.Millisecond)
	metrics.RecordStep("split-job", "manifest", errors.New("boom"), time.Second)

	tests := []struct {
		name   string
		labels map[string]string
		want   float64
	}{
		{metrics.FilesTotal, nil, 3},
		{metrics.RecordsTotal, map[string]string{"kind": "read"}, 10},
		{metrics.RecordsTotal, map[string]string{"kind": "written"}, 7},
		{metrics.RecordsTotal, map[string]string{"kind": "dropped"}, 3},
		{metrics.StepTotal, map[string]string{"step": "split", "status": "success"}, 1},
		{metrics.StepTotal, map[string]string{"step": "manifest", "status": "failure"}, 1},
	}
	for _, tt := range tests {
		if got := counterValue(t, b.reg, tt.name, tt.labels); got != tt.want {
			t.Fatalf("%s%v = %v, want %v", tt.name, tt.labels, got, tt.want)
		}
	}

	if m := gathered(t, b.reg, metrics.RecordsTotal, map[string]string{"kind": "errors"}); m != nil {
		t.Fatalf("zero delta created an errors series: %v", m)
	}
	m := gathered(t, b.reg, metrics.StepDurationSeconds, map[string]string{"step": "split"})
	if m == nil || m.GetSummary().GetSampleCount() != 1 || m.GetSummary().GetSampleSum() != 1.5 {
		t.Fatalf("split duration summary = %v", m)
	}
}

func TestIncCounter_UnknownAndZeroBackend(t *testing.T) {
	b, err := NewBackend("split-job", "http://example.com")
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	b.IncCounter("unknown_metric", 10, metrics.Labels{"kind": "read"})
	b.ObserveHistogram(metrics.StepTotal, 1, metrics.Labels{"step": "split"})
	if m := gathered(t, b.reg, metrics.RecordsTotal, nil); m != nil {
		t.Fatalf("unknown metric reached the record counter: %v", m)
	}

	var zero Backend
	zero.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "s", "status": "success"})
	zero.IncCounter(metrics.RecordsTotal, 1, metrics.Labels{"kind": "dropped"})
	zero.IncCounter(metrics.FilesTotal, 1, nil)
	zero.ObserveHistogram(metrics.StepDurationSeconds, 1, nil)
}

/*
TestFlush verifies that Flush PUTs the registry under the job's grouping key
and that the pushed body carries the file and record counters.
*/
func TestFlush(t *testing.T) {
	type pushed struct {
		method, path string
		body         []byte
	}
	reqCh := make(chan pushed, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		reqCh <- pushed{method: r.Method, path: r.URL.Path, body: body}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	b, err := NewBackend("split-job", server.URL)
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	b.IncCounter(metrics.FilesTotal, 4, nil)
	b.IncCounter(metrics.RecordsTotal, 2, metrics.Labels{"kind": "dropped"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	var got pushed
	select {
	case got = <-reqCh:
	default:
		t.Fatalf("Flush() sent nothing to the Pushgateway")
	}
	if got.method != http.MethodPut || got.path != "/metrics/job/split-job" {
		t.Fatalf("push request = %s %s", got.method, got.path)
	}
	for _, name := range []string{metrics.FilesTotal, metrics.RecordsTotal, "dropped"} {
		if !bytes.Contains(got.body, []byte(name)) {
			t.Fatalf("push body lacks %q", name)
		}
	}
}
