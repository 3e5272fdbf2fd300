package datadog

import (
	"context"
	"net/http"
	"os"
	"reflect"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"baac/internal/metrics"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
)

// fakeSubmitter captures payloads submitted by Backend.Flush().
type fakeSubmitter struct {
	mu       sync.Mutex
	payloads []datadogV2.MetricPayload
	err      error
}

func (f *fakeSubmitter) SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, body)
	return datadogV2.IntakePayloadAccepted{}, nil, f.err
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func (f *fakeSubmitter) last() (datadogV2.MetricPayload, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.payloads) == 0 {
		return datadogV2.MetricPayload{}, false
	}
	return f.payloads[len(f.payloads)-1], true
}

// newTestBackend builds a Backend with a fake submitter and a ticker that
// never fires, so tests control flushing explicitly.
func newTestBackend(t *testing.T, fake *fakeSubmitter) *Backend {
	t.Helper()
	b, err := NewBackend(context.Background(), Options{
		JobName:    "testjob",
		FlushEvery: time.Hour,
		submitter:  fake,
		now:        func() time.Time { return time.Unix(1700000000, 0) },
	})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func metricNames(p datadogV2.MetricPayload) []string {
	names := make([]string, 0, len(p.Series))
	for _, s := range p.Series {
		names = append(names, s.Metric)
	}
	sort.Strings(names)
	return names
}

func TestResolveEnvTag(t *testing.T) {
	oldENV := os.Getenv("ENV")
	oldDDENV := os.Getenv("DD_ENV")
	t.Cleanup(func() {
		_ = os.Setenv("ENV", oldENV)
		_ = os.Setenv("DD_ENV", oldDDENV)
	})

	tests := []struct {
		name string
		env  string
		dd   string
		want string
	}{
		{name: "ENV_wins", env: "prod", dd: "stage", want: "env:prod"},
		{name: "DD_ENV_used_when_ENV_empty", env: "", dd: "stage", want: "env:stage"},
		{name: "whitespace_ignored", env: "   ", dd: "\t", want: "env:unknown"},
		{name: "default_unknown", env: "", dd: "", want: "env:unknown"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_ = os.Setenv("ENV", tc.env)
			_ = os.Setenv("DD_ENV", tc.dd)
			if got := resolveEnvTag(); got != tc.want {
				t.Fatalf("resolveEnvTag()=%q, want %q", got, tc.want)
			}
		})
	}
}

func TestPairKeyRoundTrip(t *testing.T) {
	tests := []struct {
		a, b string
	}{
		{"clean", "ok"},
		{"", "ok"},
		{"join", ""},
		{"", ""},
	}
	for _, tc := range tests {
		a, b := splitPairKey(pairKey(tc.a, tc.b))
		if a != tc.a || b != tc.b {
			t.Fatalf("round trip (%q,%q) -> (%q,%q)", tc.a, tc.b, a, b)
		}
	}

	if a, b := splitPairKey("bare"); a != "bare" || b != "unknown" {
		t.Fatalf("splitPairKey(bare)=(%q,%q), want (bare, unknown)", a, b)
	}
}

func TestFlush_EmptyBuffersSubmitNothing(t *testing.T) {
	fake := &fakeSubmitter{}
	b := newTestBackend(t, fake)

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if fake.count() != 0 {
		t.Fatalf("payloads=%d, want 0 for empty buffers", fake.count())
	}
}

func TestFlush_BuildsExpectedSeries(t *testing.T) {
	fake := &fakeSubmitter{}
	b := newTestBackend(t, fake)

	b.IncCounter("pipeline_step_total", 1, metrics.Labels{"stage": "clean", "status": "ok"})
	b.IncCounter("pipeline_rows_total", 100, metrics.Labels{"table": "usagers", "phase": "raw"})
	b.IncCounter("pipeline_nulled_total", 7, metrics.Labels{"table": "usagers"})
	b.IncCounter("pipeline_join_unmatched_total", 3, metrics.Labels{"stage": "lieux"})
	b.ObserveHistogram("pipeline_step_duration_seconds", 0.25, metrics.Labels{"stage": "clean", "status": "ok"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	payload, ok := fake.last()
	if !ok {
		t.Fatal("no payload submitted")
	}

	want := []string{
		"baac.pipeline.join.unmatched.total",
		"baac.pipeline.nulled.total",
		"baac.pipeline.rows.total",
		"baac.pipeline.step.duration_seconds.max",
		"baac.pipeline.step.duration_seconds.p50",
		"baac.pipeline.step.duration_seconds.p95",
		"baac.pipeline.step.duration_seconds.samples",
		"baac.pipeline.step.total",
	}
	if got := metricNames(payload); !reflect.DeepEqual(got, want) {
		t.Fatalf("metrics=%v, want %v", got, want)
	}

	for _, s := range payload.Series {
		if s.Metric != "baac.pipeline.rows.total" {
			continue
		}
		joined := strings.Join(s.Tags, ",")
		for _, tag := range []string{"job:testjob", "table:usagers", "phase:raw"} {
			if !strings.Contains(joined, tag) {
				t.Fatalf("rows.total tags=%v, want %s", s.Tags, tag)
			}
		}
		if len(s.Points) != 1 || s.Points[0].Value == nil || *s.Points[0].Value != 100 {
			t.Fatalf("rows.total points=%v, want single value 100", s.Points)
		}
		if s.Points[0].Timestamp == nil || *s.Points[0].Timestamp != 1700000000 {
			t.Fatalf("rows.total timestamp=%v, want injected clock", s.Points[0].Timestamp)
		}
	}
}

func TestFlush_ResetsBuffers(t *testing.T) {
	fake := &fakeSubmitter{}
	b := newTestBackend(t, fake)

	b.IncCounter("pipeline_step_total", 1, metrics.Labels{"stage": "clean", "status": "ok"})
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := b.Flush(); err != nil {
		t.Fatalf("second Flush: %v", err)
	}
	if fake.count() != 1 {
		t.Fatalf("payloads=%d, want 1 (buffers must reset after flush)", fake.count())
	}
}

func TestIncCounter_IgnoresUnknownAndNonPositive(t *testing.T) {
	fake := &fakeSubmitter{}
	b := newTestBackend(t, fake)

	b.IncCounter("something_else", 5, nil)
	b.IncCounter("pipeline_step_total", 0, metrics.Labels{"stage": "x", "status": "ok"})
	b.IncCounter("pipeline_step_total", -2, metrics.Labels{"stage": "x", "status": "ok"})
	b.IncCounter("pipeline_rows_total", 5, metrics.Labels{"phase": "raw"}) // no table

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if fake.count() != 0 {
		t.Fatalf("payloads=%d, want 0", fake.count())
	}
}

func TestPercentileNearestRank(t *testing.T) {
	s := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	tests := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{0.5, 6},
		{0.95, 10},
		{1, 10},
	}
	for _, tc := range tests {
		if got := percentileNearestRank(s, tc.p); got != tc.want {
			t.Fatalf("percentileNearestRank(p=%v)=%v, want %v", tc.p, got, tc.want)
		}
	}

	if got := percentileNearestRank(nil, 0.5); got != 0 {
		t.Fatalf("percentileNearestRank(nil)=%v, want 0", got)
	}
}

func TestParseTagsCSV(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{in: "", want: nil},
		{in: "env:prod", want: []string{"env:prod"}},
		{in: " env:prod , service:baac ,", want: []string{"env:prod", "service:baac"}},
	}
	for _, tc := range tests {
		if got := ParseTagsCSV(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("ParseTagsCSV(%q)=%v, want %v", tc.in, got, tc.want)
		}
	}
}
