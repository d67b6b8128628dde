// Package observability exposes process metrics in the Prometheus text
// format and sets up OpenTelemetry tracing.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// series is a counter or gauge keyed by rendered label set. An unlabeled
// series always has the "" entry so it renders as 0 before first use.
type series struct {
	name   string
	help   string
	kind   string
	labels []string

	mu     sync.Mutex
	values map[string]float64
}

func newSeries(kind, name, help string, labels ...string) *series {
	s := &series{name: name, help: help, kind: kind, labels: labels, values: map[string]float64{}}
	if len(labels) == 0 {
		s.values[""] = 0
	}
	return s
}

func newCounter(name, help string, labels ...string) *series {
	return newSeries("counter", name, help, labels...)
}

func newGauge(name, help string, labels ...string) *series {
	return newSeries("gauge", name, help, labels...)
}

func (s *series) Inc(values ...string) { s.add(1, values) }

// Dec is only meaningful for gauges.
func (s *series) Dec(values ...string) { s.add(-1, values) }

func (s *series) Set(v float64, values ...string) {
	key := labelString(s.labels, values)
	s.mu.Lock()
	s.values[key] = v
	s.mu.Unlock()
}

func (s *series) add(delta float64, values []string) {
	key := labelString(s.labels, values)
	s.mu.Lock()
	s.values[key] += delta
	s.mu.Unlock()
}

func (s *series) WritePrometheus(w io.Writer) error {
	if err := writeHeader(w, s.name, s.help, s.kind); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range sortedKeys(s.values) {
		if _, err := fmt.Fprintf(w, "%s%s %g\n", s.name, key, s.values[key]); err != nil {
			return err
		}
	}
	return nil
}

var defaultBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}

// histogramVec tracks cumulative bucket counts per label set. counts has
// one extra slot for +Inf.
type histogramVec struct {
	name    string
	help    string
	labels  []string
	buckets []float64

	mu     sync.Mutex
	series map[string]*histogram
}

type histogram struct {
	counts []uint64
	sum    float64
	total  uint64
}

func newHistogram(name, help string, buckets []float64, labels ...string) *histogramVec {
	if len(buckets) == 0 {
		buckets = defaultBuckets
	}
	return &histogramVec{name: name, help: help, labels: labels, buckets: buckets, series: map[string]*histogram{}}
}

func (h *histogramVec) Observe(v float64, values ...string) {
	key := labelString(h.labels, values)
	h.mu.Lock()
	defer h.mu.Unlock()
	hist := h.series[key]
	if hist == nil {
		hist = &histogram{counts: make([]uint64, len(h.buckets)+1)}
		h.series[key] = hist
	}
	hist.sum += v
	hist.total++
	for i, upper := range h.buckets {
		if v <= upper {
			hist.counts[i]++
		}
	}
	hist.counts[len(h.buckets)]++
}

func (h *histogramVec) WritePrometheus(w io.Writer) error {
	if err := writeHeader(w, h.name, h.help, "histogram"); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, key := range sortedKeys(h.series) {
		hist := h.series[key]
		for i, count := range hist.counts {
			le := "+Inf"
			if i < len(h.buckets) {
				le = strconv.FormatFloat(h.buckets[i], 'g', -1, 64)
			}
			if _, err := fmt.Fprintf(w, "%s_bucket%s %d\n", h.name, withLe(key, le), count); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s_sum%s %g\n%s_count%s %d\n", h.name, key, hist.sum, h.name, key, hist.total); err != nil {
			return err
		}
	}
	return nil
}

func writeHeader(w io.Writer, name, help, kind string) error {
	_, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, kind)
	return err
}

// labelString renders {a="x",b="y"}. Missing values render as "unknown".
func labelString(names, values []string) string {
	if len(names) == 0 {
		return ""
	}
	parts := make([]string, len(names))
	for i, name := range names {
		val := "unknown"
		if i < len(values) {
			val = values[i]
		}
		parts[i] = name + `="` + labelEscaper.Replace(val) + `"`
	}
	return "{" + strings.Join(parts, ",") + "}"
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func withLe(labels, le string) string {
	if labels == "" {
		return `{le="` + le + `"}`
	}
	return strings.TrimSuffix(labels, "}") + `,le="` + le + `"}`
}

func isServerErrorStatus(status string) bool {
	status = strings.TrimSpace(status)
	return len(status) == 3 && status[0] == '5'
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
