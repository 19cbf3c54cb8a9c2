// Package metrics provides a lightweight, Prometheus-compatible metrics
// collector for the ingestion pipeline. It renders text/plain in the
// Prometheus exposition format without the client_golang dependency.
package metrics

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Collector is the global metrics collector.
var Collector = NewCollector()

// MetricsCollector aggregates counters and gauges.
type MetricsCollector struct {
	counters  sync.Map // key -> *Counter
	gauges    sync.Map // key -> *Gauge
	startTime time.Time
}

func NewCollector() *MetricsCollector {
	return &MetricsCollector{startTime: time.Now()}
}

// Uptime returns how long the collector has been running.
func (c *MetricsCollector) Uptime() time.Duration {
	return time.Since(c.startTime)
}

// Counter is a monotonically increasing counter.
type Counter struct {
	name   string
	help   string
	labels string
	value  atomic.Int64
}

func (c *Counter) Inc()         { c.value.Add(1) }
func (c *Counter) Add(n int64)  { c.value.Add(n) }
func (c *Counter) Value() int64 { return c.value.Load() }

// Gauge is a value that can go up and down.
type Gauge struct {
	name   string
	help   string
	labels string
	value  atomic.Int64
}

func (g *Gauge) Set(v int64)  { g.value.Store(v) }
func (g *Gauge) Inc()         { g.value.Add(1) }
func (g *Gauge) Dec()         { g.value.Add(-1) }
func (g *Gauge) Value() int64 { return g.value.Load() }

// Counter returns or creates a counter with the given name and label set.
func (c *MetricsCollector) Counter(name, help, labels string) *Counter {
	key := name + "{" + labels + "}"
	if v, ok := c.counters.Load(key); ok {
		return v.(*Counter)
	}
	ctr := &Counter{name: name, help: help, labels: labels}
	actual, _ := c.counters.LoadOrStore(key, ctr)
	return actual.(*Counter)
}

// Gauge returns or creates a gauge with the given name and label set.
func (c *MetricsCollector) Gauge(name, help, labels string) *Gauge {
	key := name + "{" + labels + "}"
	if v, ok := c.gauges.Load(key); ok {
		return v.(*Gauge)
	}
	g := &Gauge{name: name, help: help, labels: labels}
	actual, _ := c.gauges.LoadOrStore(key, g)
	return actual.(*Gauge)
}

// Handler returns an http.HandlerFunc that renders metrics in Prometheus
// text format.
func (c *MetricsCollector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

		var sb strings.Builder

		fmt.Fprintf(&sb, "# HELP mediagate_uptime_seconds Time since start in seconds\n")
		fmt.Fprintf(&sb, "# TYPE mediagate_uptime_seconds gauge\n")
		fmt.Fprintf(&sb, "mediagate_uptime_seconds %d\n\n", int64(c.Uptime().Seconds()))

		helpWritten := make(map[string]bool)
		c.counters.Range(func(key, value any) bool {
			ctr := value.(*Counter)
			if !helpWritten[ctr.name] {
				fmt.Fprintf(&sb, "# HELP %s %s\n", ctr.name, ctr.help)
				fmt.Fprintf(&sb, "# TYPE %s counter\n", ctr.name)
				helpWritten[ctr.name] = true
			}
			if ctr.labels != "" {
				fmt.Fprintf(&sb, "%s{%s} %d\n", ctr.name, ctr.labels, ctr.Value())
			} else {
				fmt.Fprintf(&sb, "%s %d\n", ctr.name, ctr.Value())
			}
			return true
		})

		helpWritten = make(map[string]bool)
		c.gauges.Range(func(key, value any) bool {
			g := value.(*Gauge)
			if !helpWritten[g.name] {
				fmt.Fprintf(&sb, "# HELP %s %s\n", g.name, g.help)
				fmt.Fprintf(&sb, "# TYPE %s gauge\n", g.name)
				helpWritten[g.name] = true
			}
			if g.labels != "" {
				fmt.Fprintf(&sb, "%s{%s} %d\n", g.name, g.labels, g.Value())
			} else {
				fmt.Fprintf(&sb, "%s %d\n", g.name, g.Value())
			}
			return true
		})

		fmt.Fprint(w, sb.String())
	}
}

// --- Pre-defined metrics used across the pipeline ---

var (
	UpdatesText     = Collector.Counter("mediagate_updates_total", "Updates received by kind", `kind="text"`)
	UpdatesAudio    = Collector.Counter("mediagate_updates_total", "Updates received by kind", `kind="audio"`)
	UpdatesVoice    = Collector.Counter("mediagate_updates_total", "Updates received by kind", `kind="voice"`)
	UpdatesDocument = Collector.Counter("mediagate_updates_total", "Updates received by kind", `kind="document"`)
	UpdatesUnknown  = Collector.Counter("mediagate_updates_total", "Updates received by kind", `kind="unknown"`)

	RejectedType = Collector.Counter("mediagate_rejections_total", "Validation rejections by reason", `reason="type"`)
	RejectedSize = Collector.Counter("mediagate_rejections_total", "Validation rejections by reason", `reason="size"`)

	FilesStored        = Collector.Counter("mediagate_files_stored_total", "Files persisted under the upload root", "")
	DownloadFailures   = Collector.Counter("mediagate_download_failures_total", "Remote fetch or storage failures", "")
	ProcessingFailures = Collector.Counter("mediagate_processing_failures_total", "Content processor failures", "")
	DispatchPanics     = Collector.Counter("mediagate_dispatch_panics_total", "Panics contained by the dispatch guard", "")

	InflightWorkers = Collector.Gauge("mediagate_inflight_workers", "Updates currently being dispatched", "")
)

// UpdateCounter returns the update counter for a message kind string.
func UpdateCounter(kind string) *Counter {
	switch kind {
	case "text":
		return UpdatesText
	case "audio":
		return UpdatesAudio
	case "voice":
		return UpdatesVoice
	case "document":
		return UpdatesDocument
	default:
		return UpdatesUnknown
	}
}
