// Package metrics collects Prometheus counters for one mirror run and can
// dump them in the textfile collector format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sdejongh/drivesync/pkg/models"
)

// File outcomes
const (
	OutcomeTransferred = "transferred"
	OutcomeSkipped     = "skipped"
	OutcomeExcluded    = "excluded"
	OutcomeUnsupported = "unsupported"
	OutcomeErrored     = "errored"
)

// Collector holds the metrics of a single run. A nil Collector is valid
// and records nothing.
type Collector struct {
	registry *prometheus.Registry

	containersVisited prometheus.Counter
	listPages         prometheus.Counter
	files             *prometheus.CounterVec
	bytesTransferred  prometheus.Counter
	transferDuration  prometheus.Histogram
	runDuration       prometheus.Gauge
	runStatus         *prometheus.GaugeVec
	lastRun           prometheus.Gauge
}

// NewCollector registers the run metrics on a fresh registry
func NewCollector(remote string) *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	labels := prometheus.Labels{"remote": remote}

	return &Collector{
		registry: reg,
		containersVisited: factory.NewCounter(prometheus.CounterOpts{
			Name:        "drivesync_containers_visited_total",
			Help:        "Remote folders listed during the run",
			ConstLabels: labels,
		}),
		listPages: factory.NewCounter(prometheus.CounterOpts{
			Name:        "drivesync_list_pages_total",
			Help:        "Listing pages requested from the remote",
			ConstLabels: labels,
		}),
		files: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "drivesync_files_total",
			Help:        "Remote files by outcome",
			ConstLabels: labels,
		}, []string{"outcome"}),
		bytesTransferred: factory.NewCounter(prometheus.CounterOpts{
			Name:        "drivesync_bytes_transferred_total",
			Help:        "Bytes written to the local mirror",
			ConstLabels: labels,
		}),
		transferDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:        "drivesync_transfer_duration_seconds",
			Help:        "Time spent downloading a single file",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.05, 4, 8),
		}),
		runDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "drivesync_run_duration_seconds",
			Help:        "Wall time of the last run",
			ConstLabels: labels,
		}),
		runStatus: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "drivesync_run_status",
			Help:        "1 for the status the last run ended with",
			ConstLabels: labels,
		}, []string{"status"}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "drivesync_last_run_timestamp_seconds",
			Help:        "Unix time the last run finished",
			ConstLabels: labels,
		}),
	}
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// ContainerVisited counts one listed folder
func (c *Collector) ContainerVisited() {
	if c != nil {
		c.containersVisited.Inc()
	}
}

// ListPages counts listing pages
func (c *Collector) ListPages(n int) {
	if c != nil && n > 0 {
		c.listPages.Add(float64(n))
	}
}

// File counts one file outcome
func (c *Collector) File(outcome string) {
	if c != nil {
		c.files.WithLabelValues(outcome).Inc()
	}
}

// Transferred records a completed download
func (c *Collector) Transferred(bytes int64, d time.Duration) {
	if c == nil {
		return
	}
	c.bytesTransferred.Add(float64(bytes))
	c.transferDuration.Observe(d.Seconds())
}

// Finish records the run result
func (c *Collector) Finish(summary *models.RunSummary) {
	if c == nil || summary == nil {
		return
	}
	c.runDuration.Set(summary.Duration.Seconds())
	for _, s := range []models.RunStatus{models.StatusSuccess, models.StatusPartial, models.StatusFailed} {
		v := 0.0
		if s == summary.Status {
			v = 1
		}
		c.runStatus.WithLabelValues(string(s)).Set(v)
	}
	c.lastRun.Set(float64(summary.EndTime.Unix()))
}

// WriteTextfile writes the metrics in Prometheus text format
func (c *Collector) WriteTextfile(path string) error {
	if c == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
