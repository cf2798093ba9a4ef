// Package metrics holds the Prometheus collectors for loads and report builds.
//
// The tool is a batch CLI, so nothing is scraped; when a textfile path is
// configured the default registry is written there for the node exporter's
// textfile collector.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "salesmart_build_info",
			Help: "Build information of pgedge-salesmart",
		},
		[]string{"version", "commit", "date"},
	)

	LoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesmart_loads_total",
			Help: "Total number of table load attempts by outcome",
		},
		[]string{"table", "status"},
	)

	LoadRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "salesmart_load_rows",
			Help: "Row count of a table after its last successful load",
		},
		[]string{"table"},
	)

	LoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "salesmart_load_duration_seconds",
			Help:    "Duration of table loads in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"table"},
	)

	ReportBuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesmart_report_builds_total",
			Help: "Total number of report builds by outcome",
		},
		[]string{"report", "status"},
	)

	ReportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "salesmart_report_duration_seconds",
			Help:    "Duration of report builds in seconds, snapshot included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"report"},
	)
)

// WriteTextfile writes the default registry to path. An empty path is a no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
