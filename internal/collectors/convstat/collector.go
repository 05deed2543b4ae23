package convstat

import (
	"fmt"

	"convtrace_stats/internal/logger"
	"convtrace_stats/internal/tracestats"

	"github.com/phuslu/log"
	"github.com/prometheus/client_golang/prometheus"
)

// ConvCollector implements prometheus.Collector over a finished Report.
// The Report is immutable once aggregated, so Collect only emits constant metrics.
type ConvCollector struct {
	report tracestats.Report
	log    log.Logger

	conversionsDesc  *prometheus.Desc
	pagesDesc        *prometheus.Desc
	linesDesc        *prometheus.Desc
	invalidSizesDesc *prometheus.Desc
}

// NewConvCollector creates a collector exposing the counters of report.
func NewConvCollector(report tracestats.Report) *ConvCollector {
	c := &ConvCollector{
		report: report,
		log:    logger.NewLoggerWithContext("convstat_collector"),
	}

	c.conversionsDesc = prometheus.NewDesc(
		"convtrace_page_conversions_total",
		"Total guest page conversions by direction.",
		[]string{"direction"}, nil)

	c.pagesDesc = prometheus.NewDesc(
		"convtrace_pages_total",
		"Total converted pages by page size.",
		[]string{"page_size"}, nil)

	c.linesDesc = prometheus.NewDesc(
		"convtrace_lines_total",
		"Total trace lines read.",
		nil, nil)

	c.invalidSizesDesc = prometheus.NewDesc(
		"convtrace_invalid_sizes_total",
		"Total size values skipped because they were not valid hexadecimal.",
		nil, nil)

	return c
}

// Describe implements prometheus.Collector.
func (c *ConvCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.conversionsDesc
	ch <- c.pagesDesc
	ch <- c.linesDesc
	ch <- c.invalidSizesDesc
}

// Collect implements prometheus.Collector.
func (c *ConvCollector) Collect(ch chan<- prometheus.Metric) {
	r := c.report

	// private_to_shared events count shared pages and vice versa.
	ch <- prometheus.MustNewConstMetric(c.conversionsDesc, prometheus.CounterValue,
		float64(r.SharedPages), tracestats.PrivateToShared)
	ch <- prometheus.MustNewConstMetric(c.conversionsDesc, prometheus.CounterValue,
		float64(r.PrivatePages), tracestats.SharedToPrivate)

	ch <- prometheus.MustNewConstMetric(c.pagesDesc, prometheus.CounterValue,
		float64(r.Pages4K), "4k")
	ch <- prometheus.MustNewConstMetric(c.pagesDesc, prometheus.CounterValue,
		float64(r.Pages2M), "2m")

	ch <- prometheus.MustNewConstMetric(c.linesDesc, prometheus.CounterValue, float64(r.Lines))
	ch <- prometheus.MustNewConstMetric(c.invalidSizesDesc, prometheus.CounterValue, float64(r.SkippedSizes))

	c.log.Debug().Msg("Collected conversion metrics")
}

// NewRegistry returns a registry holding only the collector for report.
func NewRegistry(report tracestats.Report) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(NewConvCollector(report)); err != nil {
		return nil, fmt.Errorf("failed to register conversion collector: %w", err)
	}
	return reg, nil
}

// WriteTextfile writes the metrics of report to path in the Prometheus text
// format, suitable for the node_exporter textfile collector. The file is
// replaced atomically.
func WriteTextfile(path string, report tracestats.Report) error {
	reg, err := NewRegistry(report)
	if err != nil {
		return err
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("failed to write metrics file %s: %w", path, err)
	}
	return nil
}
