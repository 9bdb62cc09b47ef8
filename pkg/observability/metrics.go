// Package observability wires logging and Prometheus metrics for the postal
// code service.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "postal_codes"

// Metrics holds the Prometheus collectors for the data pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Loads         *prometheus.CounterVec   // labels: country, result={hit,loaded,error}
	Refreshes     *prometheus.CounterVec   // labels: country, outcome={success,error}
	ParsedRows    *prometheus.CounterVec   // labels: country, result={valid,failed}
	FetchDuration *prometheus.HistogramVec // labels: country
	Records       *prometheus.GaugeVec     // labels: country
}

func newMetrics(help bool) *Metrics {
	h := func(s string) string {
		if help {
			return s
		}
		return ""
	}
	return &Metrics{
		Loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_total",
			Help:      h("Country data load calls by result."),
		}, []string{"country", "result"}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      h("Archive download and extraction attempts by outcome."),
		}, []string{"country", "outcome"}),
		ParsedRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parsed_rows_total",
			Help:      h("Rows read from local country files by result."),
		}, []string{"country", "result"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      h("Archive download duration in seconds."),
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"country"}),
		Records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_records",
			Help:      h("Records in the cached snapshot per country."),
		}, []string{"country"}),
	}
}

// NewMetrics creates the metrics and registers them with the default registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(m.Loads, m.Refreshes, m.ParsedRows, m.FetchDuration, m.Records)
	return m
}

// NewMetricsForTesting creates unregistered metrics, avoiding "already
// registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

// ObserveLoad counts one Load call.
func (m *Metrics) ObserveLoad(country, result string) {
	if m == nil {
		return
	}
	m.Loads.WithLabelValues(country, result).Inc()
}

// ObserveRefresh counts one refresh attempt.
func (m *Metrics) ObserveRefresh(country string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.Refreshes.WithLabelValues(country, outcome).Inc()
}

// ObserveFetch records a download duration.
func (m *Metrics) ObserveFetch(country string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.WithLabelValues(country).Observe(d.Seconds())
}

// ObserveParse adds a parse pass's row counts.
func (m *Metrics) ObserveParse(country string, valid, failed int) {
	if m == nil {
		return
	}
	m.ParsedRows.WithLabelValues(country, "valid").Add(float64(valid))
	m.ParsedRows.WithLabelValues(country, "failed").Add(float64(failed))
}

// SetRecords sets the published snapshot size.
func (m *Metrics) SetRecords(country string, n int) {
	if m == nil {
		return
	}
	m.Records.WithLabelValues(country).Set(float64(n))
}
