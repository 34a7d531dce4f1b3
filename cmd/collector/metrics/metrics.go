// Package metrics provides Prometheus instrumentation for the collector.
//
// Metrics exposed:
//   - velostat_api_request_duration_seconds: Histogram of API call latency by endpoint
//   - velostat_api_errors_total: Counter of API failures by endpoint and kind
//   - velostat_stations_fetched: Gauge of stations returned by the last fetch
//   - velostat_stations_skipped_total: Counter of stations that could not be mapped
//   - velostat_points_written_total: Counter of points accepted by the store
//   - velostat_store_write_duration_seconds: Histogram of store write latency
//   - velostat_store_write_errors_total: Counter of failed store writes
//   - velostat_last_success_timestamp_seconds: Unix time of the last successful tick
//
// In loop mode they are served on /metrics; single runs can push them to a
// Pushgateway.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// PushJob is the Pushgateway job name.
const PushJob = "velostat_collector"

type Metrics struct {
	APIRequestDuration   *prometheus.HistogramVec
	APIErrorsTotal       *prometheus.CounterVec
	StationsFetched      prometheus.Gauge
	StationsSkippedTotal prometheus.Counter
	PointsWrittenTotal   prometheus.Counter
	StoreWriteDuration   prometheus.Histogram
	StoreWriteErrors     prometheus.Counter
	LastSuccess          prometheus.Gauge
}

// New registers the collector metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		APIRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "velostat_api_request_duration_seconds",
			Help:    "Duration of JCDecaux API calls by endpoint",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		APIErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "velostat_api_errors_total",
			Help: "Total number of failed JCDecaux API calls by endpoint and kind",
		}, []string{"endpoint", "kind"}),

		StationsFetched: f.NewGauge(prometheus.GaugeOpts{
			Name: "velostat_stations_fetched",
			Help: "Number of stations returned by the last fetch",
		}),

		StationsSkippedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "velostat_stations_skipped_total",
			Help: "Total number of stations skipped because required fields were missing",
		}),

		PointsWrittenTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "velostat_points_written_total",
			Help: "Total number of points written to the store",
		}),

		StoreWriteDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "velostat_store_write_duration_seconds",
			Help:    "Duration of batch writes to the store",
			Buckets: prometheus.DefBuckets,
		}),

		StoreWriteErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "velostat_store_write_errors_total",
			Help: "Total number of failed batch writes",
		}),

		LastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Name: "velostat_last_success_timestamp_seconds",
			Help: "Unix time of the last successful collection",
		}),
	}
}

func (m *Metrics) ObserveAPIRequest(endpoint string, d time.Duration) {
	m.APIRequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

func (m *Metrics) RecordAPIError(endpoint, kind string) {
	m.APIErrorsTotal.WithLabelValues(endpoint, kind).Inc()
}

func (m *Metrics) SetStationsFetched(n int) {
	m.StationsFetched.Set(float64(n))
}

func (m *Metrics) AddStationsSkipped(n int) {
	m.StationsSkippedTotal.Add(float64(n))
}

func (m *Metrics) ObserveWrite(d time.Duration, points int, err error) {
	m.StoreWriteDuration.Observe(d.Seconds())
	if err != nil {
		m.StoreWriteErrors.Inc()
		return
	}
	m.PointsWrittenTotal.Add(float64(points))
}

func (m *Metrics) MarkSuccess(t time.Time) {
	m.LastSuccess.Set(float64(t.Unix()))
}

// Push sends everything gathered by g to the Pushgateway at url, replacing
// the job's previous group.
func Push(url string, g prometheus.Gatherer) error {
	return push.New(url, PushJob).Gatherer(g).Push()
}
