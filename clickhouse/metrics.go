package clickhouse

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records request and import statistics in Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	rowsImported prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clickhouse_client",
			Name:      "requests_total",
			Help:      "Requests sent to ClickHouse by kind and status.",
		}, []string{"kind", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clickhouse_client",
			Name:      "request_duration_seconds",
			Help:      "Time until the response headers of a ClickHouse request arrived.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		rowsImported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clickhouse_client",
			Name:      "imported_rows_total",
			Help:      "Rows accepted by ClickHouse through bulk import.",
		}),
	}
	for _, c := range []prometheus.Collector{m.requests, m.latency, m.rowsImported} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(kind string, err error, d time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.requests.WithLabelValues(kind, status).Inc()
	m.latency.WithLabelValues(kind).Observe(d.Seconds())
}

func (m *Metrics) addImportedRows(n int) {
	if m == nil {
		return
	}
	m.rowsImported.Add(float64(n))
}
