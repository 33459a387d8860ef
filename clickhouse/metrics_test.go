package clickhouse

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	m.observe("query", nil, 10*time.Millisecond)
	m.observe("query", errors.New("boom"), time.Millisecond)
	m.observe("insert", nil, time.Millisecond)
	m.addImportedRows(1000)
	m.addImportedRows(5)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.requests.WithLabelValues("query", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requests.WithLabelValues("query", "failure")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requests.WithLabelValues("insert", "success")))
	assert.Equal(t, float64(1005), testutil.ToFloat64(m.rowsImported))
	assert.Equal(t, 2, testutil.CollectAndCount(m.latency))

	_, err = NewMetrics(reg)
	assert.Error(t, err)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observe("query", nil, time.Second)
		m.addImportedRows(1)
	})
}
