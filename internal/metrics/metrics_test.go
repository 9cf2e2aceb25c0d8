package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New()
	m.Upload("done")
	m.Upload("done")
	m.Compensation("ok")
	m.Orphaned()
	m.ObserveRequest("GET", "/api/v1/images", 200, 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.uploads.WithLabelValues("done")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.compensations.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.orphaned))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/v1/images", "200")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Upload("done")
		m.Compensation("failed")
		m.Orphaned()
		m.ObserveRequest("GET", "/", 200, time.Millisecond)
	})
}
