package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.CacheLookup("yahoo", true)
	m.CacheLookup("yahoo", false)
	m.CacheLookup("yahoo", false)
	m.Attempt("stooq", "transient")
	m.RaceWon("yahoo", "direct")
	m.SourcesExhausted()
	m.Refreshed(2*time.Second, 3, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("yahoo", "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("yahoo", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchAttempts.WithLabelValues("stooq", "transient")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RaceWins.WithLabelValues("yahoo", "direct")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AllSourcesFailed))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SectorResults.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SectorResults.WithLabelValues("failed")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RefreshDuration))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CacheLookup("yahoo", true)
		m.Attempt("yahoo", "ok")
		m.RaceWon("yahoo", "direct")
		m.SourcesExhausted()
		m.Refreshed(time.Second, 1, 0)
	})
}
