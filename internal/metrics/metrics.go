package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors of the fetch layer. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	CacheLookups     *prometheus.CounterVec
	FetchAttempts    *prometheus.CounterVec
	RaceWins         *prometheus.CounterVec
	AllSourcesFailed prometheus.Counter
	RefreshDuration  prometheus.Histogram
	SectorResults    *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_cache_lookups_total",
			Help: "Cache lookups by source and result.",
		}, []string{"source", "result"}),
		FetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_fetch_attempts_total",
			Help: "Upstream fetch attempts by source and outcome.",
		}, []string{"source", "outcome"}),
		RaceWins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_race_wins_total",
			Help: "Raced fetches won per route.",
		}, []string{"source", "route"}),
		AllSourcesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_all_sources_failed_total",
			Help: "Tickers for which every source failed.",
		}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sentinel_refresh_duration_seconds",
			Help:    "Wall time of batch refreshes.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8),
		}),
		SectorResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_sector_results_total",
			Help: "Per-sector refresh results.",
		}, []string{"status"}),
	}
	if reg != nil {
		reg.MustRegister(m.CacheLookups, m.FetchAttempts, m.RaceWins,
			m.AllSourcesFailed, m.RefreshDuration, m.SectorResults)
	}
	return m
}

func (m *Metrics) CacheLookup(source string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(source, result).Inc()
}

func (m *Metrics) Attempt(source, outcome string) {
	if m == nil {
		return
	}
	m.FetchAttempts.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) RaceWon(source, route string) {
	if m == nil {
		return
	}
	m.RaceWins.WithLabelValues(source, route).Inc()
}

func (m *Metrics) SourcesExhausted() {
	if m == nil {
		return
	}
	m.AllSourcesFailed.Inc()
}

func (m *Metrics) Refreshed(d time.Duration, ok, failed int) {
	if m == nil {
		return
	}
	m.RefreshDuration.Observe(d.Seconds())
	m.SectorResults.WithLabelValues("ok").Add(float64(ok))
	m.SectorResults.WithLabelValues("failed").Add(float64(failed))
}
