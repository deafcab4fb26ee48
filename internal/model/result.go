package model

import "time"

// SectorResult is the outcome of one sector in a refresh. A failed sector
// carries Err and no points.
type SectorResult struct {
	Sector Sector
	Points []ZScorePoint
	Err    error
}

// Failed reports whether the sector produced no usable series.
func (r SectorResult) Failed() bool {
	return r.Err != nil || len(r.Points) == 0
}

// Current returns the latest Z-score reading.
func (r SectorResult) Current() (float64, bool) {
	if len(r.Points) == 0 {
		return 0, false
	}
	return r.Points[len(r.Points)-1].Value, true
}

// SignalParams are the window lengths a snapshot was computed with.
type SignalParams struct {
	ReturnLagWeeks int
	ZWindowWeeks   int
	Clamp          float64
}

// Snapshot is the result of one batch refresh.
type Snapshot struct {
	Benchmark      string
	BenchmarkWeeks int
	Params         SignalParams
	StartedAt      time.Time
	FinishedAt     time.Time
	Results        map[string]SectorResult
}
