package recorder

import (
	"context"
	"time"

	"SectorSentinel/internal/model"
)

// Reading is one sector's latest Z-score as of a refresh.
type Reading struct {
	RecordedAt time.Time
	Benchmark  string
	Ticker     string
	Date       time.Time // date of the last monthly point
	ZScore     float64
	Signal     string
	Failed     bool
	Error      string
}

// Recorder persists refresh history for later analysis.
type Recorder interface {
	RecordSnapshot(ctx context.Context, snap *model.Snapshot, classify func(float64) string) error
	History(ctx context.Context, ticker string, limit int) ([]Reading, error)
	Close() error
}

// ReadingsOf flattens a snapshot into one row per sector, ordered by ticker.
func ReadingsOf(snap *model.Snapshot, classify func(float64) string) []Reading {
	out := make([]Reading, 0, len(snap.Results))
	for ticker, res := range snap.Results {
		r := Reading{RecordedAt: snap.FinishedAt, Benchmark: snap.Benchmark, Ticker: ticker}
		if res.Err != nil {
			r.Error = res.Err.Error()
		}
		if v, ok := res.Current(); ok {
			r.ZScore = v
			r.Date = res.Points[len(res.Points)-1].Date
			if classify != nil {
				r.Signal = classify(v)
			}
		} else {
			r.Failed = true
		}
		out = append(out, r)
	}
	sortByTicker(out)
	return out
}
