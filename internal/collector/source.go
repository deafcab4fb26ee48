package collector

import (
	"context"
	"slices"

	"SectorSentinel/internal/model"
)

// Source fetches one ticker's weekly closes from a single upstream.
// Implementations do not cache, retry or fall back.
type Source interface {
	Name() string
	Fetch(ctx context.Context, route Route, ticker string, lookbackYears int) ([]model.PricePoint, error)
}

// DefaultMinPoints is the shortest series a source will return.
const DefaultMinPoints = 60

// normalize sorts points by date and keeps the last close seen per day.
func normalize(points []model.PricePoint) []model.PricePoint {
	slices.SortStableFunc(points, func(a, b model.PricePoint) int { return a.Date.Compare(b.Date) })
	out := points[:0]
	for _, p := range points {
		if n := len(out); n > 0 && out[n-1].Date.Equal(p.Date) {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	return out
}

func checkLength(source, ticker string, points []model.PricePoint, minPoints int) error {
	if len(points) < minPoints {
		return &InsufficientDataError{Source: source, Ticker: ticker, Got: len(points), Min: minPoints}
	}
	return nil
}
