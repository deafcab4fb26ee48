package calculator

import (
	"slices"

	"SectorSentinel/internal/model"
)

// ResampleMonthly keeps the last point seen for each calendar year-month and
// returns them in ascending date order.
func ResampleMonthly(points []model.ZScorePoint) []model.ZScorePoint {
	byMonth := make(map[int]model.ZScorePoint)
	for _, p := range points {
		y, m, _ := p.Date.UTC().Date()
		byMonth[y*100+int(m)] = p
	}

	out := make([]model.ZScorePoint, 0, len(byMonth))
	for _, p := range byMonth {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b model.ZScorePoint) int { return a.Date.Compare(b.Date) })
	return out
}
