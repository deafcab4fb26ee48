package calculator

import (
	"math"

	"SectorSentinel/internal/model"
)

// Params configures a sector signal computation.
type Params struct {
	ReturnLagWeeks int
	ZWindowWeeks   int
	ZScore         ZScoreOptions
}

// WeeksFromYears converts a horizon in years to whole weeks.
func WeeksFromYears(years float64) int {
	return int(math.Round(years * 52))
}

// WeeklySignal runs the pipeline up to the weekly Z-score series.
func WeeklySignal(sector, bench []model.PricePoint, p Params) []model.ZScorePoint {
	rel := RelativeReturn(
		RollingReturn(sector, p.ReturnLagWeeks),
		RollingReturn(bench, p.ReturnLagWeeks),
	)
	return RollingZScore(rel, p.ZWindowWeeks, p.ZScore)
}

// SectorSignal is the monthly Z-score series of sector relative to bench.
func SectorSignal(sector, bench []model.PricePoint, p Params) []model.ZScorePoint {
	return ResampleMonthly(WeeklySignal(sector, bench, p))
}
