package calculator

import (
	"iter"

	"SectorSentinel/internal/model"
)

// maxAlignDays is how far back RelativeReturn searches for a benchmark date.
const maxAlignDays = 7

// RollingReturn yields the trailing percentage change over lag points for
// every index i >= lag whose two closes are both positive. The sequence can
// be ranged over any number of times.
func RollingReturn(series []model.PricePoint, lag int) iter.Seq[model.ReturnPoint] {
	return func(yield func(model.ReturnPoint) bool) {
		if lag <= 0 {
			return
		}
		for i := lag; i < len(series); i++ {
			prev := series[i-lag].Close
			cur := series[i].Close
			if prev <= 0 || cur <= 0 {
				continue
			}
			if !yield(model.ReturnPoint{Date: series[i].Date, Value: (cur/prev - 1) * 100}) {
				return
			}
		}
	}
}

// RelativeReturn subtracts the benchmark return on the same calendar day from
// each sector return. When the day is missing from the benchmark it looks up
// to a week back; points with no benchmark value in that range are dropped.
func RelativeReturn(sector, bench iter.Seq[model.ReturnPoint]) []model.RelativeReturnPoint {
	benchByDay := make(map[int]float64)
	for r := range bench {
		benchByDay[model.DayKey(r.Date)] = r.Value
	}

	var out []model.RelativeReturnPoint
	for r := range sector {
		bv, ok := benchByDay[model.DayKey(r.Date)]
		for offset := 1; !ok && offset <= maxAlignDays; offset++ {
			bv, ok = benchByDay[model.DayKey(r.Date.AddDate(0, 0, -offset))]
		}
		if !ok {
			continue
		}
		out = append(out, model.RelativeReturnPoint{Date: r.Date, Value: r.Value - bv})
	}
	return out
}
