package calculator

import (
	"math"

	"SectorSentinel/internal/model"
)

// ZScoreOptions holds the policy knobs of RollingZScore.
type ZScoreOptions struct {
	// Clamp bounds every emitted value to [-Clamp, Clamp].
	Clamp float64
	// MinSamples is the smallest trailing window that produces a point.
	MinSamples int
	// MinStd suppresses points whose window deviation is at or below it.
	MinStd float64
}

// DefaultZScoreOptions matches the dashboard defaults.
func DefaultZScoreOptions() ZScoreOptions {
	return ZScoreOptions{Clamp: 4, MinSamples: 20, MinStd: 0.5}
}

// RollingZScore normalizes each relative return against the window of up to
// window values strictly before it. Output starts at min(window, 30% of the
// input) so shorter histories still yield a series. Windows that are too
// short or too flat are skipped rather than reported.
func RollingZScore(rel []model.RelativeReturnPoint, window int, opts ZScoreOptions) []model.ZScorePoint {
	if window <= 0 {
		return nil
	}
	start := min(window, int(math.Floor(0.3*float64(len(rel)))))

	var out []model.ZScorePoint
	for i := start; i < len(rel); i++ {
		lo := max(0, i-window)
		w := rel[lo:i]
		if len(w) < opts.MinSamples || len(w) == 0 {
			continue
		}
		mean, std := meanStd(w)
		if std <= opts.MinStd {
			continue
		}
		out = append(out, model.ZScorePoint{
			Date:           rel[i].Date,
			Value:          clamp((rel[i].Value-mean)/std, opts.Clamp),
			RelativeReturn: rel[i].Value,
		})
	}
	return out
}

// meanStd returns the population mean and standard deviation.
func meanStd(w []model.RelativeReturnPoint) (mean, std float64) {
	n := float64(len(w))
	for _, p := range w {
		mean += p.Value
	}
	mean /= n
	var ss float64
	for _, p := range w {
		d := p.Value - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / n)
}

func clamp(v, bound float64) float64 {
	if bound <= 0 {
		return v
	}
	return math.Max(-bound, math.Min(bound, v))
}
