package calculator

import (
	"math"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SectorSentinel/internal/model"
)

var seriesStart = time.Date(2015, 1, 5, 0, 0, 0, 0, time.UTC)

func weekly(n int, closeAt func(i int) float64) []model.PricePoint {
	out := make([]model.PricePoint, n)
	for i := range out {
		out[i] = model.PricePoint{Date: seriesStart.AddDate(0, 0, 7*i), Close: closeAt(i)}
	}
	return out
}

func relSeries(values []float64) []model.RelativeReturnPoint {
	out := make([]model.RelativeReturnPoint, len(values))
	for i, v := range values {
		out[i] = model.RelativeReturnPoint{Date: seriesStart.AddDate(0, 0, 7*i), Value: v}
	}
	return out
}

func TestRollingReturn_LengthAndDates(t *testing.T) {
	prices := weekly(80, func(i int) float64 { return 100 + float64(i) })
	got := slices.Collect(RollingReturn(prices, 52))

	require.Len(t, got, len(prices)-52)
	for i, r := range got {
		assert.Equal(t, prices[i+52].Date, r.Date)
		want := (prices[i+52].Close/prices[i].Close - 1) * 100
		assert.InDelta(t, want, r.Value, 1e-12)
	}
}

func TestRollingReturn_SkipsMissingCloses(t *testing.T) {
	prices := weekly(10, func(i int) float64 { return 50 })
	prices[3].Close = 0
	got := slices.Collect(RollingReturn(prices, 2))

	// index 3 as current and index 5 (whose base is 3) both drop out.
	assert.Len(t, got, 10-2-2)
	for _, r := range got {
		assert.NotEqual(t, prices[3].Date, r.Date)
		assert.NotEqual(t, prices[5].Date, r.Date)
	}
}

func TestRollingReturn_Restartable(t *testing.T) {
	prices := weekly(30, func(i int) float64 { return 10 * math.Pow(1.01, float64(i)) })
	seq := RollingReturn(prices, 4)
	assert.Equal(t, slices.Collect(seq), slices.Collect(seq))
	assert.Empty(t, slices.Collect(RollingReturn(prices, 40)))
	assert.Empty(t, slices.Collect(RollingReturn(prices, 0)))
}

func TestRelativeReturn_ExactMatchSubtracts(t *testing.T) {
	d := seriesStart
	sector := slices.Values([]model.ReturnPoint{{Date: d, Value: 12.5}, {Date: d.AddDate(0, 0, 7), Value: -3}})
	bench := slices.Values([]model.ReturnPoint{{Date: d, Value: 2.5}, {Date: d.AddDate(0, 0, 7), Value: 1}})

	got := RelativeReturn(sector, bench)
	require.Len(t, got, 2)
	assert.Equal(t, 10.0, got[0].Value)
	assert.Equal(t, -4.0, got[1].Value)
	assert.Equal(t, d, got[0].Date)
}

func TestRelativeReturn_LooksBackUpToSevenDays(t *testing.T) {
	monday := seriesStart
	bench := slices.Values([]model.ReturnPoint{{Date: monday, Value: 1}})

	tests := []struct {
		name   string
		offset int
		keep   bool
	}{
		{"friday aligns to monday", 4, true},
		{"exactly a week", 7, true},
		{"eight days is too far", 8, false},
		{"benchmark in the future", -1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sector := slices.Values([]model.ReturnPoint{{Date: monday.AddDate(0, 0, tt.offset), Value: 5}})
			got := RelativeReturn(sector, bench)
			if !tt.keep {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.Equal(t, 4.0, got[0].Value)
		})
	}
}

func TestRelativeReturn_PrefersNearestPriorDay(t *testing.T) {
	d := seriesStart
	bench := slices.Values([]model.ReturnPoint{
		{Date: d, Value: 1},
		{Date: d.AddDate(0, 0, 3), Value: 2},
	})
	sector := slices.Values([]model.ReturnPoint{{Date: d.AddDate(0, 0, 5), Value: 10}})

	got := RelativeReturn(sector, bench)
	require.Len(t, got, 1)
	assert.Equal(t, 8.0, got[0].Value)
}

func TestRollingZScore_NeverExceedsClamp(t *testing.T) {
	values := make([]float64, 300)
	for i := range values {
		values[i] = 10 * math.Sin(float64(i)*1.7)
	}
	values[150] = 500
	values[250] = -500
	for _, bound := range []float64{4, 6} {
		opts := DefaultZScoreOptions()
		opts.Clamp = bound
		got := RollingZScore(relSeries(values), 52, opts)
		require.NotEmpty(t, got)
		hitBound := false
		for _, z := range got {
			assert.LessOrEqual(t, math.Abs(z.Value), bound)
			if math.Abs(z.Value) == bound {
				hitBound = true
			}
		}
		assert.True(t, hitBound, "outliers should saturate at ±%v", bound)
	}
}

func TestRollingZScore_LowVarianceSuppressed(t *testing.T) {
	flat := make([]float64, 60)
	assert.Empty(t, RollingZScore(relSeries(flat), 20, DefaultZScoreOptions()))

	// Alternating ±0.5 gives a population std of exactly 0.5, which is not
	// strictly above the threshold.
	alt := make([]float64, 60)
	for i := range alt {
		alt[i] = 0.5
		if i%2 == 1 {
			alt[i] = -0.5
		}
	}
	assert.Empty(t, RollingZScore(relSeries(alt), 20, DefaultZScoreOptions()))
}

func TestRollingZScore_StartAndWindow(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i%7) * 3
	}
	rel := relSeries(values)

	got := RollingZScore(rel, 156, DefaultZScoreOptions())
	require.NotEmpty(t, got)
	// floor(0.3*100) = 30 is below the window, so output starts at index 30.
	assert.Equal(t, rel[30].Date, got[0].Date)
	assert.Len(t, got, 70)

	// Trailing window excludes the current point.
	w := rel[0:30]
	mean, std := meanStd(w)
	assert.InDelta(t, (rel[30].Value-mean)/std, got[0].Value, 1e-12)
	assert.Equal(t, rel[30].Value, got[0].RelativeReturn)
}

func TestRollingZScore_RequiresMinSamples(t *testing.T) {
	values := make([]float64, 25)
	for i := range values {
		values[i] = float64(i % 5)
	}
	// Window of 10 can never reach 20 samples.
	assert.Empty(t, RollingZScore(relSeries(values), 10, DefaultZScoreOptions()))
}

func TestResampleMonthly(t *testing.T) {
	var points []model.ZScorePoint
	for i := 0; i < 60; i++ {
		points = append(points, model.ZScorePoint{Date: seriesStart.AddDate(0, 0, 7*i), Value: float64(i)})
	}
	got := ResampleMonthly(points)

	seen := map[string]bool{}
	for i, p := range got {
		key := p.Date.Format("2006-01")
		assert.False(t, seen[key], "duplicate month %s", key)
		seen[key] = true
		if i > 0 {
			assert.True(t, got[i-1].Date.Before(p.Date))
		}
	}
	// January 2015 has Mondays 5, 12, 19, 26; the last one wins.
	assert.Equal(t, 3.0, got[0].Value)
	assert.Equal(t, got, ResampleMonthly(got))
	assert.Empty(t, ResampleMonthly(nil))
}

func TestResampleMonthly_LaterInputOverwrites(t *testing.T) {
	d := time.Date(2020, 3, 20, 0, 0, 0, 0, time.UTC)
	points := []model.ZScorePoint{
		{Date: d, Value: 1},
		{Date: d.AddDate(0, 0, -10), Value: 2},
	}
	got := ResampleMonthly(points)
	require.Len(t, got, 1)
	assert.Equal(t, 2.0, got[0].Value)
}

func TestSectorSignal_IdenticalSeriesIsEmpty(t *testing.T) {
	prices := weekly(520, func(i int) float64 { return 100 * math.Pow(1.001, float64(i)) })
	sector := slices.Clone(prices)

	p := Params{ReturnLagWeeks: 52, ZWindowWeeks: 156, ZScore: DefaultZScoreOptions()}
	assert.Empty(t, WeeklySignal(sector, prices, p))
	assert.Empty(t, SectorSignal(sector, prices, p))
}

func TestSectorSignal_SingleOutperformanceSpike(t *testing.T) {
	const n = 156
	dates := weekly(n, func(int) float64 { return 1 })
	spike := -1
	for j := 104; j < n-1; j++ {
		if dates[j].Date.Month() != dates[j+1].Date.Month() {
			spike = j
			break
		}
	}
	require.NotEqual(t, -1, spike)

	pattern := []float64{0, 1, -1}
	bench := weekly(n, func(int) float64 { return 100 })
	sector := weekly(n, func(i int) float64 {
		c := 100 * (1 + 0.05*pattern[i%3])
		if i == spike {
			c *= 1.5
		}
		return c
	})

	p := Params{ReturnLagWeeks: 52, ZWindowWeeks: 156, ZScore: DefaultZScoreOptions()}
	weeklyZ := WeeklySignal(sector, bench, p)
	require.NotEmpty(t, weeklyZ)

	var spikes []model.ZScorePoint
	for _, z := range weeklyZ {
		if math.Abs(z.Value) >= 2 {
			spikes = append(spikes, z)
		}
	}
	require.Len(t, spikes, 1)
	assert.Equal(t, sector[spike].Date, spikes[0].Date)
	assert.Equal(t, 4.0, spikes[0].Value)

	monthly := SectorSignal(sector, bench, p)
	var monthlySpikes int
	for _, z := range monthly {
		if math.Abs(z.Value) >= 2 {
			monthlySpikes++
			assert.Equal(t, sector[spike].Date, z.Date)
		}
	}
	assert.Equal(t, 1, monthlySpikes)
}

func TestWeeksFromYears(t *testing.T) {
	assert.Equal(t, 52, WeeksFromYears(1))
	assert.Equal(t, 156, WeeksFromYears(3))
	assert.Equal(t, 26, WeeksFromYears(0.5))
}
