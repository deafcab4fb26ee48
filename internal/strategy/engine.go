package strategy

import (
	"cmp"
	"slices"

	"SectorSentinel/internal/model"
)

// Signal is the label attached to a sector's current Z-score.
type Signal string

const (
	CyclicalLow Signal = "CYCLICAL LOW"
	Cheap       Signal = "CHEAP"
	Neutral     Signal = "NEUTRAL"
	Extended    Signal = "EXTENDED"
)

// Tiers maps Z-score thresholds to signals, checked in order. Bounds are
// strict: a reading of exactly -2 is CHEAP, not CYCLICAL LOW.
var Tiers = []struct {
	Matches func(z float64) bool
	Signal  Signal
}{
	{func(z float64) bool { return z < -2 }, CyclicalLow},
	{func(z float64) bool { return z < -1 }, Cheap},
	{func(z float64) bool { return z > 2 }, Extended},
}

// Classify maps a Z-score to its signal.
func Classify(z float64) Signal {
	for _, t := range Tiers {
		if t.Matches(z) {
			return t.Signal
		}
	}
	return Neutral
}

// Reading is one sector's current state for display.
type Reading struct {
	Sector  model.Sector
	Value   float64
	HasData bool
	Signal  Signal
	Err     error
}

// Readings builds the current reading per active sector, cheapest first.
// Sectors without data sort last, keeping their selection order.
func Readings(active []model.Sector, snap *model.Snapshot) []Reading {
	out := make([]Reading, 0, len(active))
	for _, s := range active {
		r := Reading{Sector: s}
		if snap != nil {
			if res, ok := snap.Results[s.Ticker]; ok {
				r.Err = res.Err
				r.Value, r.HasData = res.Current()
			}
		}
		if r.HasData {
			r.Signal = Classify(r.Value)
		}
		out = append(out, r)
	}
	SortReadings(out)
	return out
}

// SortReadings orders readings ascending by value, no-data entries last.
func SortReadings(rs []Reading) {
	slices.SortStableFunc(rs, func(a, b Reading) int {
		switch {
		case a.HasData && b.HasData:
			return cmp.Compare(a.Value, b.Value)
		case a.HasData:
			return -1
		case b.HasData:
			return 1
		}
		return 0
	})
}
