package model

import "time"

// PricePoint is a single weekly close. Date is a UTC calendar day.
type PricePoint struct {
	Date  time.Time
	Close float64
}

// ReturnPoint is a trailing percentage change ending at Date.
type ReturnPoint struct {
	Date  time.Time
	Value float64
}

// RelativeReturnPoint is a sector return minus the aligned benchmark return.
type RelativeReturnPoint struct {
	Date  time.Time
	Value float64
}

// ZScorePoint is a normalized relative return, clamped to the configured bound.
type ZScorePoint struct {
	Date           time.Time
	Value          float64
	RelativeReturn float64
}

// CacheEntry is a timestamped price series held by the cache store.
type CacheEntry struct {
	Key       string
	Timestamp time.Time
	Data      []PricePoint
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayKey returns a comparable yyyymmdd key for the UTC calendar day of t.
func DayKey(t time.Time) int {
	y, m, d := t.UTC().Date()
	return y*10000 + int(m)*100 + d
}
