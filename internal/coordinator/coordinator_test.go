package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SectorSentinel/internal/calculator"
	"SectorSentinel/internal/model"
)

type fakeFetcher struct {
	mu     sync.Mutex
	series map[string][]model.PricePoint
	errs   map[string]error
	calls  map[string]int
	hook   func(ticker string)
}

func (f *fakeFetcher) Fetch(_ context.Context, ticker string) ([]model.PricePoint, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[ticker]++
	hook := f.hook
	f.mu.Unlock()
	if hook != nil {
		hook(ticker)
	}
	if err := f.errs[ticker]; err != nil {
		return nil, err
	}
	return f.series[ticker], nil
}

func weekly(n int, closeAt func(i int) float64) []model.PricePoint {
	start := time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.PricePoint, n)
	for i := range out {
		out[i] = model.PricePoint{Date: start.AddDate(0, 0, 7*i), Close: closeAt(i)}
	}
	return out
}

func cyclic(i int) float64 {
	return 100 * (1 + 0.05*[]float64{0, 1, -1}[i%3])
}

func params() calculator.Params {
	return calculator.Params{ReturnLagWeeks: 52, ZWindowWeeks: 156, ZScore: calculator.DefaultZScoreOptions()}
}

func sectors(tickers ...string) []model.Sector {
	out := make([]model.Sector, len(tickers))
	for i, t := range tickers {
		out[i] = model.Sector{Ticker: t, Name: t}
	}
	return out
}

func TestRefresh_IsolatesSectorFailures(t *testing.T) {
	f := &fakeFetcher{
		series: map[string][]model.PricePoint{
			"SPY": weekly(156, func(int) float64 { return 100 }),
			"XLB": weekly(156, cyclic),
			"XLE": weekly(156, cyclic),
		},
		errs: map[string]error{"XLF": errors.New("all sources failed")},
	}
	c := New(f, params())

	snap, err := c.Refresh(context.Background(), "SPY", sectors("XLB", "XLF", "XLE"))
	require.NoError(t, err)
	require.Len(t, snap.Results, 3)
	assert.Equal(t, 156, snap.BenchmarkWeeks)

	for _, tk := range []string{"XLB", "XLE"} {
		r := snap.Results[tk]
		assert.NoError(t, r.Err)
		assert.False(t, r.Failed())
		_, ok := r.Current()
		assert.True(t, ok)
	}
	failed := snap.Results["XLF"]
	assert.True(t, failed.Failed())
	assert.Error(t, failed.Err)
	assert.Empty(t, failed.Points)
	assert.Equal(t, 52, snap.Params.ReturnLagWeeks)
}

func TestRefresh_BenchmarkFailureAborts(t *testing.T) {
	f := &fakeFetcher{errs: map[string]error{"SPY": errors.New("down")}}
	c := New(f, params())

	_, err := c.Refresh(context.Background(), "SPY", sectors("XLB"))
	require.Error(t, err)
	assert.Zero(t, f.calls["XLB"])
}

func TestRefresh_SectorsRunConcurrently(t *testing.T) {
	var started sync.WaitGroup
	started.Add(3)
	allStarted := make(chan struct{})
	go func() { started.Wait(); close(allStarted) }()

	f := &fakeFetcher{series: map[string][]model.PricePoint{"SPY": weekly(156, func(int) float64 { return 100 })}}
	f.hook = func(ticker string) {
		if ticker == "SPY" {
			return
		}
		started.Done()
		select {
		case <-allStarted:
		case <-time.After(2 * time.Second):
		}
	}
	c := New(f, params())

	begin := time.Now()
	snap, err := c.Refresh(context.Background(), "SPY", sectors("A", "B", "C"))
	require.NoError(t, err)
	assert.Less(t, time.Since(begin), time.Second, "sectors should not run one after another")
	assert.Len(t, snap.Results, 3)
}

func TestRefresh_RejectsOverlap(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	f := &fakeFetcher{series: map[string][]model.PricePoint{"SPY": weekly(10, func(int) float64 { return 1 })}}
	f.hook = func(ticker string) {
		if ticker == "SPY" {
			close(entered)
			<-release
		}
	}
	c := New(f, params())

	done := make(chan error, 1)
	go func() {
		_, err := c.Refresh(context.Background(), "SPY", nil)
		done <- err
	}()
	<-entered
	_, err := c.Refresh(context.Background(), "SPY", nil)
	assert.ErrorIs(t, err, ErrRefreshInProgress)
	close(release)
	assert.NoError(t, <-done)
}

func TestRefresh_DuplicateTickersFetchedOnce(t *testing.T) {
	f := &fakeFetcher{series: map[string][]model.PricePoint{
		"SPY": weekly(156, func(int) float64 { return 100 }),
		"XLK": weekly(156, cyclic),
	}}
	c := New(f, params())
	c.Concurrency = 1

	snap, err := c.Refresh(context.Background(), "SPY", sectors("XLK", "XLK"))
	require.NoError(t, err)
	assert.Len(t, snap.Results, 1)
	assert.Equal(t, 1, f.calls["XLK"])
}
