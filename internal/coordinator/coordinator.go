package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"SectorSentinel/internal/calculator"
	"SectorSentinel/internal/metrics"
	"SectorSentinel/internal/model"
)

// ErrRefreshInProgress is returned when Refresh is called while another
// refresh is still running.
var ErrRefreshInProgress = errors.New("refresh already in progress")

// PriceFetcher produces a price series for one ticker.
type PriceFetcher interface {
	Fetch(ctx context.Context, ticker string) ([]model.PricePoint, error)
}

// Coordinator drives the pipeline across a benchmark and a set of sectors.
type Coordinator struct {
	Fetcher     PriceFetcher
	Params      calculator.Params
	Concurrency int // 0 means unbounded
	Metrics     *metrics.Metrics

	refreshing atomic.Bool
	now        func() time.Time
}

func New(f PriceFetcher, params calculator.Params) *Coordinator {
	return &Coordinator{Fetcher: f, Params: params, now: time.Now}
}

// Refresh fetches the benchmark, then every sector concurrently. A sector
// that fails is recorded with its error and no points; only a benchmark
// failure fails the whole refresh.
func (c *Coordinator) Refresh(ctx context.Context, benchmark string, sectors []model.Sector) (*model.Snapshot, error) {
	if !c.refreshing.CompareAndSwap(false, true) {
		return nil, ErrRefreshInProgress
	}
	defer c.refreshing.Store(false)

	now := c.now
	if now == nil {
		now = time.Now
	}
	snap := &model.Snapshot{
		Benchmark: benchmark,
		Params: model.SignalParams{
			ReturnLagWeeks: c.Params.ReturnLagWeeks,
			ZWindowWeeks:   c.Params.ZWindowWeeks,
			Clamp:          c.Params.ZScore.Clamp,
		},
		StartedAt: now(),
		Results:   make(map[string]model.SectorResult, len(sectors)),
	}

	log.Info().Str("benchmark", benchmark).Int("sectors", len(sectors)).Msg("refresh started")
	bench, err := c.Fetcher.Fetch(ctx, benchmark)
	if err != nil {
		return nil, fmt.Errorf("fetch benchmark %s: %w", benchmark, err)
	}
	snap.BenchmarkWeeks = len(bench)
	log.Info().Str("benchmark", benchmark).Int("weeks", len(bench)).Msg("benchmark loaded")

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	if c.Concurrency > 0 {
		g.SetLimit(c.Concurrency)
	}
	for _, s := range dedupe(sectors) {
		g.Go(func() error {
			res := c.computeSector(gctx, s, bench)
			mu.Lock()
			snap.Results[s.Ticker] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	snap.FinishedAt = now()
	var failed int
	for _, r := range snap.Results {
		if r.Failed() {
			failed++
		}
	}
	c.Metrics.Refreshed(snap.FinishedAt.Sub(snap.StartedAt), len(snap.Results)-failed, failed)
	log.Info().Int("ok", len(snap.Results)-failed).Int("failed", failed).
		Dur("took", snap.FinishedAt.Sub(snap.StartedAt)).Msg("refresh finished")
	return snap, nil
}

func (c *Coordinator) computeSector(ctx context.Context, s model.Sector, bench []model.PricePoint) model.SectorResult {
	prices, err := c.Fetcher.Fetch(ctx, s.Ticker)
	if err != nil {
		log.Error().Err(err).Str("ticker", s.Ticker).Msg("sector failed to load")
		return model.SectorResult{Sector: s, Err: err}
	}
	points := calculator.SectorSignal(prices, bench, c.Params)
	if len(points) == 0 {
		log.Warn().Str("ticker", s.Ticker).Int("weeks", len(prices)).Msg("sector produced no z-scores")
	}
	return model.SectorResult{Sector: s, Points: points}
}

// dedupe keeps the first sector per ticker.
func dedupe(sectors []model.Sector) []model.Sector {
	seen := make(map[string]bool, len(sectors))
	out := make([]model.Sector, 0, len(sectors))
	for _, s := range sectors {
		if seen[s.Ticker] {
			continue
		}
		seen[s.Ticker] = true
		out = append(out, s)
	}
	return out
}
