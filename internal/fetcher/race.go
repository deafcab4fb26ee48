package fetcher

import (
	"context"
	"errors"
	"fmt"

	"SectorSentinel/internal/collector"
	"SectorSentinel/internal/model"
)

type routeResult struct {
	route  collector.Route
	points []model.PricePoint
	err    error
}

// race issues the same fetch over every route under one cancellable context.
// The first route to return a valid series wins; the context is then
// cancelled and the remaining routes are abandoned without being awaited.
// Their sends land in the buffered channel and are dropped.
func (o *Orchestrator) race(ctx context.Context, src collector.Source, routes []collector.Route, ticker string) ([]model.PricePoint, collector.Route, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan routeResult, len(routes))
	for _, r := range routes {
		go func(r collector.Route) {
			points, err := src.Fetch(ctx, r, ticker, o.policy.LookbackYears)
			results <- routeResult{route: r, points: points, err: err}
		}(r)
	}

	errs := make([]error, 0, len(routes))
	for range routes {
		select {
		case res := <-results:
			if res.err == nil {
				return res.points, res.route, nil
			}
			if len(routes) == 1 {
				return nil, res.route, res.err
			}
			errs = append(errs, fmt.Errorf("route %s: %w", res.route.Name, res.err))
		case <-ctx.Done():
			return nil, collector.Route{}, &collector.TransportError{Source: src.Name(), Err: ctx.Err()}
		}
	}
	return nil, collector.Route{}, errors.Join(errs...)
}
