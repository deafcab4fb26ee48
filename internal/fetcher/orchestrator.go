package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"SectorSentinel/internal/cache"
	"SectorSentinel/internal/collector"
	"SectorSentinel/internal/metrics"
	"SectorSentinel/internal/model"
)

// Policy holds the retry, timeout and racing knobs.
type Policy struct {
	LookbackYears int
	MaxAttempts   int
	BackoffStep   time.Duration
	Timeout       time.Duration
	Race          bool
}

// DefaultPolicy mirrors the dashboard: three attempts, 350ms linear backoff,
// 15s per fetch, 15 years of history.
func DefaultPolicy() Policy {
	return Policy{
		LookbackYears: 15,
		MaxAttempts:   3,
		BackoffStep:   350 * time.Millisecond,
		Timeout:       15 * time.Second,
	}
}

// BreakerPolicy configures the optional per-source circuit breaker.
type BreakerPolicy struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// SourceConfig is one upstream and the network routes that reach it.
type SourceConfig struct {
	Source collector.Source
	Routes []collector.Route
}

type sourceEntry struct {
	src     collector.Source
	routes  []collector.Route
	breaker *gobreaker.CircuitBreaker
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithBreaker wraps every source in a circuit breaker. While a breaker is
// open its source is skipped and the next one is tried.
func WithBreaker(bp BreakerPolicy) Option {
	return func(o *Orchestrator) { o.breaker = &bp }
}

// Orchestrator produces a price series for one ticker from cache or from
// the configured sources, in priority order.
type Orchestrator struct {
	sources []sourceEntry
	cache   *cache.Store
	policy  Policy
	metrics *metrics.Metrics
	breaker *BreakerPolicy
	sleep   func(ctx context.Context, d time.Duration) error
}

func New(store *cache.Store, policy Policy, sources []SourceConfig, opts ...Option) *Orchestrator {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	o := &Orchestrator{cache: store, policy: policy, sleep: sleepCtx}
	for _, opt := range opts {
		opt(o)
	}
	for _, sc := range sources {
		routes := sc.Routes
		if len(routes) == 0 {
			routes = []collector.Route{collector.Direct}
		}
		e := sourceEntry{src: sc.Source, routes: routes}
		if o.breaker != nil {
			e.breaker = newBreaker(sc.Source.Name(), *o.breaker)
		}
		o.sources = append(o.sources, e)
	}
	return o
}

func newBreaker(name string, bp BreakerPolicy) *gobreaker.CircuitBreaker {
	threshold := bp.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: bp.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// A short series is a property of the ticker, not of the source.
		IsSuccessful: func(err error) bool {
			var ie *collector.InsufficientDataError
			return err == nil || errors.As(err, &ie)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("source", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
}

// Fetch returns a fresh cached series if any source has one, otherwise asks
// each source in turn and caches the first success under that source's key.
func (o *Orchestrator) Fetch(ctx context.Context, ticker string) ([]model.PricePoint, error) {
	for _, s := range o.sources {
		e, ok := o.cache.Get(cache.Key(s.src.Name(), ticker))
		o.metrics.CacheLookup(s.src.Name(), ok)
		if ok {
			log.Debug().Str("ticker", ticker).Str("source", s.src.Name()).Msg("cache hit")
			return e.Data, nil
		}
	}

	var last error
	for i, s := range o.sources {
		points, err := o.fetchSource(ctx, s, ticker)
		if err == nil {
			if perr := o.cache.Put(ctx, cache.Key(s.src.Name(), ticker), points); perr != nil {
				log.Warn().Err(perr).Str("ticker", ticker).Msg("cache persistence failed")
			}
			return points, nil
		}
		last = err
		if ctx.Err() != nil {
			return nil, fmt.Errorf("fetch %s: %w", ticker, ctx.Err())
		}
		if i < len(o.sources)-1 {
			log.Warn().Err(err).Str("ticker", ticker).Str("source", s.src.Name()).
				Str("next", o.sources[i+1].src.Name()).Msg("source failed, falling back")
		}
	}
	o.metrics.SourcesExhausted()
	if last == nil {
		last = errors.New("no sources configured")
	}
	return nil, &AllSourcesFailedError{Ticker: ticker, Last: last}
}

func (o *Orchestrator) fetchSource(ctx context.Context, s sourceEntry, ticker string) ([]model.PricePoint, error) {
	if s.breaker == nil {
		return o.withRetry(ctx, s, ticker)
	}
	v, err := s.breaker.Execute(func() (interface{}, error) {
		return o.withRetry(ctx, s, ticker)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			o.metrics.Attempt(s.src.Name(), "breaker_open")
			return nil, fmt.Errorf("%s: %w", s.src.Name(), err)
		}
		return nil, err
	}
	return v.([]model.PricePoint), nil
}

// withRetry retries transport-class failures with linear backoff. Format and
// insufficient-data errors return immediately.
func (o *Orchestrator) withRetry(ctx context.Context, s sourceEntry, ticker string) ([]model.PricePoint, error) {
	var err error
	for attempt := 1; attempt <= o.policy.MaxAttempts; attempt++ {
		var points []model.PricePoint
		points, err = o.attempt(ctx, s, ticker)
		if err == nil {
			o.metrics.Attempt(s.src.Name(), "ok")
			return points, nil
		}

		transient := collector.IsTransient(err)
		o.metrics.Attempt(s.src.Name(), outcome(transient))
		log.Warn().Err(err).Str("ticker", ticker).Str("source", s.src.Name()).
			Int("attempt", attempt).Bool("transient", transient).Msg("fetch attempt failed")

		if !transient || ctx.Err() != nil || attempt == o.policy.MaxAttempts {
			break
		}
		if serr := o.sleep(ctx, o.policy.BackoffStep*time.Duration(attempt)); serr != nil {
			break
		}
	}
	return nil, err
}

// attempt runs one fetch under the per-fetch timeout, racing all routes when
// racing is enabled.
func (o *Orchestrator) attempt(ctx context.Context, s sourceEntry, ticker string) ([]model.PricePoint, error) {
	actx := ctx
	if o.policy.Timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, o.policy.Timeout)
		defer cancel()
	}
	routes := s.routes[:1]
	if o.policy.Race {
		routes = s.routes
	}
	points, route, err := o.race(actx, s.src, routes, ticker)
	if err != nil {
		if ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) && !collector.IsTransient(err) {
			err = &collector.TransportError{Source: s.src.Name(), Err: fmt.Errorf("timeout after %s: %w", o.policy.Timeout, err)}
		}
		return nil, err
	}
	if len(routes) > 1 {
		o.metrics.RaceWon(s.src.Name(), route.Name)
	}
	return points, nil
}

func outcome(transient bool) string {
	if transient {
		return "transport_error"
	}
	return "rejected"
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
