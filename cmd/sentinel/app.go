package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"SectorSentinel/internal/cache"
	"SectorSentinel/internal/calculator"
	"SectorSentinel/internal/collector"
	"SectorSentinel/internal/config"
	"SectorSentinel/internal/coordinator"
	"SectorSentinel/internal/fetcher"
	"SectorSentinel/internal/metrics"
	"SectorSentinel/internal/recorder"
	"SectorSentinel/internal/selection"
	"SectorSentinel/internal/storage"
)

// app is the wired object graph shared by every command.
type app struct {
	cfg       *config.Config
	blobs     storage.BlobStore
	cache     *cache.Store
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	coord     *coordinator.Coordinator
	selection *selection.Manager
	recorder  recorder.Recorder
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	blobs, err := storage.Open(storageOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	log.Info().Str("driver", cfg.Storage.Driver).Msg("storage opened")

	a := &app{cfg: cfg, blobs: blobs, registry: prometheus.NewRegistry()}
	a.metrics = metrics.New(a.registry)

	a.cache = cache.NewStore(cfg.Cache.TTL, cache.WithPersistence(blobs))
	if err := a.cache.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("price cache not restored")
	}
	log.Info().Int("entries", a.cache.Len()).Dur("ttl", cfg.Cache.TTL).Msg("price cache ready")

	sources, err := buildSources(cfg)
	if err != nil {
		blobs.Close()
		return nil, err
	}
	opts := []fetcher.Option{fetcher.WithMetrics(a.metrics)}
	if cfg.Fetch.Breaker.Enabled {
		opts = append(opts, fetcher.WithBreaker(fetcher.BreakerPolicy{
			ConsecutiveFailures: cfg.Fetch.Breaker.ConsecutiveFailures,
			OpenTimeout:         cfg.Fetch.Breaker.OpenTimeout,
		}))
	}
	orch := fetcher.New(a.cache, fetcher.Policy{
		LookbackYears: cfg.Fetch.LookbackYears,
		MaxAttempts:   cfg.Fetch.MaxAttempts,
		BackoffStep:   cfg.Fetch.BackoffStep,
		Timeout:       cfg.Fetch.Timeout,
		Race:          cfg.Fetch.Race,
	}, sources, opts...)

	a.coord = coordinator.New(orch, signalParams(cfg))
	a.coord.Concurrency = cfg.Fetch.Concurrency
	a.coord.Metrics = a.metrics

	a.selection, err = selection.NewManager(ctx, blobs)
	if err != nil {
		blobs.Close()
		return nil, fmt.Errorf("load selection: %w", err)
	}

	a.recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			a.recorder = sr
		}
	}
	return a, nil
}

func (a *app) Close() {
	if err := a.recorder.Close(); err != nil {
		log.Error().Err(err).Msg("close recorder")
	}
	if err := a.blobs.Close(); err != nil {
		log.Error().Err(err).Msg("close storage")
	}
}

// buildSources creates the sources in configured priority order, each with
// its own HTTP client so rate limits apply per upstream.
func buildSources(cfg *config.Config) ([]fetcher.SourceConfig, error) {
	out := make([]fetcher.SourceConfig, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		httpc := collector.NewHTTPClient(collector.HTTPOptions{
			Proxy:     cfg.Proxy,
			Timeout:   cfg.Fetch.Timeout,
			RPS:       cfg.Fetch.RateLimit.RPS,
			Burst:     cfg.Fetch.RateLimit.Burst,
			UserAgent: cfg.Fetch.UserAgent,
		})

		var src collector.Source
		switch sc.Name {
		case "yahoo":
			y := collector.NewYahooSource(httpc, cfg.Fetch.MinPoints)
			if sc.BaseURL != "" {
				y.BaseURL = sc.BaseURL
			}
			src = y
		case "stooq":
			s := collector.NewStooqSource(httpc, cfg.Fetch.MinPoints)
			if sc.BaseURL != "" {
				s.BaseURL = sc.BaseURL
			}
			src = s
		default:
			return nil, fmt.Errorf("unknown source %q", sc.Name)
		}

		routes := make([]collector.Route, 0, len(sc.Routes))
		for _, r := range sc.Routes {
			routes = append(routes, collector.ParseRoute(r))
		}
		out = append(out, fetcher.SourceConfig{Source: src, Routes: routes})
		log.Debug().Str("source", sc.Name).Int("routes", len(routes)).Msg("source configured")
	}
	return out, nil
}

func storageOptions(cfg *config.Config) storage.Options {
	return storage.Options{
		Driver:     cfg.Storage.Driver,
		Dir:        cfg.Storage.Dir,
		SQLitePath: cfg.Storage.SQLitePath,
		RedisAddr:  cfg.Storage.Redis.Addr,
		RedisDB:    cfg.Storage.Redis.DB,
		RedisPass:  cfg.Storage.Redis.Password,
		KeyPrefix:  cfg.Storage.Redis.Prefix,
	}
}

func signalParams(cfg *config.Config) calculator.Params {
	return calculator.Params{
		ReturnLagWeeks: cfg.Signal.ReturnLagWeeks,
		ZWindowWeeks:   cfg.Signal.ZWindowWeeks,
		ZScore: calculator.ZScoreOptions{
			Clamp:      cfg.Signal.Clamp,
			MinSamples: cfg.Signal.MinSamples,
			MinStd:     cfg.Signal.MinStd,
		},
	}
}
