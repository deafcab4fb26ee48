package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"SectorSentinel/internal/model"
	"SectorSentinel/internal/report"
	"SectorSentinel/internal/scheduler"
	"SectorSentinel/internal/strategy"
)

var runNow bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Refresh on a cron schedule until interrupted",
	Long: `Run the refresh on schedule.refresh_cron (six fields, with seconds),
recording each snapshot to the history database. When metrics.listen is set
Prometheus metrics are served on /metrics.

Set RUN_ON_START=true or pass --now to refresh once immediately.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runNow, "now", false, "Refresh once immediately on start")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	log.Info().Msg("SectorSentinel starting...")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	sched := scheduler.NewScheduler(ctx, a.coord, a.selection, a.recorder, cfg.Benchmark)
	sched.OnRefresh = func(snap *model.Snapshot) {
		_ = report.WriteReadings(cmd.OutOrStdout(), strategy.Readings(a.selection.Active(), snap), snap)
	}
	if err := sched.Register(cfg.Schedule.RefreshCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	var srv *http.Server
	if cfg.Metrics.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
		srv = &http.Server{Addr: cfg.Metrics.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server")
			}
		}()
		log.Info().Str("addr", cfg.Metrics.Listen).Msg("metrics server started")
	}

	if runNow || os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, refreshing now")
		go func() {
			if _, err := sched.RunNow(); err != nil {
				log.Error().Err(err).Msg("initial refresh failed")
			}
		}()
	}

	log.Info().Str("cron", cfg.Schedule.RefreshCron).Msg("SectorSentinel is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping...")
	cancel()
	if srv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = srv.Shutdown(shutdownCtx)
	}
	log.Info().Msg("SectorSentinel stopped")
	return nil
}
