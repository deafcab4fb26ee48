package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"SectorSentinel/internal/calculator"
	"SectorSentinel/internal/model"
	"SectorSentinel/internal/report"
	"SectorSentinel/internal/scheduler"
	"SectorSentinel/internal/strategy"
)

var (
	refreshTickers     []string
	refreshLagYears    float64
	refreshWindowYears float64
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch prices and print current sector readings",
	Long: `Fetch the benchmark and every active sector, compute their Z-scores and
print the current readings, cheapest first.

Examples:
  sentinel refresh
  sentinel refresh --tickers XLK,SMH
  sentinel refresh --lag-years 0.5 --window-years 5`,
	RunE: runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)

	refreshCmd.Flags().StringSliceVar(&refreshTickers, "tickers", nil, "Refresh these tickers instead of the saved selection")
	refreshCmd.Flags().Float64Var(&refreshLagYears, "lag-years", 0, "Trailing return horizon in years (overrides config)")
	refreshCmd.Flags().Float64Var(&refreshWindowYears, "window-years", 0, "Z-score window in years (overrides config)")
}

func runRefresh(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if refreshLagYears > 0 {
		cfg.Signal.ReturnLagWeeks = calculator.WeeksFromYears(refreshLagYears)
	}
	if refreshWindowYears > 0 {
		cfg.Signal.ZWindowWeeks = calculator.WeeksFromYears(refreshWindowYears)
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var sel scheduler.Selection = a.selection
	if len(refreshTickers) > 0 {
		sel = adhocSelection(refreshTickers)
	}

	sched := scheduler.NewScheduler(ctx, a.coord, sel, a.recorder, cfg.Benchmark)
	sched.OnRefresh = func(snap *model.Snapshot) {
		_ = report.WriteReadings(cmd.OutOrStdout(), strategy.Readings(sel.Active(), snap), snap)
	}
	_, err = sched.RunNow()
	return err
}

type adhocSelection []string

func (t adhocSelection) Active() []model.Sector {
	out := make([]model.Sector, 0, len(t))
	for _, raw := range t {
		ticker := model.NormalizeTicker(raw)
		if ticker == "" {
			continue
		}
		s, ok := model.Lookup(ticker)
		if !ok {
			s = model.Sector{Ticker: ticker, Name: ticker, Custom: true}
		}
		out = append(out, s)
	}
	return out
}
