package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"SectorSentinel/internal/model"
	"SectorSentinel/internal/report"
	"SectorSentinel/internal/selection"
	"SectorSentinel/internal/storage"
)

var historyLimit int

var sectorsCmd = &cobra.Command{
	Use:   "sectors",
	Short: "Show and edit the saved sector selection",
}

var sectorsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog and custom sectors, marking active ones",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, closeFn, err := openSelection(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		active := m.Active()
		isActive := make(map[string]bool, len(active))
		for _, s := range active {
			isActive[s.Ticker] = true
		}
		all := append([]model.Sector{}, model.Catalog...)
		for _, s := range active {
			if _, ok := model.Lookup(s.Ticker); !ok {
				all = append(all, s)
			}
		}
		return report.WriteSectors(cmd.OutOrStdout(), all, isActive)
	},
}

var sectorsAddCmd = &cobra.Command{
	Use:   "add TICKER [NAME...]",
	Short: "Activate a catalog sector or add a custom ticker",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, closeFn, err := openSelection(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		s, err := m.AddCustom(cmd.Context(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "active: %s (%s)\n", s.Ticker, s.Name)
		return nil
	},
}

var sectorsToggleCmd = &cobra.Command{
	Use:   "toggle TICKER",
	Short: "Toggle a catalog sector on or off",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, ok := model.Lookup(args[0])
		if !ok {
			return fmt.Errorf("%s is not in the catalog; use add for custom tickers", model.NormalizeTicker(args[0]))
		}
		m, closeFn, err := openSelection(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		on, err := m.Toggle(cmd.Context(), s)
		if err != nil {
			return err
		}
		state := "off"
		if on {
			state = "on"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", s.Ticker, state)
		return nil
	},
}

var sectorsRemoveCmd = &cobra.Command{
	Use:   "remove TICKER",
	Short: "Deactivate a sector",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, closeFn, err := openSelection(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		removed, err := m.Remove(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("%s is not active", model.NormalizeTicker(args[0]))
		}
		return nil
	},
}

var sectorsHistoryCmd = &cobra.Command{
	Use:   "history TICKER",
	Short: "Show recorded readings for a ticker, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		rows, err := a.recorder.History(cmd.Context(), model.NormalizeTicker(args[0]), historyLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, r := range rows {
			value := report.FormatValue(r.ZScore)
			if r.Failed {
				value = "failed to load"
			}
			fmt.Fprintf(out, "%s  %s  %-14s %s\n", r.RecordedAt.Local().Format(time.DateTime), r.Date.Format(time.DateOnly), value, r.Signal)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sectorsCmd)
	sectorsCmd.AddCommand(sectorsListCmd, sectorsAddCmd, sectorsToggleCmd, sectorsRemoveCmd, sectorsHistoryCmd)
	sectorsHistoryCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of readings to show")
}

// openSelection opens only the storage backend, without the fetch stack.
func openSelection(ctx context.Context) (*selection.Manager, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	blobs, err := storage.Open(storageOptions(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}
	m, err := selection.NewManager(ctx, blobs)
	if err != nil {
		blobs.Close()
		return nil, nil, err
	}
	return m, func() { blobs.Close() }, nil
}
