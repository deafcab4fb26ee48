package report

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"SectorSentinel/internal/model"
	"SectorSentinel/internal/strategy"
)

const (
	failedText  = "failed to load"
	pendingText = "..."
)

// FormatValue renders a Z-score signed with two decimals.
func FormatValue(z float64) string {
	return fmt.Sprintf("%+.2f", z)
}

// WriteReadings renders the readings table followed by a one-line summary
// of the snapshot it came from.
func WriteReadings(w io.Writer, readings []strategy.Reading, snap *model.Snapshot) error {
	if len(readings) == 0 {
		_, err := fmt.Fprintln(w, "Select sectors")
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Ticker", "Name", "Z-Score", "Signal"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	data := make([][]string, 0, len(readings))
	for _, r := range readings {
		data = append(data, row(r))
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	if snap == nil {
		return nil
	}
	_, err := fmt.Fprintf(w, "benchmark %s (%d weeks) | lag %dw window %dw clamp ±%g | %s in %s\n",
		snap.Benchmark, snap.BenchmarkWeeks,
		snap.Params.ReturnLagWeeks, snap.Params.ZWindowWeeks, snap.Params.Clamp,
		snap.FinishedAt.Format("2006-01-02 15:04"), snap.FinishedAt.Sub(snap.StartedAt).Round(time.Millisecond))
	return err
}

func row(r strategy.Reading) []string {
	switch {
	case r.HasData:
		return []string{r.Sector.Ticker, r.Sector.Name, FormatValue(r.Value), string(r.Signal)}
	case r.Err != nil:
		return []string{r.Sector.Ticker, r.Sector.Name, failedText, ""}
	default:
		return []string{r.Sector.Ticker, r.Sector.Name, pendingText, ""}
	}
}

// WriteSectors lists sectors with their colors, marking active ones.
func WriteSectors(w io.Writer, sectors []model.Sector, active map[string]bool) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"", "Ticker", "Name", "Color"})

	data := make([][]string, 0, len(sectors))
	for _, s := range sectors {
		mark := ""
		if active[s.Ticker] {
			mark = "*"
		}
		name := s.Name
		if s.Custom {
			name += " (custom)"
		}
		data = append(data, []string{mark, s.Ticker, name, s.Color})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}
