package commands

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/baranekm/sauna-attendance/internal/aggregate"
	"github.com/baranekm/sauna-attendance/internal/config"
)

var (
	aggDates    []string
	aggWindow   int
	aggAverage  bool
	aggOpenOnly bool
	aggJSON     bool
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Summarise attendance for selected dates",
	Long: `Load the daily logs for the selected dates, repair isolated dropouts,
align the dates by time of day and print per-date statistics.

Without --date every date present in the logs is summarised.
Use --json to print the full aligned and smoothed series.`,
	RunE: runAggregate,
}

func init() {
	aggregateCmd.Flags().StringSliceVar(&aggDates, "date", nil, "Date to include (YYYY-MM-DD), repeatable")
	aggregateCmd.Flags().IntVar(&aggWindow, "window", 3, "Smoothing window in samples")
	aggregateCmd.Flags().BoolVar(&aggAverage, "average", false, "Include the cross-date average series")
	aggregateCmd.Flags().BoolVar(&aggOpenOnly, "open-only", false, "Ignore samples taken while closed")
	aggregateCmd.Flags().BoolVar(&aggJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(aggregateCmd)
}

func runAggregate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	rt, err := newReadRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	q := aggregate.Query{Window: aggWindow, WithAverage: aggAverage, OpenOnly: aggOpenOnly}
	if len(aggDates) == 0 {
		infos, err := rt.aggregator.Dates()
		if err != nil {
			return err
		}
		for _, info := range infos {
			q.Dates = append(q.Dates, info.Date)
		}
	}
	for _, d := range aggDates {
		t, err := time.ParseInLocation("2006-01-02", d, cfg.Location)
		if err != nil {
			return fmt.Errorf("invalid --date %q: %w", d, err)
		}
		q.Dates = append(q.Dates, t)
	}

	res, err := rt.aggregator.Aggregate(q)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if aggJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	if len(res.Series) == 0 {
		fmt.Fprintln(out, "No data available.")
		return nil
	}

	table := tablewriter.NewWriter(out)
	table.Header("Date", "Samples", "Average", "Peak")
	for _, s := range res.Series {
		row := []string{s.Date.Format("2006-01-02"), strconv.Itoa(len(s.Points)), "no data", "no data"}
		if s.Stats.HasData {
			row[2] = strconv.FormatFloat(s.Stats.Mean, 'f', 2, 64)
			row[3] = strconv.FormatFloat(s.Stats.Peak, 'f', -1, 64)
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	if aggAverage && len(res.Average) > 0 {
		var peak aggregate.AveragePoint
		for _, p := range res.Average {
			if p.Value > peak.Value {
				peak = p
			}
		}
		fmt.Fprintf(out, "Average line: %d slots, busiest %s (%.2f)\n", len(res.Average), peak.Time, peak.Value)
	}
	return nil
}
