package commands

import (
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/baranekm/sauna-attendance/internal/config"
)

var datesCmd = &cobra.Command{
	Use:   "dates",
	Short: "List the dates that have data",
	RunE:  runDates,
}

func init() {
	rootCmd.AddCommand(datesCmd)
}

func runDates(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	rt, err := newReadRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	dates, err := rt.aggregator.Dates()
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("Date", "Weekday", "Week")
	for _, d := range dates {
		if err := table.Append([]string{d.Value, d.Weekday.String(), strconv.Itoa(d.Week)}); err != nil {
			return err
		}
	}
	return table.Render()
}
