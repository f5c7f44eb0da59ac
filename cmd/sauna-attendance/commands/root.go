package commands

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sauna-attendance",
	Short: "Facility occupancy telemetry: polling, daily logs and aggregation",
	Long: `sauna-attendance samples a facility's live occupancy together with local
weather, appends one row per sample to a CSV log per calendar date, and
rebuilds comparable multi-day series from those logs.

Configuration is read from the environment and an optional .env file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	rootCmd.SilenceUsage = true
	if err := rootCmd.Execute(); err != nil {
		log.Printf("ERROR: %v", err)
		return err
	}
	return nil
}

func SetVersionInfo(version, commit string) {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s)", version, commit)
}
