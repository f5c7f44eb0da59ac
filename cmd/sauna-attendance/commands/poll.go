package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/baranekm/sauna-attendance/internal/config"
)

var pollOnce bool

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Run only the polling loop",
	Long: `Sample occupancy and weather every POLL_INTERVAL and append each
observation to the daily log of its calendar date. Runs until SIGINT or
SIGTERM.

Use --once to take a single sample and exit.`,
	RunE: runPoll,
}

func init() {
	pollCmd.Flags().BoolVar(&pollOnce, "once", false, "Take one sample and exit")
	rootCmd.AddCommand(pollCmd)
}

func runPoll(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := newPollingRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	if pollOnce {
		if err := rt.poller.Tick(ctx, time.Now()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "appended to %s\n", rt.poller.Current().Path)
		return nil
	}
	return rt.poller.Run(ctx)
}
