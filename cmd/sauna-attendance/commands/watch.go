package commands

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/baranekm/sauna-attendance/internal/config"
	"github.com/baranekm/sauna-attendance/internal/live"
	"github.com/baranekm/sauna-attendance/internal/record"
)

var watchJSON bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live observations from Redis",
	Long: `Follow the observations a running poller publishes to Redis and print
one line per sample. Requires REDIS_URL.

Use --json for line-delimited JSON envelopes.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchJSON, "json", false, "Output line-delimited JSON")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.RedisURL == "" {
		return fmt.Errorf("watch requires REDIS_URL")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	feed, err := live.NewRedisFeedFromURL(ctx, cfg.RedisURL, uuid.New())
	if err != nil {
		return err
	}
	defer feed.Close()

	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)
	return feed.Watch(ctx, func(env live.Envelope) {
		if watchJSON {
			if err := enc.Encode(env); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "encode: %v\n", err)
			}
			return
		}
		obs := env.Observation
		fmt.Fprintf(out, "%s %-13s primary=%s secondary=%s source=%s\n",
			obs.Timestamp.In(cfg.Location).Format(record.TimestampLayout),
			obs.SessionType, formatOpt(obs.Primary), formatOpt(obs.Secondary), env.Source)
	})
}

func formatOpt(o record.Opt[int]) string {
	if n, ok := o.Get(); ok {
		return fmt.Sprint(n)
	}
	return record.Missing
}
