package commands

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpapi "github.com/baranekm/sauna-attendance/internal/api/http"
	"github.com/baranekm/sauna-attendance/internal/config"
)

var serveNoPoll bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the poller and the HTTP API",
	Long: `Run the polling loop in the background and serve the attendance API,
the health check and Prometheus metrics until SIGINT or SIGTERM.

Use --no-poll to serve the existing logs without sampling.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveNoPoll, "no-poll", false, "Serve existing logs without polling")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var rt *runtime
	if serveNoPoll {
		rt, err = newReadRuntime(cfg)
	} else {
		rt, err = newPollingRuntime(ctx, cfg)
	}
	if err != nil {
		return err
	}
	defer rt.Close()

	pollDone := make(chan struct{})
	if rt.poller != nil {
		go func() {
			defer close(pollDone)
			if err := rt.poller.Run(ctx); err != nil {
				log.Printf("ERROR: poller: %v", err)
			}
		}()
	} else {
		close(pollDone)
	}

	app := httpapi.NewApp()
	deps := httpapi.Deps{
		Aggregator: rt.aggregator,
		Recent:     rt.recent,
		Gatherer:   rt.registry,
		Location:   cfg.Location,
	}
	if rt.feed != nil {
		deps.Live = rt.feed
	}
	httpapi.RegisterRoutes(app, deps)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()
	log.Printf("INFO: serving on :%s, logs in %s", cfg.Port, cfg.LogDir)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
	<-pollDone
	return nil
}
