package commands

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/baranekm/sauna-attendance/internal/aggregate"
	"github.com/baranekm/sauna-attendance/internal/config"
	"github.com/baranekm/sauna-attendance/internal/dailylog"
	"github.com/baranekm/sauna-attendance/internal/live"
	"github.com/baranekm/sauna-attendance/internal/metrics"
	"github.com/baranekm/sauna-attendance/internal/occupancy"
	"github.com/baranekm/sauna-attendance/internal/poller"
	"github.com/baranekm/sauna-attendance/internal/record"
	"github.com/baranekm/sauna-attendance/internal/store"
	"github.com/baranekm/sauna-attendance/internal/weather"
	"github.com/baranekm/sauna-attendance/internal/weather/providers"
)

// runtime holds the components shared by the commands.
type runtime struct {
	cfg        *config.AppConfig
	logs       *dailylog.Store
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	recent     *store.MemoryStore
	feed       *live.RedisFeed
	aggregator *aggregate.Aggregator
	poller     *poller.Poller
}

// newReadRuntime wires the read path only: log store and aggregator.
func newReadRuntime(cfg *config.AppConfig) (*runtime, error) {
	logs, err := dailylog.New(dailylog.Options{
		Dir:      cfg.LogDir,
		Prefix:   cfg.LogPrefix,
		TwoZone:  cfg.TwoZone,
		Location: cfg.Location,
	})
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	return &runtime{
		cfg:        cfg,
		logs:       logs,
		registry:   reg,
		metrics:    m,
		recent:     store.NewMemoryStore(cfg.RecentMaxHistory, cfg.RecentMaxAge),
		aggregator: aggregate.New(logs, m),
	}, nil
}

// newPollingRuntime adds the upstream readers, the optional live feed and the poller.
func newPollingRuntime(ctx context.Context, cfg *config.AppConfig) (*runtime, error) {
	rt, err := newReadRuntime(cfg)
	if err != nil {
		return nil, err
	}
	id := uuid.New()

	// Shared HTTP client for outbound calls.
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	occ, err := occupancy.NewPageReader(httpClient, cfg.Occupancy)
	if err != nil {
		return nil, fmt.Errorf("occupancy reader: %w", err)
	}

	// Open-Meteo needs no key; the others join when a key is configured.
	provs := []weather.Provider{providers.NewOpenMeteoProvider(httpClient)}
	if cfg.OpenWeatherAPIKey != "" {
		provs = append(provs, providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey))
	}
	if cfg.WeatherAPIKey != "" {
		provs = append(provs, providers.NewWeatherAPIProvider(httpClient, cfg.WeatherAPIKey))
	}

	builder := &record.Builder{
		Schedule:  cfg.Timetable,
		Occupancy: occ,
		Weather:   weather.NewService(provs),
		Home:      cfg.Home,
		Site:      cfg.Site,
		Timeout:   cfg.ReaderTimeout,
		OnFailure: func(source string, _ error) { rt.metrics.ReaderFailure(source) },
	}

	publishers := []poller.Publisher{rt.recent}
	if cfg.RedisURL != "" {
		rt.feed, err = live.NewRedisFeedFromURL(ctx, cfg.RedisURL, id)
		if err != nil {
			return nil, err
		}
		publishers = append(publishers, rt.feed)
		log.Printf("INFO: publishing observations to redis channel %s", rt.feed.Channel())
	}

	rt.poller = poller.New(poller.Options{
		ID:         id,
		Builder:    builder,
		Logs:       rt.logs,
		Publishers: publishers,
		Metrics:    rt.metrics,
		Interval:   cfg.PollInterval,
	})
	return rt, nil
}

func (rt *runtime) Close() {
	if rt.feed != nil {
		if err := rt.feed.Close(); err != nil {
			log.Printf("ERROR: closing redis feed: %v", err)
		}
	}
}
