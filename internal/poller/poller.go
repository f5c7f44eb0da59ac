// Package poller drives the sampling loop: one observation per tick, appended to
// the daily log of the tick's calendar date.
package poller

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"

	"github.com/baranekm/sauna-attendance/internal/dailylog"
	"github.com/baranekm/sauna-attendance/internal/metrics"
	"github.com/baranekm/sauna-attendance/internal/record"
)

// DefaultInterval is the sampling period used when none is configured.
const DefaultInterval = 210 * time.Second

// Builder produces one observation for an instant.
type Builder interface {
	Build(ctx context.Context, now time.Time) record.Observation
}

// LogStore is the write side of the daily log store.
type LogStore interface {
	DateOf(t time.Time) time.Time
	EnsureLogFor(date time.Time) (*dailylog.Log, error)
	Append(l *dailylog.Log, obs record.Observation) error
	Location() *time.Location
}

// Publisher receives every appended observation (live feed, recent buffer).
type Publisher interface {
	Publish(ctx context.Context, obs record.Observation) error
}

// Poller owns the current log handle; nothing else mutates it.
type Poller struct {
	id         uuid.UUID
	builder    Builder
	logs       LogStore
	publishers []Publisher
	metrics    *metrics.Metrics
	interval   time.Duration

	mu      sync.Mutex
	current *dailylog.Log
}

// Options configures a Poller.
type Options struct {
	ID         uuid.UUID
	Builder    Builder
	Logs       LogStore
	Publishers []Publisher
	Metrics    *metrics.Metrics
	Interval   time.Duration
}

// New creates a Poller. A zero interval means DefaultInterval.
func New(opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.ID == uuid.Nil {
		opts.ID = uuid.New()
	}
	return &Poller{
		id:         opts.ID,
		builder:    opts.Builder,
		logs:       opts.Logs,
		publishers: opts.Publishers,
		metrics:    opts.Metrics,
		interval:   opts.Interval,
	}
}

func (p *Poller) ID() uuid.UUID { return p.id }

// Current returns the log handle currently written to, or nil before the first tick.
func (p *Poller) Current() *dailylog.Log {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Tick performs one sampling step for now: roll the log handle over if the date
// changed, build the observation, append it and hand it to the publishers.
// A panic inside the tick is returned as an error.
func (p *Poller) Tick(ctx context.Context, now time.Time) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick panicked: %v", r)
		}
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		p.metrics.Tick(outcome, time.Since(start).Seconds())
	}()

	now = now.In(p.logs.Location())
	l, err := p.logFor(now)
	if err != nil {
		return err
	}

	obs := p.builder.Build(ctx, now)
	if err := p.logs.Append(l, obs); err != nil {
		return err
	}
	p.metrics.RowAppended()
	if n, ok := obs.Primary.Get(); ok {
		p.metrics.Occupancy(n)
	}

	for _, pub := range p.publishers {
		if err := pub.Publish(ctx, obs); err != nil {
			log.Printf("scheduler: publish failed: %v", err)
		}
	}

	log.Printf("scheduler: %s %s primary=%s", obs.Timestamp.Format(record.TimestampLayout), obs.SessionType, formatCount(obs.Primary))
	return nil
}

// logFor returns the handle for now's date, rolling over when the date changed.
// On a failed rollover the old handle is kept but not returned.
func (p *Poller) logFor(now time.Time) (*dailylog.Log, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	date := p.logs.DateOf(now)
	if p.current != nil && p.current.Date.Equal(date) {
		return p.current, nil
	}

	l, err := p.logs.EnsureLogFor(date)
	if err != nil {
		return nil, fmt.Errorf("rollover to %s: %w", date.Format("2006-01-02"), err)
	}
	if p.current != nil {
		log.Printf("scheduler: day rollover %s -> %s", p.current.Date.Format("2006-01-02"), date.Format("2006-01-02"))
		p.metrics.Rollover()
	}
	p.current = l
	return l, nil
}

// Run ticks immediately and then every interval until ctx is cancelled.
// A failed tick is logged and never stops the loop.
func (p *Poller) Run(ctx context.Context) error {
	s := gocron.NewScheduler(p.logs.Location())

	_, err := s.Every(p.interval).SingletonMode().Do(func() {
		if err := p.Tick(ctx, time.Now()); err != nil {
			log.Printf("scheduler: tick failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule poller: %w", err)
	}

	log.Printf("scheduler: poller %s started, interval %s", p.id, p.interval)
	s.StartAsync()

	<-ctx.Done()

	s.Stop()
	log.Printf("scheduler: poller %s stopped", p.id)
	return nil
}

func formatCount(o record.Opt[int]) string {
	if n, ok := o.Get(); ok {
		return fmt.Sprint(n)
	}
	return record.Missing
}
