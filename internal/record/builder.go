package record

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/baranekm/sauna-attendance/internal/occupancy"
	"github.com/baranekm/sauna-attendance/internal/schedule"
	"github.com/baranekm/sauna-attendance/internal/weather"
)

// Upstream sources reported to the failure hook.
const (
	SourceOccupancy   = "occupancy"
	SourceWeatherHome = "weather_home"
	SourceWeatherSite = "weather_site"
)

var errNoReader = errors.New("reader not configured")

// Schedule is the part of schedule.Timetable the builder needs.
type Schedule interface {
	Classify(t time.Time) (schedule.Status, string)
	IsHoliday(t time.Time) (string, bool)
}

// Builder assembles observations. It never fails: every upstream error degrades
// only the fields that upstream feeds.
type Builder struct {
	Schedule  Schedule
	Occupancy occupancy.Reader
	Weather   weather.Reader
	Home      weather.Location
	Site      weather.Location

	// Timeout bounds each upstream call. Zero means 30s.
	Timeout time.Duration

	// OnFailure, when set, is called for every degraded upstream call.
	OnFailure func(source string, err error)
}

// Build produces the observation for now. Upstream calls run one at a time.
func (b *Builder) Build(ctx context.Context, now time.Time) Observation {
	obs := Observation{
		Timestamp: now.Truncate(time.Second),
		Weekday:   now.Weekday(),
	}

	status, label := b.Schedule.Classify(now)
	obs.SessionType = label
	if status == schedule.Closed {
		obs.SessionType = schedule.ClosedLabel
		obs.Primary = Some(0)
		obs.Secondary = Some(0)
	} else {
		obs.Primary, obs.Secondary = b.readOccupancy(ctx)
	}

	obs.TempHome, obs.DescHome = b.readWeather(ctx, b.Home, SourceWeatherHome)
	obs.TempSite, obs.DescSite = b.readWeather(ctx, b.Site, SourceWeatherSite)

	if name, ok := b.Schedule.IsHoliday(now); ok {
		obs.Holiday = name
	}
	return obs
}

func (b *Builder) readOccupancy(ctx context.Context) (Opt[int], Opt[int]) {
	if b.Occupancy == nil {
		b.fail(SourceOccupancy, errNoReader)
		return None[int](), None[int]()
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout())
	defer cancel()

	counts, err := safeRead(func() (occupancy.Counts, error) { return b.Occupancy.Read(ctx) })
	if err != nil {
		b.fail(SourceOccupancy, err)
		return None[int](), None[int]()
	}

	secondary := None[int]()
	if counts.HasSecondary {
		secondary = Some(counts.Secondary)
	}
	return Some(counts.Primary), secondary
}

func (b *Builder) readWeather(ctx context.Context, loc weather.Location, source string) (Opt[float64], Opt[string]) {
	if b.Weather == nil {
		b.fail(source, errNoReader)
		return None[float64](), None[string]()
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout())
	defer cancel()

	r, err := safeRead(func() (weather.Reading, error) { return b.Weather.Current(ctx, loc) })
	if err != nil {
		b.fail(source, err)
		return None[float64](), None[string]()
	}

	desc := None[string]()
	if r.Description != "" {
		desc = Some(r.Description)
	}
	return Some(r.TemperatureC), desc
}

func (b *Builder) fail(source string, err error) {
	log.Printf("builder: %s unavailable: %v", source, err)
	if b.OnFailure != nil {
		b.OnFailure(source, err)
	}
}

func (b *Builder) timeout() time.Duration {
	if b.Timeout <= 0 {
		return 30 * time.Second
	}
	return b.Timeout
}

// safeRead converts a panicking reader into an error.
func safeRead[T any](read func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reader panicked: %v", r)
		}
	}()
	return read()
}
