package httpapi

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/baranekm/sauna-attendance/internal/aggregate"
	"github.com/baranekm/sauna-attendance/internal/live"
	"github.com/baranekm/sauna-attendance/internal/record"
	"github.com/baranekm/sauna-attendance/internal/store"
)

var validate = validator.New()

const defaultWindow = 3

// Aggregator answers comparison queries over the daily logs.
type Aggregator interface {
	Aggregate(q aggregate.Query) (aggregate.Result, error)
	Dates() ([]aggregate.DateInfo, error)
}

// LatestSource returns the newest observation.
type LatestSource interface {
	Latest(ctx context.Context) (record.Observation, error)
}

// RecentSource is the in-memory buffer of recent observations.
type RecentSource interface {
	LatestSource
	Recent() []record.Observation
	Range(from, to time.Time) ([]record.Observation, error)
}

// Deps are the services behind the routes. Live and Gatherer are optional.
type Deps struct {
	Aggregator Aggregator
	Recent     RecentSource
	Live       LatestSource
	Gatherer   prometheus.Gatherer
	Location   *time.Location
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	if deps.Location == nil {
		deps.Location = time.Local
	}
	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := app.Group("/api/v1/attendance")

	v1.Get("/dates", func(c *fiber.Ctx) error {
		dates, err := deps.Aggregator.Dates()
		if err != nil {
			log.Printf("ERROR: list dates: %v", err)
			return fiber.NewError(fiber.StatusInternalServerError, "failed to list available dates")
		}
		if dates == nil {
			dates = []aggregate.DateInfo{}
		}
		return c.JSON(fiber.Map{"dates": dates})
	})

	v1.Get("/series", func(c *fiber.Ctx) error {
		var req seriesQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		q, err := req.toQuery(deps.Location)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		res, err := deps.Aggregator.Aggregate(q)
		if err != nil {
			if errors.Is(err, aggregate.ErrInvalidWindow) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			log.Printf("ERROR: aggregate: %v", err)
			return fiber.NewError(fiber.StatusInternalServerError, "failed to aggregate attendance")
		}
		return c.JSON(newSeriesResponse(req, res))
	})

	v1.Get("/latest", func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		if deps.Live != nil {
			obs, err := deps.Live.Latest(ctx)
			if err == nil {
				return c.JSON(obs)
			}
			if !errors.Is(err, live.ErrNoObservation) {
				log.Printf("ERROR: live feed: %v", err)
			}
		}

		obs, err := deps.Recent.Latest(ctx)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no observation recorded yet")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read latest observation")
		}
		return c.JSON(obs)
	})

	v1.Get("/recent", func(c *fiber.Ctx) error {
		var req recentQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if req.From.IsZero() && req.To.IsZero() {
			obs := deps.Recent.Recent()
			if obs == nil {
				obs = []record.Observation{}
			}
			return c.JSON(fiber.Map{"observations": obs})
		}

		obs, err := deps.Recent.Range(req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no observations for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read observations")
		}
		return c.JSON(fiber.Map{
			"from":         req.From,
			"to":           req.To,
			"observations": obs,
		})
	})
}

// seriesQuery holds the query parameters of the series endpoint.
type seriesQuery struct {
	Dates    []string `validate:"max=31,dive,datetime=2006-01-02"`
	Window   int      `validate:"min=1,max=48"`
	Average  bool
	OpenOnly bool
}

// bind accepts repeated date parameters as well as comma separated lists.
func (q *seriesQuery) bind(c *fiber.Ctx) error {
	for _, raw := range c.Context().QueryArgs().PeekMulti("date") {
		for _, d := range strings.Split(string(raw), ",") {
			if d = strings.TrimSpace(d); d != "" {
				q.Dates = append(q.Dates, d)
			}
		}
	}

	q.Window = defaultWindow
	if v := c.Query("window"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("window must be an integer")
		}
		q.Window = n
	}

	var err error
	if q.Average, err = parseBool(c.Query("average")); err != nil {
		return errors.New("average must be a boolean")
	}
	if q.OpenOnly, err = parseBool(c.Query("open_only")); err != nil {
		return errors.New("open_only must be a boolean")
	}
	return nil
}

func (q seriesQuery) toQuery(loc *time.Location) (aggregate.Query, error) {
	out := aggregate.Query{Window: q.Window, WithAverage: q.Average, OpenOnly: q.OpenOnly}
	for _, d := range q.Dates {
		t, err := time.ParseInLocation("2006-01-02", d, loc)
		if err != nil {
			return out, err
		}
		out.Dates = append(out.Dates, t)
	}
	return out, nil
}

type seriesEntry struct {
	Date    string              `json:"date"`
	Points  []aggregate.Point   `json:"points"`
	Stats   aggregate.DateStats `json:"stats"`
	Summary string              `json:"summary"`
}

type seriesResponse struct {
	Window  int                      `json:"window"`
	Series  []seriesEntry            `json:"series"`
	Average []aggregate.AveragePoint `json:"average,omitempty"`
	Summary string                   `json:"summary"`
}

func newSeriesResponse(q seriesQuery, res aggregate.Result) seriesResponse {
	out := seriesResponse{Window: q.Window, Series: []seriesEntry{}, Average: res.Average}
	var summaries []string
	for _, s := range res.Series {
		points := s.Points
		if points == nil {
			points = []aggregate.Point{}
		}
		text := s.Stats.Text()
		summaries = append(summaries, text)
		out.Series = append(out.Series, seriesEntry{
			Date:    s.Date.Format("2006-01-02"),
			Points:  points,
			Stats:   s.Stats,
			Summary: text,
		})
	}
	out.Summary = strings.Join(summaries, " | ")
	return out
}

// recentQuery holds the optional range of the recent endpoint.
type recentQuery struct {
	From time.Time
	To   time.Time `validate:"gtefield=From"`
}

func (r *recentQuery) bind(c *fiber.Ctx) error {
	fromStr, toStr := c.Query("from"), c.Query("to")
	if fromStr == "" && toStr == "" {
		return nil
	}
	if fromStr == "" || toStr == "" {
		return errors.New("from and to must be given together")
	}

	var err error
	if r.From, err = parseTime(fromStr); err != nil {
		return err
	}
	if r.To, err = parseTime(toStr); err != nil {
		return err
	}
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}

func parseBool(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}
