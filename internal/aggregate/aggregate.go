// Package aggregate rebuilds comparable multi-day occupancy series from the
// daily logs: load, dropout repair, time-of-day alignment, smoothing and
// summary statistics.
package aggregate

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/baranekm/sauna-attendance/internal/dailylog"
	"github.com/baranekm/sauna-attendance/internal/metrics"
	"github.com/baranekm/sauna-attendance/internal/record"
)

const dateLayout = "2006-01-02"

// ErrInvalidWindow is returned for a smoothing window below one sample.
var ErrInvalidWindow = errors.New("smoothing window must be at least 1")

// Logs is the read side of the daily log store.
type Logs interface {
	List() ([]*dailylog.Log, error)
	Location() *time.Location
}

// Query selects the dates to compare. Dates are calendar dates; only their
// year, month and day are used.
type Query struct {
	Dates       []time.Time
	Window      int
	WithAverage bool
	OpenOnly    bool
}

// TimeOfDay is the alignment key: seconds since local midnight.
type TimeOfDay int

func timeOfDay(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

func (t TimeOfDay) String() string {
	s := int(t)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, s/60%60, s%60)
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(text []byte) error {
	var h, m, s int
	if _, err := fmt.Sscanf(string(text), "%d:%d:%d", &h, &m, &s); err != nil {
		return fmt.Errorf("invalid time of day %q: %w", text, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 || s < 0 || s > 59 {
		return fmt.Errorf("invalid time of day %q", text)
	}
	*t = TimeOfDay(h*3600 + m*60 + s)
	return nil
}

// Point is one aligned sample of a date. Smoothed is missing for the first
// Window-1 points.
type Point struct {
	Time     TimeOfDay           `json:"time"`
	Raw      float64             `json:"raw"`
	Smoothed record.Opt[float64] `json:"smoothed"`
}

// AveragePoint is the cross-date mean at one time-of-day slot over the dates
// that have a sample there.
type AveragePoint struct {
	Time  TimeOfDay `json:"time"`
	Value float64   `json:"value"`
	Dates int       `json:"dates"`
}

// DateStats summarises one requested date.
type DateStats struct {
	Date    time.Time `json:"-"`
	HasData bool      `json:"hasData"`
	Mean    float64   `json:"mean"`
	Peak    float64   `json:"peak"`
}

// Text renders the statistics the way the dashboard shows them.
func (s DateStats) Text() string {
	day := s.Date.Format(dateLayout)
	if !s.HasData {
		return fmt.Sprintf("No data available for %s.", day)
	}
	return fmt.Sprintf("%s - Average: %.2f, Peak: %s", day, s.Mean, strconv.FormatFloat(s.Peak, 'f', -1, 64))
}

// Series is the aligned and smoothed series of one requested date.
type Series struct {
	Date   time.Time `json:"-"`
	Points []Point   `json:"points"`
	Stats  DateStats `json:"stats"`
}

// Result holds one Series per requested date, in request order.
type Result struct {
	Series  []Series       `json:"series"`
	Average []AveragePoint `json:"average,omitempty"`
}

// Empty reports whether no requested date had data.
func (r Result) Empty() bool {
	for _, s := range r.Series {
		if s.Stats.HasData {
			return false
		}
	}
	return true
}

// Aggregator answers aggregation queries against the logs on disk. It keeps
// no state between calls.
type Aggregator struct {
	logs    Logs
	metrics *metrics.Metrics
}

func New(logs Logs, m *metrics.Metrics) *Aggregator {
	return &Aggregator{logs: logs, metrics: m}
}

// Aggregate runs the query. An empty date set or a directory without logs
// gives an empty Result and no error.
func (a *Aggregator) Aggregate(q Query) (Result, error) {
	if q.Window < 1 {
		return Result{}, fmt.Errorf("%w: got %d", ErrInvalidWindow, q.Window)
	}
	start := time.Now()
	defer func() { a.metrics.Aggregate(time.Since(start).Seconds()) }()

	dates := uniqueDates(q.Dates)
	if len(dates) == 0 {
		return Result{}, nil
	}

	logs, err := a.logs.List()
	if err != nil {
		return Result{}, err
	}
	if len(logs) == 0 {
		return Result{}, nil
	}

	// Repair runs over every log so a date's result never depends on which
	// other dates were requested. Rows are then assigned by their own timestamp.
	samples := load(logs, a.logs.Location(), q.OpenOnly)
	repairDropouts(samples)

	byDate := make(map[string][]sample)
	for _, s := range samples {
		key := s.at.Format(dateLayout)
		byDate[key] = append(byDate[key], s)
	}

	var res Result
	for _, d := range dates {
		points := align(byDate[d.Format(dateLayout)])
		smooth(points, q.Window)
		res.Series = append(res.Series, Series{
			Date:   d,
			Points: points,
			Stats:  stats(d, points),
		})
	}

	if q.WithAverage {
		res.Average = average(res.Series)
	}
	return res, nil
}

func uniqueDates(in []time.Time) []time.Time {
	seen := make(map[string]bool, len(in))
	var out []time.Time
	for _, d := range in {
		d = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
		key := d.Format(dateLayout)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	return out
}

// align keys a date's samples by time of day in ascending order. When a date
// has two samples with the same key the later one wins.
func align(samples []sample) []Point {
	if len(samples) == 0 {
		return nil
	}
	slot := make(map[TimeOfDay]int, len(samples))
	points := make([]Point, 0, len(samples))
	for _, s := range samples {
		key := timeOfDay(s.at)
		if i, ok := slot[key]; ok {
			points[i].Raw = s.value
			continue
		}
		slot[key] = len(points)
		points = append(points, Point{Time: key, Raw: s.value})
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Time < points[j].Time })
	return points
}

// smooth sets the trailing moving average over window samples.
func smooth(points []Point, window int) {
	for i := range points {
		if i+1 < window {
			points[i].Smoothed = record.None[float64]()
			continue
		}
		var sum float64
		for _, p := range points[i+1-window : i+1] {
			sum += p.Raw
		}
		points[i].Smoothed = record.Some(sum / float64(window))
	}
}

func stats(date time.Time, points []Point) DateStats {
	st := DateStats{Date: date}
	if len(points) == 0 {
		return st
	}
	st.HasData = true
	st.Peak = points[0].Raw
	var sum float64
	for _, p := range points {
		sum += p.Raw
		if p.Raw > st.Peak {
			st.Peak = p.Raw
		}
	}
	st.Mean = sum / float64(len(points))
	return st
}

// average computes the cross-date mean of raw values per time-of-day slot.
func average(series []Series) []AveragePoint {
	type acc struct {
		sum float64
		n   int
	}
	slots := make(map[TimeOfDay]*acc)
	for _, s := range series {
		for _, p := range s.Points {
			a, ok := slots[p.Time]
			if !ok {
				a = &acc{}
				slots[p.Time] = a
			}
			a.sum += p.Raw
			a.n++
		}
	}
	if len(slots) == 0 {
		return nil
	}

	out := make([]AveragePoint, 0, len(slots))
	for t, a := range slots {
		out = append(out, AveragePoint{Time: t, Value: a.sum / float64(a.n), Dates: a.n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}
