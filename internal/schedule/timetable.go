package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Status reports whether the facility is open at a given instant.
type Status string

const (
	Open   Status = "open"
	Closed Status = "closed"
)

// ClosedLabel is the session label recorded when the facility is shut.
const ClosedLabel = "closed"

// Clock is a time of day with minute resolution (minutes since midnight).
type Clock int

// ParseClock parses an "HH:MM" string.
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q: %w", s, err)
	}
	return Clock(t.Hour()*60 + t.Minute()), nil
}

// ClockOf truncates t to its minute of day.
func ClockOf(t time.Time) Clock {
	return Clock(t.Hour()*60 + t.Minute())
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Window is a labelled session interval. Both bounds are inclusive.
type Window struct {
	Start Clock
	End   Clock
	Label string
}

func (w Window) contains(c Clock) bool {
	return w.Start <= c && c <= w.End
}

// Day is the timetable entry for one weekday. A day with no windows is closed.
type Day struct {
	Closed  bool
	Windows []Window
}

// Timetable maps each weekday to its sessions.
type Timetable struct {
	days     map[time.Weekday]Day
	holidays Holidays
}

// New builds a timetable. Weekdays missing from days are treated as closed.
func New(days map[time.Weekday]Day, holidays Holidays) (*Timetable, error) {
	tt := &Timetable{
		days:     make(map[time.Weekday]Day, len(days)),
		holidays: holidays,
	}
	for wd, d := range days {
		if err := validateDay(d); err != nil {
			return nil, fmt.Errorf("%s: %w", wd, err)
		}
		tt.days[wd] = d
	}
	return tt, nil
}

func validateDay(d Day) error {
	for i, w := range d.Windows {
		if w.End < w.Start {
			return fmt.Errorf("window %s-%s ends before it starts", w.Start, w.End)
		}
		if w.Label == "" {
			return fmt.Errorf("window %s-%s has no label", w.Start, w.End)
		}
		// Adjacent windows may share their boundary minute.
		if i > 0 && w.Start < d.Windows[i-1].End {
			return fmt.Errorf("window %s-%s overlaps or precedes %s-%s",
				w.Start, w.End, d.Windows[i-1].Start, d.Windows[i-1].End)
		}
	}
	return nil
}

// Classify reports whether t falls inside an open session and, if so, its label.
// A shared boundary minute resolves to the earlier window.
func (tt *Timetable) Classify(t time.Time) (Status, string) {
	day, ok := tt.days[t.Weekday()]
	if !ok || day.Closed {
		return Closed, ClosedLabel
	}
	c := ClockOf(t)
	for _, w := range day.Windows {
		if w.contains(c) {
			return Open, w.Label
		}
	}
	return Closed, ClosedLabel
}

// IsHoliday returns the holiday name for t's month and day.
func (tt *Timetable) IsHoliday(t time.Time) (string, bool) {
	return tt.holidays.Lookup(t)
}

// Default returns the facility timetable the service was first deployed with.
func Default() *Timetable {
	shared := "shared sauna"
	afternoon := []Window{{Start: 14 * 60, End: 21*60 + 30, Label: shared}}
	weekend := []Window{{Start: 12 * 60, End: 21*60 + 30, Label: shared}}

	tt, err := New(map[time.Weekday]Day{
		time.Monday:  {Closed: true},
		time.Tuesday: {Windows: afternoon},
		time.Wednesday: {Windows: []Window{
			{Start: 14 * 60, End: 17*60 + 30, Label: shared},
			{Start: 17*60 + 30, End: 19*60 + 30, Label: "women only"},
			{Start: 19*60 + 30, End: 21*60 + 30, Label: "men only"},
		}},
		time.Thursday: {Windows: afternoon},
		time.Friday:   {Windows: afternoon},
		time.Saturday: {Windows: weekend},
		time.Sunday:   {Windows: weekend},
	}, CzechHolidays())
	if err != nil {
		panic(err)
	}
	return tt
}
