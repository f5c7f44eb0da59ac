package schedule

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// File is the YAML representation of a timetable.
//
//	days:
//	  monday: {status: closed}
//	  tuesday:
//	    status: open
//	    sessions:
//	      - {start: "14:00", end: "21:30", label: shared sauna}
//	holidays:
//	  - {month: 12, day: 24, name: Christmas Eve}
type File struct {
	Days     map[string]FileDay `yaml:"days"`
	Holidays []FileHoliday      `yaml:"holidays,omitempty"` // empty = Czech national holidays
}

type FileDay struct {
	Status   string        `yaml:"status"`
	Sessions []FileSession `yaml:"sessions,omitempty"`
}

type FileSession struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
	Label string `yaml:"label"`
}

type FileHoliday struct {
	Month int    `yaml:"month"`
	Day   int    `yaml:"day"`
	Name  string `yaml:"name"`
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// LoadFile reads a YAML timetable from path.
func LoadFile(path string) (*Timetable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timetable: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML timetable.
func Parse(data []byte) (*Timetable, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse timetable YAML: %w", err)
	}
	return f.Timetable()
}

// Timetable converts the decoded file into a validated Timetable.
func (f File) Timetable() (*Timetable, error) {
	if len(f.Days) == 0 {
		return nil, fmt.Errorf("timetable defines no days")
	}

	days := make(map[time.Weekday]Day, len(f.Days))
	for name, fd := range f.Days {
		wd, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", name)
		}

		switch strings.ToLower(fd.Status) {
		case "closed":
			days[wd] = Day{Closed: true}
			continue
		case "open", "":
		default:
			return nil, fmt.Errorf("%s: unknown status %q", name, fd.Status)
		}

		var d Day
		for _, s := range fd.Sessions {
			start, err := ParseClock(s.Start)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			end, err := ParseClock(s.End)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			d.Windows = append(d.Windows, Window{Start: start, End: end, Label: s.Label})
		}
		days[wd] = d
	}

	holidays := CzechHolidays()
	if len(f.Holidays) > 0 {
		holidays = make(Holidays, len(f.Holidays))
		for _, h := range f.Holidays {
			if h.Month < 1 || h.Month > 12 || h.Day < 1 || h.Day > 31 {
				return nil, fmt.Errorf("invalid holiday date %d/%d", h.Month, h.Day)
			}
			holidays[MonthDay{Month: time.Month(h.Month), Day: h.Day}] = h.Name
		}
	}

	return New(days, holidays)
}
