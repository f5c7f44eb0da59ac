package aggregate

import (
	"fmt"
	"sort"
	"time"
)

// DateInfo describes one calendar date that has data.
type DateInfo struct {
	Date    time.Time    `json:"-"`
	Value   string       `json:"value"`
	Weekday time.Weekday `json:"-"`
	Week    int          `json:"week"`
	Label   string       `json:"label"`
}

// Dates lists the distinct dates found in the logs' rows, oldest first.
// A row's own timestamp decides its date, not the file it sits in.
func (a *Aggregator) Dates() ([]DateInfo, error) {
	logs, err := a.logs.List()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]time.Time)
	for _, s := range load(logs, a.logs.Location(), false) {
		key := s.at.Format(dateLayout)
		if _, ok := seen[key]; !ok {
			seen[key] = time.Date(s.at.Year(), s.at.Month(), s.at.Day(), 0, 0, 0, 0, s.at.Location())
		}
	}

	out := make([]DateInfo, 0, len(seen))
	for key, d := range seen {
		_, week := d.ISOWeek()
		out = append(out, DateInfo{
			Date:    d,
			Value:   key,
			Weekday: d.Weekday(),
			Week:    week,
			Label:   fmt.Sprintf("%s (%s, Week %d)", key, d.Weekday(), week),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
