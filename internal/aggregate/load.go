package aggregate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/baranekm/sauna-attendance/internal/dailylog"
	"github.com/baranekm/sauna-attendance/internal/record"
	"github.com/baranekm/sauna-attendance/internal/schedule"
)

// Occupancy column names, newest first. Older logs used the persons_* names.
var occupancyColumns = []string{"occupancy_primary", "persons_sauna", "persons_count_sauna", "persons_count"}

var timestampLayouts = []string{
	record.TimestampLayout,
	"2006-01-02 15:04:05.999999",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

var errNoColumn = errors.New("required column missing")

// sample is one usable row of a daily log.
type sample struct {
	at      time.Time
	session string
	value   float64
}

type columns struct {
	timestamp int
	session   int
	occupancy int
}

func resolveColumns(header []string) (columns, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}

	c := columns{timestamp: -1, session: -1, occupancy: -1}
	if i, ok := idx["timestamp"]; ok {
		c.timestamp = i
	}
	if i, ok := idx["session_type"]; ok {
		c.session = i
	}
	for _, name := range occupancyColumns {
		if i, ok := idx[name]; ok {
			c.occupancy = i
			break
		}
	}

	if c.timestamp < 0 {
		return c, fmt.Errorf("%w: timestamp", errNoColumn)
	}
	if c.occupancy < 0 {
		return c, fmt.Errorf("%w: occupancy", errNoColumn)
	}
	return c, nil
}

// readLog returns the usable rows of one log. Rows with an unparsable timestamp
// or occupancy value are dropped, as is a final row cut short by a concurrent append.
func readLog(path string, loc *time.Location) ([]sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	var samples []sample
	var dropped int
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			dropped++
			continue
		}
		if err != nil {
			return samples, fmt.Errorf("read row: %w", err)
		}

		s, ok := parseRow(row, cols, loc)
		if !ok {
			dropped++
			continue
		}
		samples = append(samples, s)
	}

	if dropped > 0 {
		log.Printf("aggregate: %s: dropped %d unusable rows", path, dropped)
	}
	return samples, nil
}

func parseRow(row []string, cols columns, loc *time.Location) (sample, bool) {
	if cols.timestamp >= len(row) || cols.occupancy >= len(row) {
		return sample{}, false
	}

	at, ok := parseTimestamp(row[cols.timestamp], loc)
	if !ok {
		return sample{}, false
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(row[cols.occupancy]), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return sample{}, false
	}

	s := sample{at: at, value: v}
	if cols.session >= 0 && cols.session < len(row) {
		s.session = strings.TrimSpace(row[cols.session])
	}
	return s, true
}

func parseTimestamp(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t.In(loc), true
		}
	}
	return time.Time{}, false
}

// load concatenates the rows of the given logs in order. A log that cannot be
// read is skipped and logged; it never fails the whole load.
func load(logs []*dailylog.Log, loc *time.Location, openOnly bool) []sample {
	var all []sample
	for _, l := range logs {
		rows, err := readLog(l.Path, loc)
		if err != nil {
			log.Printf("aggregate: skipping %s: %v", l.Path, err)
		}
		for _, s := range rows {
			if openOnly && s.session == schedule.ClosedLabel {
				continue
			}
			all = append(all, s)
		}
	}
	return all
}

// repairDropouts replaces an interior zero whose neighbours are both non-zero
// with the neighbours' mean. Boundary zeros and runs of zeros are kept.
func repairDropouts(samples []sample) {
	if len(samples) < 3 {
		return
	}
	// Decide on the original values so a repair never feeds the next decision.
	prev := samples[0].value
	for i := 1; i < len(samples)-1; i++ {
		cur := samples[i].value
		next := samples[i+1].value
		if cur == 0 && prev != 0 && next != 0 {
			samples[i].value = (prev + next) / 2
		}
		prev = cur
	}
}
