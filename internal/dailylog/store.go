// Package dailylog persists observations as one append-only CSV file per calendar date.
package dailylog

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/baranekm/sauna-attendance/internal/record"
)

const dateLayout = "20060102"

// ErrBadName is returned when a file name does not carry a log date.
var ErrBadName = errors.New("not a daily log file name")

// Log is a handle to the daily log of one calendar date.
type Log struct {
	Date time.Time // midnight in the store's location
	Path string
}

// Store owns the directory of daily logs. It never deletes or rewrites a log.
type Store struct {
	dir     string
	prefix  string
	twoZone bool
	loc     *time.Location

	mu sync.Mutex
}

// Options configures a Store.
type Options struct {
	Dir      string
	Prefix   string         // file name prefix, default "sauna_data"
	TwoZone  bool           // write the occupancy_secondary column
	Location *time.Location // calendar used to name logs, default time.Local
}

// New creates the log directory if needed.
func New(opts Options) (*Store, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("log directory is required")
	}
	if opts.Prefix == "" {
		opts.Prefix = "sauna_data"
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	return &Store{
		dir:     opts.Dir,
		prefix:  opts.Prefix,
		twoZone: opts.TwoZone,
		loc:     opts.Location,
	}, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) Location() *time.Location { return s.loc }

// DateOf returns midnight of t's calendar date in the store's location.
func (s *Store) DateOf(t time.Time) time.Time {
	t = t.In(s.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
}

// FileName returns the log file name for date.
func (s *Store) FileName(date time.Time) string {
	return fmt.Sprintf("%s_%s.csv", s.prefix, date.In(s.loc).Format(dateLayout))
}

// ParseFileName extracts the date from a log file name produced by FileName.
func (s *Store) ParseFileName(name string) (time.Time, error) {
	base := filepath.Base(name)
	if !strings.HasPrefix(base, s.prefix+"_") || !strings.HasSuffix(base, ".csv") {
		return time.Time{}, fmt.Errorf("%w: %s", ErrBadName, name)
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(base, s.prefix+"_"), ".csv")
	// Older logs carried a full YYYYMMDDhhmmss stamp.
	if len(stamp) > len(dateLayout) {
		stamp = stamp[:len(dateLayout)]
	}
	d, err := time.ParseInLocation(dateLayout, stamp, s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrBadName, name)
	}
	return d, nil
}

// EnsureLogFor returns the log for date, creating it with its header if it does
// not exist yet. An existing log is reused; only a zero-length one gets the header.
func (s *Store) EnsureLogFor(date time.Time) (*Log, error) {
	date = s.DateOf(date)
	l := &Log{Date: date, Path: filepath.Join(s.dir, s.FileName(date))}

	s.mu.Lock()
	defer s.mu.Unlock()

	header, err := encodeRow(record.Columns(s.twoZone))
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(l.Path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		if err := s.repairEmpty(l.Path, header); err != nil {
			return nil, err
		}
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("create log %s: %w", l.Path, err)
	}

	if err := writeSync(f, header); err != nil {
		f.Close()
		// A log without its header would be reused as is on the next call.
		os.Remove(l.Path)
		return nil, fmt.Errorf("write header %s: %w", l.Path, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close %s: %w", l.Path, err)
	}

	log.Printf("dailylog: created %s", l.Path)
	return l, nil
}

// repairEmpty writes the header into an existing zero-length log, left behind
// by a creation that failed before the header reached the disk.
func (s *Store) repairEmpty(path string, header []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat log %s: %w", path, err)
	}
	if info.Size() > 0 {
		return nil
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log %s: %w", path, err)
	}
	defer f.Close()

	if err := writeSync(f, header); err != nil {
		return fmt.Errorf("write header %s: %w", path, err)
	}
	log.Printf("dailylog: wrote missing header to %s", path)
	return nil
}

// Append writes obs as one row. The row is encoded up front and handed to a
// single write on an O_APPEND descriptor, so readers see the whole row or none.
func (s *Store) Append(l *Log, obs record.Observation) error {
	if l == nil {
		return fmt.Errorf("append: nil log handle")
	}
	row, err := encodeRow(obs.Fields(s.twoZone))
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(l.Path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log %s: %w", l.Path, err)
	}
	defer f.Close()

	if err := writeSync(f, row); err != nil {
		return fmt.Errorf("append %s: %w", l.Path, err)
	}
	return nil
}

// List returns the daily logs present on disk, oldest first. Files that do not
// follow the naming scheme are ignored.
func (s *Store) List() ([]*Log, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list logs: %w", err)
	}

	var logs []*Log
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		d, err := s.ParseFileName(e.Name())
		if err != nil {
			continue
		}
		logs = append(logs, &Log{Date: d, Path: filepath.Join(s.dir, e.Name())})
	}

	sort.SliceStable(logs, func(i, j int) bool {
		if logs[i].Date.Equal(logs[j].Date) {
			return logs[i].Path < logs[j].Path
		}
		return logs[i].Date.Before(logs[j].Date)
	})
	return logs, nil
}

func writeSync(f *os.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

func encodeRow(fields []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(fields); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
