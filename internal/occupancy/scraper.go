package occupancy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/baranekm/sauna-attendance/internal/httpx"
)

var (
	// ErrElementNotFound is returned when the configured element is missing from the page.
	ErrElementNotFound = errors.New("occupancy element not found")
	// ErrNotANumber is returned when the element text is not a count.
	ErrNotANumber = errors.New("occupancy element is not a number")
)

// PageConfig locates the counters on the occupancy page.
type PageConfig struct {
	URL           string `validate:"required,url"`
	ContainerID   string `validate:"required"`
	PrimaryPath   string `validate:"required"`
	SecondaryPath string // empty for single-zone facilities
}

// PageReader scrapes counts from an HTML page.
type PageReader struct {
	cfg       PageConfig
	primary   []step
	secondary []step
	upstream  *httpx.Upstream
}

// NewPageReader validates the element paths and builds a reader.
func NewPageReader(client *http.Client, cfg PageConfig) (*PageReader, error) {
	primary, err := parsePath(cfg.PrimaryPath)
	if err != nil {
		return nil, fmt.Errorf("primary path: %w", err)
	}
	r := &PageReader{
		cfg:      cfg,
		primary:  primary,
		upstream: httpx.NewUpstream("occupancy", client),
	}
	if cfg.SecondaryPath != "" {
		if r.secondary, err = parsePath(cfg.SecondaryPath); err != nil {
			return nil, fmt.Errorf("secondary path: %w", err)
		}
	}
	return r, nil
}

// Read fetches the page and extracts the configured counters.
func (r *PageReader) Read(ctx context.Context) (Counts, error) {
	resp, err := r.upstream.Get(ctx, r.cfg.URL)
	if err != nil {
		return Counts{}, err
	}
	defer resp.Body.Close()

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return Counts{}, fmt.Errorf("parse occupancy page: %w", err)
	}
	return r.extract(doc)
}

func (r *PageReader) extract(doc *html.Node) (Counts, error) {
	container := findByID(doc, r.cfg.ContainerID)
	if container == nil {
		return Counts{}, fmt.Errorf("%w: #%s", ErrElementNotFound, r.cfg.ContainerID)
	}

	var c Counts
	var err error
	if c.Primary, err = countAt(container, r.primary, r.cfg.PrimaryPath); err != nil {
		return Counts{}, err
	}
	if r.secondary != nil {
		if c.Secondary, err = countAt(container, r.secondary, r.cfg.SecondaryPath); err != nil {
			return Counts{}, err
		}
		c.HasSecondary = true
	}
	return c, nil
}

func countAt(container *html.Node, steps []step, raw string) (int, error) {
	n := resolve(container, steps)
	if n == nil {
		return 0, fmt.Errorf("%w: %s", ErrElementNotFound, raw)
	}
	return parseCount(textContent(n))
}

// parseCount accepts "12", " 12 " and "12 osob"; the first token must be a non-negative integer.
func parseCount(text string) (int, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0, fmt.Errorf("%w: empty", ErrNotANumber)
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrNotANumber, text)
	}
	return n, nil
}
