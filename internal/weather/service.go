package weather

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// ErrNoReadings is returned when every provider failed for a location.
var ErrNoReadings = errors.New("no successful weather readings")

// Service fans a current-weather request out to its providers and merges the results.
type Service struct {
	providers []Provider
}

// NewService creates a new Service.
func NewService(providers []Provider) *Service {
	return &Service{providers: providers}
}

// Current queries providers one after another and aggregates the successful
// readings. Individual provider failures are logged and skipped.
func (s *Service) Current(ctx context.Context, loc Location) (Reading, error) {
	if len(s.providers) == 0 {
		return Reading{}, fmt.Errorf("no weather providers configured")
	}

	var (
		readings []ProviderReading
		errs     []error
	)
	for _, p := range s.providers {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		r, err := p.Fetch(ctx, loc)
		if err != nil {
			log.Printf("weather: provider %s fetch failed for %s: %v", p.Name(), loc.Key(), err)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		readings = append(readings, r)
	}

	if len(readings) == 0 {
		return Reading{}, fmt.Errorf("%w for %s: %w", ErrNoReadings, loc.Key(), errors.Join(errs...))
	}

	return AggregateReadings(loc, readings), nil
}
