package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/baranekm/sauna-attendance/internal/record"
)

var (
	// ErrNotFound is returned when no observation is buffered.
	ErrNotFound = errors.New("no observations buffered")
)

// MemoryStore is a concurrency-safe buffer of the most recent observations.
// It backs the "recent" and "latest" API views; daily logs remain the record of truth.
type MemoryStore struct {
	mu sync.RWMutex

	history []record.Observation

	// retention configuration
	maxHistory int           // max number of observations kept
	maxAge     time.Duration // max age relative to the newest observation
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		maxHistory: maxHistory,
		maxAge:     maxAge,
	}
}

// Publish appends an observation and enforces retention.
func (s *MemoryStore) Publish(_ context.Context, obs record.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, obs)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(s.history) > s.maxHistory {
		over := len(s.history) - s.maxHistory
		s.history = append([]record.Observation(nil), s.history[over:]...)
	}

	// Enforce retention by age.
	if s.maxAge > 0 {
		cutoff := obs.Timestamp.Add(-s.maxAge)
		i := 0
		for ; i < len(s.history); i++ {
			if !s.history[i].Timestamp.Before(cutoff) {
				break
			}
		}
		if i > 0 {
			s.history = append([]record.Observation(nil), s.history[i:]...)
		}
	}
	return nil
}

// Latest returns the most recent observation.
func (s *MemoryStore) Latest(_ context.Context) (record.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.history) == 0 {
		return record.Observation{}, ErrNotFound
	}
	return s.history[len(s.history)-1], nil
}

// Range returns all buffered observations between from and to (inclusive).
func (s *MemoryStore) Range(from, to time.Time) ([]record.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []record.Observation
	for _, obs := range s.history {
		if !obs.Timestamp.Before(from) && !obs.Timestamp.After(to) {
			result = append(result, obs)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}

// Recent returns a copy of everything buffered, oldest first.
func (s *MemoryStore) Recent() []record.Observation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]record.Observation(nil), s.history...)
}
