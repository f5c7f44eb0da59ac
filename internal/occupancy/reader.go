// Package occupancy reads the live visitor count published by the facility.
package occupancy

import "context"

// Counts is one occupancy reading. Secondary is only meaningful when HasSecondary is set
// (two-zone facilities, e.g. sauna and pool).
type Counts struct {
	Primary      int
	Secondary    int
	HasSecondary bool
}

// Reader returns the current occupancy or an error. Implementations bound their own
// latency with ctx.
type Reader interface {
	Read(ctx context.Context) (Counts, error)
}

// ReaderFunc adapts a function to Reader.
type ReaderFunc func(ctx context.Context) (Counts, error)

func (f ReaderFunc) Read(ctx context.Context) (Counts, error) {
	return f(ctx)
}
