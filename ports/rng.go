package ports

import (
	"context"
	"math/rand"
)

// RNG provides seeded random number generation for deterministic operations
type RNG interface {
	// SeededStream creates a deterministic random number generator for a named
	// operation. The same name and seed always produce the same stream, so a
	// design's sampling is reproducible and independent designs never share
	// process-wide random state.
	SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error)

	// ValidateSeed ensures the seed produces expected deterministic results
	ValidateSeed(ctx context.Context, name string, seed int64, expected []float64) error
}
