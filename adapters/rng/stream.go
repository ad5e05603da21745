// Package rng provides named, seeded random streams so every sampling
// operation owns its randomness explicitly instead of touching process-wide
// random state.
package rng

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/rand"
	"strings"

	"promptlab/ports"
)

type adapter struct{}

// New creates the RNG adapter.
func New() ports.RNG {
	return adapter{}
}

// SeededStream derives a deterministic stream from the base seed and the
// stream name. Mixing the name in keeps two differently named operations
// with the same base seed from consuming identical sequences.
func (adapter) SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("rng stream name cannot be empty")
	}
	sum := sha256.Sum256([]byte(name))
	mixed := seed ^ int64(binary.BigEndian.Uint64(sum[:8]))
	return rand.New(rand.NewSource(mixed)), nil
}

// ValidateSeed draws len(expected) floats from a fresh stream and compares
// them against the expected sequence.
func (a adapter) ValidateSeed(ctx context.Context, name string, seed int64, expected []float64) error {
	stream, err := a.SeededStream(ctx, name, seed)
	if err != nil {
		return err
	}
	for i, want := range expected {
		got := stream.Float64()
		if got != want {
			return fmt.Errorf("seed validation failed for %q: draw %d got %v want %v", name, i, got, want)
		}
	}
	return nil
}
