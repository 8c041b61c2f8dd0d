package rng

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"gohar/domain/core"
)

// Adapter implements the RNGPort with deterministic stream derivation. Each
// named stream mixes its name into the base seed so distinct stages draw
// from distinct, reproducible sequences.
type Adapter struct{}

// New creates an RNG adapter
func New() *Adapter {
	return &Adapter{}
}

// SeededStream creates a deterministic random number generator for a named operation
func (a *Adapter) SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error) {
	return rand.New(rand.NewSource(deriveSeed(seed, name))), nil
}

// Stream creates a deterministic RNG stream for a scoped stage and key
func (a *Adapter) Stream(ctx context.Context, scope, stageName, key string, baseSeed int64) (*rand.Rand, error) {
	return rand.New(rand.NewSource(deriveSeed(baseSeed, scope, stageName, key))), nil
}

// ValidateSeed draws from the named stream and compares against expected
// values. A mismatch means the seed or the derivation changed.
func (a *Adapter) ValidateSeed(ctx context.Context, name string, seed int64, expected []float64) error {
	r, err := a.SeededStream(ctx, name, seed)
	if err != nil {
		return err
	}
	for i, want := range expected {
		got := r.Float64()
		if math.Abs(got-want) > 1e-12 {
			return fmt.Errorf("%w: stream %s draw %d produced %v, expected %v",
				core.ErrSeedMismatch, name, i, got, want)
		}
	}
	return nil
}

// deriveSeed folds stream name parts into the base seed. Empty parts are
// skipped so optional keys do not shift the derivation.
func deriveSeed(base int64, parts ...string) int64 {
	seed := base
	for _, p := range parts {
		if p != "" {
			seed = int64(hashString(p)) + seed
		}
	}
	return seed
}

// hashString creates a simple hash for deterministic seeding
func hashString(s string) uint32 {
	var hash uint32 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint32(c) // djb2 algorithm
	}
	return hash
}
