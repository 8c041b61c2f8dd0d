package ports

import (
	"context"
	"math/rand"
)

// RNGPort provides seeded random number generation for deterministic
// operations. All randomness in the pipeline flows through streams derived
// from one explicit base seed; there is no hidden global state.
type RNGPort interface {
	// SeededStream creates a deterministic random number generator for a named operation
	SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error)

	// Stream creates a deterministic RNG stream for a scoped stage and key.
	// The pipeline scopes streams by run fingerprint, so fold shuffles and
	// per-tree bootstraps replay identically for equal inputs even under a
	// fresh run ID.
	Stream(ctx context.Context, scope, stageName, key string, baseSeed int64) (*rand.Rand, error)

	// ValidateSeed ensures the seed produces expected deterministic results
	ValidateSeed(ctx context.Context, name string, seed int64, expected []float64) error
}
