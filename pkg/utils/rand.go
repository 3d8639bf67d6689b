package utils

import (
	"math/rand"
	"sync"
	"time"
)

// RandSource is a seedable random number generator safe for concurrent use.
// It satisfies ising.Source.
type RandSource struct {
	mu   sync.Mutex
	rng  *rand.Rand
	seed int64
}

// NewRandSource creates a new random source with the given seed.
// A zero seed means "seed from the wall clock".
func NewRandSource(seed int64) *RandSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandSource{
		rng:  rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Seed returns the seed the source was created with (after wall-clock resolution)
func (r *RandSource) Seed() int64 {
	return r.seed
}

// Float64 returns a random float64 in [0.0, 1.0)
func (r *RandSource) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

// Intn returns a random int in [0, n)
func (r *RandSource) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

// DeriveSeed returns the seed for the index-th independent stream of a sweep.
// A zero base keeps wall-clock seeding for every stream.
func DeriveSeed(base int64, index int) int64 {
	if base == 0 {
		return 0
	}
	return base + int64(index)
}
