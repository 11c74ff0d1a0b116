// Package random provides the seedable draw source owned by each chain.
//
// A Source wraps a PCG generator from math/rand/v2. It is not safe for
// concurrent use; independent chains get independent sources through Derive.
package random

import (
	"math/rand/v2"
)

// DefaultSeed is used when callers pass seed == 0.
const DefaultSeed int64 = 1

// Source draws uniform and normal variates from a deterministic stream.
type Source struct {
	seed int64
	rng  *rand.Rand
}

// New returns a Source seeded with seed. Seed 0 maps to DefaultSeed so that
// a zero-valued configuration is still reproducible.
func New(seed int64) *Source {
	if seed == 0 {
		seed = DefaultSeed
	}
	return &Source{
		seed: seed,
		rng:  rand.New(rand.NewPCG(uint64(seed), mix(uint64(seed)))),
	}
}

// Seed returns the effective seed of the stream
func (s *Source) Seed() int64 {
	return s.seed
}

// Uniform returns a draw from [0, 1)
func (s *Source) Uniform() float64 {
	return s.rng.Float64()
}

// Normal returns a draw from N(mean, std²)
func (s *Source) Normal(mean, std float64) float64 {
	return mean + std*s.rng.NormFloat64()
}

// Derive returns an independent stream identified by stream.
// The parent is not advanced, so Derive(i) is a pure function of (seed, i).
func (s *Source) Derive(stream uint64) *Source {
	return New(DeriveSeed(s.seed, stream))
}

// DeriveSeed mixes a parent seed and a stream id into a new non-zero seed.
func DeriveSeed(parent int64, stream uint64) int64 {
	x := mix(uint64(parent) ^ (stream + 0x9e3779b97f4a7c15))
	if x == 0 {
		x = uint64(DefaultSeed)
	}
	return int64(x)
}

// mix is the SplitMix64 finalizer.
func mix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
