package random

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewZeroSeedUsesDefault(t *testing.T) {
	a := New(0)
	b := New(DefaultSeed)

	assert.Equal(t, DefaultSeed, a.Seed())
	for i := 0; i < 100; i++ {
		require.Equal(t, b.Uniform(), a.Uniform())
	}
}

func TestSourceDeterministic(t *testing.T) {
	a := New(42)
	b := New(42)

	for i := 0; i < 1000; i++ {
		require.Equal(t, a.Uniform(), b.Uniform())
		require.Equal(t, a.Normal(1, 2), b.Normal(1, 2))
	}
}

func TestSourceDifferentSeedsDiffer(t *testing.T) {
	a := New(1)
	b := New(2)

	same := 0
	for i := 0; i < 100; i++ {
		if a.Uniform() == b.Uniform() {
			same++
		}
	}
	assert.Less(t, same, 5)
}

func TestUniformRange(t *testing.T) {
	s := New(7)
	for i := 0; i < 10000; i++ {
		u := s.Uniform()
		require.GreaterOrEqual(t, u, 0.0)
		require.Less(t, u, 1.0)
	}
}

func TestNormalMoments(t *testing.T) {
	s := New(11)
	const n = 20000
	sum, sumSq := 0.0, 0.0
	for i := 0; i < n; i++ {
		x := s.Normal(3, 2)
		sum += x
		sumSq += x * x
	}
	mean := sum / n
	variance := sumSq/n - mean*mean

	assert.InDelta(t, 3.0, mean, 0.1)
	assert.InDelta(t, 4.0, variance, 0.25)
}

func TestDeriveIsPureAndIndependent(t *testing.T) {
	base := New(99)

	d1 := base.Derive(1)
	d1Again := base.Derive(1)
	d2 := base.Derive(2)

	assert.Equal(t, d1.Seed(), d1Again.Seed())
	assert.NotEqual(t, d1.Seed(), d2.Seed())
	assert.NotEqual(t, base.Seed(), d1.Seed())
	assert.Equal(t, DeriveSeed(99, 1), d1.Seed())
}
