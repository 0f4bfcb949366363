package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSymmetry(t *testing.T) {
	a := []float64{1, 2, 3}
	b := []float64{-4, 5, 0.5}

	ab, err := Cosine(a, b)
	require.NoError(t, err)
	ba, err := Cosine(b, a)
	require.NoError(t, err)

	assert.InDelta(t, ab, ba, 1e-12)
}

func TestCosineSelfSimilarity(t *testing.T) {
	a := []float64{0.3, -1.7, 2.2, 0.01}

	sim, err := Cosine(a, a)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-12)
}

func TestCosineZeroMagnitude(t *testing.T) {
	zero := []float64{0, 0, 0}
	b := []float64{1, 2, 3}

	sim, err := Cosine(zero, b)
	require.NoError(t, err)
	assert.Zero(t, sim)

	sim, err = Cosine(b, zero)
	require.NoError(t, err)
	assert.Zero(t, sim)

	sim, err = Cosine(zero, zero)
	require.NoError(t, err)
	assert.Zero(t, sim)
}

func TestCosineDimensionMismatch(t *testing.T) {
	_, err := Cosine([]float64{1, 2}, []float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestCosineOrthogonal(t *testing.T) {
	sim, err := Cosine([]float64{1, 0}, []float64{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0, sim, 1e-12)
}

func TestCosineOpposite(t *testing.T) {
	sim, err := Cosine([]float64{1, 1}, []float64{-1, -1})
	require.NoError(t, err)
	assert.InDelta(t, -1, sim, 1e-12)
}
