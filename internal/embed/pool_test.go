package embed

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeanPoolMasksPadding(t *testing.T) {
	// seqLen=3, dim=2: token0=(1,1), token1=(3,3) masked out, token2=(5,5)
	hidden := []float32{1, 1, 3, 3, 5, 5}
	mask := []int64{1, 0, 1}

	pooled := MeanPool(hidden, mask, 3, 2)
	assert.Equal(t, []float32{3, 3}, pooled)
}

func TestMeanPoolAllMasked(t *testing.T) {
	hidden := []float32{1, 1, 2, 2}
	mask := []int64{0, 0}

	pooled := MeanPool(hidden, mask, 2, 2)
	assert.Equal(t, []float32{0, 0}, pooled)
}

func TestL2NormalizeUnitNorm(t *testing.T) {
	vec := []float32{3, 4}
	out := L2Normalize(vec)

	assert.InDelta(t, 1.0, Norm2(out), 1e-6)
	assert.InDelta(t, 0.6, out[0], 1e-6)
	assert.InDelta(t, 0.8, out[1], 1e-6)
}

func TestL2NormalizeZeroVectorUnchanged(t *testing.T) {
	vec := []float32{0, 0, 0}
	out := L2Normalize(vec)
	assert.Equal(t, []float32{0, 0, 0}, out)
}

func TestNorm2WithinTolerance(t *testing.T) {
	vec := L2Normalize([]float32{1, 2, 3, 4, 5})
	assert.True(t, math.Abs(Norm2(vec)-1) < 1e-4)
}
