package fallback

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorIsDeterministic(t *testing.T) {
	e := New()
	a := e.Vector("carbon emissions fell sharply this quarter")
	b := e.Vector("carbon emissions fell sharply this quarter")
	require.Equal(t, a, b, "same input must yield bit-identical vectors")
}

func TestVectorDimension(t *testing.T) {
	e := New()
	for _, text := range []string{"", "x", "a longer piece of text with several words"} {
		assert.Len(t, e.Vector(text), 768)
	}
}

func TestVectorIsUnitNormalized(t *testing.T) {
	e := New()
	vec := e.Vector("world leaders reached a landmark agreement")
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-3)
}

func TestEmptyTextYieldsZeroVector(t *testing.T) {
	e := New()
	for _, v := range e.Vector("") {
		require.Zero(t, v)
	}
}

func TestDifferentTextsDiffer(t *testing.T) {
	e := New()
	a := e.Vector("climate summit agreement")
	b := e.Vector("stock markets tumbled on Friday")
	assert.NotEqual(t, a, b)
}

func TestBatchPreservesOrder(t *testing.T) {
	e := New()
	texts := []string{"first text here", "second text here", "third text here"}
	batch := e.Batch(texts)
	require.Len(t, batch, 3)
	for i, text := range texts {
		assert.Equal(t, e.Vector(text), batch[i])
	}
}
