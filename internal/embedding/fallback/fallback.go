// Package fallback derives embedding vectors locally and deterministically.
// It keeps the pipeline operational when the remote embedding provider is
// unreachable or unconfigured. The formula is heuristic and empirically
// tuned; the constants are kept literal for behavioral compatibility.
package fallback

import (
	"math"
	"strings"

	"newsrag/internal/domain"
)

// Embedder computes a fixed 768-dimension vector from the text alone. Two
// calls with the same input produce bit-identical output.
type Embedder struct{}

func New() *Embedder { return &Embedder{} }

// Dimension reports the fixed output dimensionality.
func (e *Embedder) Dimension() int { return domain.EmbeddingDimension }

// Vector maps text to an L2-normalized 768-dimension vector. Each component
// mixes the length of a word and a character code selected by the component
// index with smooth positional terms, so nearby texts land near each other
// while the vector stays cheap to compute. Empty text yields the zero vector.
func (e *Embedder) Vector(text string) []float32 {
	vec := make([]float32, domain.EmbeddingDimension)
	words := strings.Fields(text)
	chars := []rune(text)
	if len(words) == 0 || len(chars) == 0 {
		return vec
	}
	textLen := float64(len(text))
	for i := range vec {
		wordLen := float64(len(words[i%len(words)]))
		charCode := float64(chars[i%len(chars)])
		v := wordLen * charCode *
			math.Sin(float64(i)/10) *
			math.Cos(float64(i)*0.1) *
			math.Sin(textLen*0.001)
		vec[i] = float32(v)
	}
	normalize(vec)
	return vec
}

// Batch computes one vector per input text, order-preserving.
func (e *Embedder) Batch(texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.Vector(t)
	}
	return out
}

// normalize divides every component by the Euclidean norm in place. A zero
// norm is treated as one so empty input stays a zero vector instead of NaN.
func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		norm = 1
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
}
