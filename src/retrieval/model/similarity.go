package model

import "math"

// CosineSimilarity scores two embeddings in [-1, 1]. Vectors of different
// widths are compared over their shared prefix; an empty or zero-norm vector
// scores 0. Accumulation runs in float64 so 768-wide float32 vectors do not
// lose precision.
func CosineSimilarity(a, b []float32) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	var dot, aa, bb float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		aa += x * x
		bb += y * y
	}
	if aa == 0 || bb == 0 {
		return 0
	}
	return dot / math.Sqrt(aa*bb)
}
