package rag

import "math"

// CosineSimilarity returns the normalized dot product of a and b in [-1, 1].
// Accumulation is done in float64 to limit rounding drift over long vectors.
// A zero vector or a length mismatch yields 0 — such pairs carry no signal
// and must never outrank a real match.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
