// Package vecmath provides the vector primitives shared by the consolidator
// and the vector store.
//
// Pairwise operations zip to the shorter operand, so a 16-dim context probe
// scores against the matching prefix of a 128-dim embedding.
package vecmath

import "math"

// Dot returns the dot product over the common prefix of a and b.
func Dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
	}
	return dot
}

// Norm returns the L2 norm of v.
func Norm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Normalize scales v to unit L2 norm in place. A zero vector is left as-is.
func Normalize(v []float64) {
	mag := Norm(v)
	if mag == 0 {
		return
	}
	for i := range v {
		v[i] /= mag
	}
}

// Cosine returns the cosine similarity of a and b, or 0 when either has zero
// magnitude. The dot product runs over the common prefix; the magnitudes use
// the full vectors.
func Cosine(a, b []float64) float64 {
	magA := Norm(a)
	magB := Norm(b)
	if magA == 0 || magB == 0 {
		return 0
	}
	return Dot(a, b) / (magA * magB)
}

// Euclidean returns the Euclidean distance over the common prefix of a and b.
func Euclidean(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
