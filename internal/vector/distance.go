package vector

// SquaredL2 returns the squared Euclidean distance between two vectors.
// Callers guarantee equal lengths.
func SquaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return sum
}

// CosineFromSquaredL2 recovers cosine similarity from the squared L2 distance
// of two unit-length vectors: |a-b|^2 = 2 - 2*cos(a,b). The result is clamped
// to [0,1]. This is the single similarity convention used across both index
// kinds; all embedders normalize their output to unit length.
func CosineFromSquaredL2(d float64) float64 {
	sim := 1 - d/2
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

// InnerProduct returns the inner product of two vectors (equals cosine
// similarity for unit-length vectors). Callers guarantee equal lengths.
func InnerProduct(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i] * b[i])
	}
	return dot
}
