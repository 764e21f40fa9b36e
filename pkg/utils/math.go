package utils

import (
	"errors"
	"fmt"
	"math"
)

// NormalizeL2 normalizes the slice in place to unit L2 norm.
// If the norm is zero, the slice is unchanged.
func NormalizeL2(x []float32) {
	var sum float32
	for _, v := range x {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := float32(1.0 / math.Sqrt(float64(sum)))
	for i := range x {
		x[i] *= norm
	}
}

// Norm returns the L2 norm of x computed in float64.
func Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// Dot returns the dot product of equal-length vectors in float64.
func Dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// ErrZeroVector is returned when a cosine is asked of a zero-magnitude vector.
var ErrZeroVector = errors.New("zero magnitude vector")

// CosineSimilarity returns the cosine of the angle between a and b, in [-1, 1].
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d != %d", len(a), len(b))
	}
	na, nb := Norm(a), Norm(b)
	if na == 0 || nb == 0 {
		return 0, ErrZeroVector
	}
	return ClampUnit(Dot(a, b) / (na * nb)), nil
}

// ClampUnit clamps float rounding drift into [-1, 1].
func ClampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

// IsFinite reports whether every component of x is a finite number.
func IsFinite(x []float32) bool {
	for _, v := range x {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
