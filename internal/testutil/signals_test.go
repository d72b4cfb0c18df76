package testutil

import (
	"math"
	"testing"
)

func TestGaussianNoiseReproducible(t *testing.T) {
	a := GaussianNoise(7, 0.01, 256)
	b := GaussianNoise(7, 0.01, 256)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("non-deterministic at index %d", i)
		}
	}
}

func TestGaussianNoiseSpread(t *testing.T) {
	n := GaussianNoise(1, 0.5, 20000)
	var sumSq float64
	for _, v := range n {
		sumSq += v * v
	}
	sigma := math.Sqrt(sumSq / float64(len(n)))
	if math.Abs(sigma-0.5) > 0.02 {
		t.Fatalf("sigma = %v, want ~0.5", sigma)
	}
}

func TestDeterministicNoiseRange(t *testing.T) {
	for i, v := range DeterministicNoise(3, 0.25, 1000) {
		if v < -0.25 || v > 0.25 {
			t.Fatalf("noise[%d] = %v out of range", i, v)
		}
	}
}

func TestAddAtClipsToDestination(t *testing.T) {
	dst := make([]float64, 5)
	AddAt(dst, []float64{1, 2, 3}, 3, 2)
	RequireSliceNearlyEqual(t, dst, []float64{0, 0, 0, 2, 4}, 0)

	AddAt(dst, []float64{1, 1}, -1, 1)
	RequireSliceNearlyEqual(t, dst, []float64{1, 0, 0, 2, 4}, 0)
}

func TestRamp(t *testing.T) {
	r := Ramp(4)
	RequireFloat32Equal(t, r, []float32{0, 1, 2, 3})
}
