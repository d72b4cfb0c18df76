// Package window provides the raised-cosine taper used to shape sonar pulses.
package window

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// Hann returns symmetric Hann window coefficients:
//
//	w[i] = 0.5 - 0.5*cos(2π*i/(N-1))
//
// Both endpoints are zero for N > 1. A single-point window is {1}.
func Hann(size int) ([]float64, error) {
	if err := validateLength(size); err != nil {
		return nil, err
	}

	out := make([]float64, size)
	if size == 1 {
		out[0] = 1
		return out, nil
	}

	denom := float64(size - 1)
	for i := range out {
		out[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/denom)
	}

	return out, nil
}

// Apply multiplies samples in-place by coeffs.
func Apply(samples, coeffs []float64) error {
	if len(coeffs) == 0 {
		return errEmptyCoefficient
	}
	if len(samples) != len(coeffs) {
		return fmt.Errorf("%w: %d samples, %d coefficients", ErrLengthMismatch, len(samples), len(coeffs))
	}

	vecmath.MulBlockInPlace(samples, coeffs)
	return nil
}

// ApplyHann tapers samples in-place with a Hann window of matching length.
func ApplyHann(samples []float64) error {
	coeffs, err := Hann(len(samples))
	if err != nil {
		return err
	}
	return Apply(samples, coeffs)
}
