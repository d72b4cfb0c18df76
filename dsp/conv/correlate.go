package conv

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// Errors returned by correlation functions.
var (
	ErrEmptyInput     = errors.New("conv: empty input")
	ErrLengthMismatch = errors.New("conv: buffer length mismatch")
)

// directThreshold is the template length below which direct summation
// beats an FFT round trip.
const directThreshold = 64

// Correlate computes the full cross-correlation of a and b.
// The result has length len(a) + len(b) - 1.
// Output index k corresponds to lag k - (len(b) - 1):
//
//	out[k] = Σ_n a[n+lag] * b[n]
func Correlate(a, b []float64) ([]float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return nil, ErrEmptyInput
	}

	if len(b) < directThreshold {
		return CorrelateDirect(a, b)
	}
	return CorrelateFFT(a, b)
}

// CorrelateDirect computes cross-correlation by direct summation.
func CorrelateDirect(a, b []float64) ([]float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return nil, ErrEmptyInput
	}

	n := len(a)
	m := len(b)
	out := make([]float64, n+m-1)

	// Each a[i] contributes to the lags that pair it with b[j]:
	// lag = i - j, stored at index lag + m - 1.
	for i := 0; i < n; i++ {
		ai := a[i]
		if ai == 0 {
			continue
		}
		base := i + m - 1
		for j := 0; j < m; j++ {
			out[base-j] += ai * b[j]
		}
	}

	return out, nil
}

// CorrelateFFT computes cross-correlation using FFT.
// This is more efficient for longer templates.
func CorrelateFFT(a, b []float64) ([]float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return nil, ErrEmptyInput
	}

	// IFFT(FFT(a) * conj(FFT(b))) is the circular correlation; zero padding to
	// at least n+m-1 makes it linear.
	n := len(a)
	m := len(b)
	fftSize := nextPowerOf2(n + m - 1)

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("conv: failed to create FFT plan: %w", err)
	}

	aPadded := make([]complex128, fftSize)
	bPadded := make([]complex128, fftSize)
	for i, v := range a {
		aPadded[i] = complex(v, 0)
	}
	for i, v := range b {
		bPadded[i] = complex(v, 0)
	}

	aFreq := make([]complex128, fftSize)
	bFreq := make([]complex128, fftSize)

	if err := plan.Forward(aFreq, aPadded); err != nil {
		return nil, fmt.Errorf("conv: forward FFT failed: %w", err)
	}
	if err := plan.Forward(bFreq, bPadded); err != nil {
		return nil, fmt.Errorf("conv: forward FFT failed: %w", err)
	}

	// Reuse aPadded as the product buffer.
	prod := aPadded
	for i := range prod {
		prod[i] = aFreq[i] * complex(real(bFreq[i]), -imag(bFreq[i]))
	}

	resultTime := bPadded
	if err := plan.Inverse(resultTime, prod); err != nil {
		return nil, fmt.Errorf("conv: inverse FFT failed: %w", err)
	}

	// Non-negative lags sit at the start of the circular result, negative
	// lags wrap around to the end.
	out := make([]float64, n+m-1)
	for i := 0; i < n; i++ {
		out[m-1+i] = real(resultTime[i])
	}
	for i := 0; i < m-1; i++ {
		out[i] = real(resultTime[fftSize-m+1+i])
	}

	return out, nil
}

// Magnitude writes |src| into dst and returns dst. dst is allocated when it
// is shorter than src.
func Magnitude(dst, src []float64) []float64 {
	if cap(dst) < len(src) {
		dst = make([]float64, len(src))
	}
	dst = dst[:len(src)]
	for i, v := range src {
		dst[i] = math.Abs(v)
	}
	return dst
}

// FindPeak finds the index and value of the maximum in a correlation result.
// Ties resolve to the first occurrence. Returns -1 for empty input.
func FindPeak(corr []float64) (index int, value float64) {
	if len(corr) == 0 {
		return -1, 0
	}

	index = 0
	value = corr[0]

	for i, v := range corr {
		if v > value {
			index = i
			value = v
		}
	}

	return index, value
}

// ArgMaxAbs returns the index and absolute value of the largest-magnitude
// sample. Ties resolve to the first occurrence. Returns -1 for empty input.
func ArgMaxAbs(x []float64) (index int, value float64) {
	if len(x) == 0 {
		return -1, 0
	}

	for i, v := range x {
		if av := math.Abs(v); av > value || i == 0 {
			index = i
			value = av
		}
	}

	return index, value
}

// LagFromIndex converts a correlation result index to a lag value.
// For a correlation of signals with lengths lenA and lenB,
// the lag at index i is i - (lenB - 1).
func LagFromIndex(index, lenB int) int {
	return index - (lenB - 1)
}

// IndexFromLag converts a lag value to a correlation result index.
func IndexFromLag(lag, lenB int) int {
	return lag + (lenB - 1)
}

// nextPowerOf2 returns the next power of 2 >= n.
func nextPowerOf2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p *= 2
	}
	return p
}
