// Package level summarises the loudness of captured audio periods.
package level

import (
	"math"

	"github.com/cwbudde/echotrace/dsp/core"
)

// Stats holds amplitude statistics of one block of samples.
type Stats struct {
	Length      int
	DC          float64 // mean
	RMS         float64
	RMSdB       float64 // dBFS
	Peak        float64 // max |x|
	PeakdB      float64 // dBFS
	CrestFactor float64 // peak / RMS (linear)
	Clipped     int     // samples at or above full scale
}

// emptyStats returns a zero-valued Stats with -Inf for all dB fields.
func emptyStats() Stats {
	return Stats{
		RMSdB:  math.Inf(-1),
		PeakdB: math.Inf(-1),
	}
}

// Calculate computes all statistics in a single pass.
func Calculate(signal []float64) Stats {
	n := len(signal)
	if n == 0 {
		return emptyStats()
	}

	var sum, sumSq, peak float64
	clipped := 0
	for _, x := range signal {
		sum += x
		sumSq += x * x
		a := math.Abs(x)
		if a > peak {
			peak = a
		}
		if a >= 1 {
			clipped++
		}
	}

	nf := float64(n)
	rms := math.Sqrt(sumSq / nf)

	crest := 0.0
	if rms > 0 {
		crest = peak / rms
	}

	return Stats{
		Length:      n,
		DC:          sum / nf,
		RMS:         rms,
		RMSdB:       core.LinearToDB(rms),
		Peak:        peak,
		PeakdB:      core.LinearToDB(peak),
		CrestFactor: crest,
		Clipped:     clipped,
	}
}

// RMS returns the root-mean-square of the signal.
func RMS(signal []float64) float64 {
	if len(signal) == 0 {
		return 0
	}

	var sumSq float64
	for _, x := range signal {
		sumSq += x * x
	}

	return math.Sqrt(sumSq / float64(len(signal)))
}

// Peak returns the peak absolute amplitude of the signal.
func Peak(signal []float64) float64 {
	var peak float64
	for _, x := range signal {
		if a := math.Abs(x); a > peak {
			peak = a
		}
	}
	return peak
}
