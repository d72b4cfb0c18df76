package ui

import (
	"math"
	"strings"
)

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// Envelope reduces values to width buckets holding the maximum of each.
func Envelope(values []float64, width int) []float64 {
	if width <= 0 || len(values) == 0 {
		return nil
	}
	if len(values) <= width {
		return append([]float64(nil), values...)
	}

	out := make([]float64, width)
	for i := range out {
		start := i * len(values) / width
		end := (i + 1) * len(values) / width
		peak := math.Inf(-1)
		for _, v := range values[start:end] {
			peak = max(peak, v)
		}
		out[i] = peak
	}
	return out
}

// Sparkline renders values scaled to [lo, hi] as block characters.
// Values outside the range are clamped.
func Sparkline(values []float64, lo, hi float64) string {
	if len(values) == 0 {
		return ""
	}

	span := hi - lo
	var b strings.Builder
	for _, v := range values {
		level := 0
		if span > 0 {
			f := (v - lo) / span
			f = min(max(f, 0), 1)
			level = int(math.Round(f * float64(len(sparkRunes)-1)))
		}
		b.WriteRune(sparkRunes[level])
	}
	return b.String()
}
